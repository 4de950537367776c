// Package validation checks configuration structs.
//
// Struct tags cover most rules:
//
//	type ServerConfig struct {
//	    Port int `mapstructure:"port" validate:"min=1,max=65535"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules use the collecting Validator:
//
//	v := validation.New()
//	v.OneOf("profile", cfg.Profile, "debug", "release")
//	err := v.Validate()
//
// Both return an *errors.AppError with code INVALID_INPUT whose "fields"
// detail lists each failure.
package validation
