package bootstrap

import (
	"github.com/kbukum/injector/config"
)

// Config constrains application configuration types. A struct embedding
// config.ServiceConfig satisfies it through promoted methods:
//
//	type MyConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Profile string       `yaml:"profile" mapstructure:"profile"`
//	}
//
//	app, err := bootstrap.NewApp[*MyConfig](&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
