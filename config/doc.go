// Package config loads service configuration with viper.
//
//	var cfg AppConfig
//	err := config.LoadConfig("injectord", &cfg, config.WithEnvPrefix("INJECTOR"))
//
// Values come from defaults, then config.yml, then the environment. A .env
// file next to the config is loaded into the environment first.
package config
