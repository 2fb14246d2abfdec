// Package config loads tagged configuration structs from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load populates cfg from environment variables declared through `env`
// struct tags, applying envDefault values for anything unset. The search
// service keeps all of its tuning, from engine selection to worker sizing,
// in one tagged struct loaded once at startup.
//
// Example:
//
//	type Config struct {
//	    Port   int    `env:"HTTP_PORT" envDefault:"8084"`
//	    Engine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load config from environment: %w", err)
	}
	return nil
}
