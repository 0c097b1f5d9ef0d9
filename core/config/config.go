// Package config provides type-safe environment variable loading with
// per-type caching. Each configuration type is loaded once and the parsed
// value is reused for subsequent calls.
//
// A .env file in the working directory is loaded automatically on first use;
// a missing file is not an error. Parsing is delegated to caarlos0/env.
//
//	type AuthConfig struct {
//		Secret string        `env:"SESSION_JWT_SECRET,required"`
//		TTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"`
//	}
//
//	var cfg AuthConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	cache  = map[reflect.Type]any{}
	dotenv sync.Once
)

// Load populates cfg from the environment. cfg must be a non-nil pointer to
// a struct. Repeated calls with the same type return the cached value.
func Load(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected non-nil struct pointer, got %T", cfg)
	}

	dotenv.Do(func() {
		_ = godotenv.Load() // missing .env is fine
	})

	mu.Lock()
	defer mu.Unlock()

	t := v.Elem().Type()
	if cached, ok := cache[t]; ok {
		v.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", t, err)
	}
	cache[t] = v.Elem().Interface()
	return nil
}

// MustLoad is Load that panics on failure. Useful during startup.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
