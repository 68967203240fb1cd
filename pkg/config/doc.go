// Package config loads typed configuration structs from the process
// environment (and an optional .env file) using struct tags:
//
//	type Config struct {
//		URL string `env:"MONGODB_URL,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
//
// Each struct type is parsed once per process; later calls return a copy of
// the cached value. Reset clears the cache, which tests use after t.Setenv.
package config
