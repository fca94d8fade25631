// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	type UpstreamConfig struct {
//		BaseURL string `env:"UPSTREAM_BASE_URL,required"`
//		APIKey  string `env:"UPSTREAM_API_KEY,required"`
//	}
//
//	var cfg UpstreamConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Each configuration type is loaded only once per process lifetime; later
// calls for the same type return the cached value.
package config
