package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNotStructPointer is returned when the target is not a pointer to a struct.
var ErrNotStructPointer = errors.New("config target must be a non-nil pointer to a struct")

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (pointer to cached struct value)
)

// Load parses environment variables into the given struct pointer.
// The first call for a given type reads the environment; subsequent calls
// for the same type copy the cached value instead of re-parsing.
func Load(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	// Missing .env files are expected outside local development.
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	typ := rv.Elem().Type()
	if cached, ok := cache.Load(typ); ok {
		rv.Elem().Set(reflect.ValueOf(cached).Elem())
		return nil
	}

	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse %s from environment: %w", typ, err)
	}

	// Store a private copy so later mutations of the caller's struct do not
	// leak into the cache.
	stored := reflect.New(typ)
	stored.Elem().Set(rv.Elem())
	if prev, loaded := cache.LoadOrStore(typ, stored.Interface()); loaded {
		rv.Elem().Set(reflect.ValueOf(prev).Elem())
	}

	return nil
}

// MustLoad is like Load but panics on failure. Intended for process startup.
func MustLoad(target any) {
	if err := Load(target); err != nil {
		panic(err)
	}
}
