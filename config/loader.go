/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration: tag defaults, then the YAML file at path
// (skipped when empty), then envFiles (".env" when none given; missing files
// are ignored, set variables are not overwritten), then the environment.
// The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	if err := walk(reflect.ValueOf(cfg).Elem(), applyDefault); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", f, err)
		}
	}

	if err := walk(reflect.ValueOf(cfg).Elem(), applyEnv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// walk calls fn for every settable leaf field, recursing into nested structs.
func walk(v reflect.Value, fn func(reflect.StructField, reflect.Value) error) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := walk(fieldVal, fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}
	return nil
}

func applyDefault(field reflect.StructField, v reflect.Value) error {
	def := field.Tag.Get("default")
	if def == "" {
		return nil
	}
	if err := setField(v, def); err != nil {
		return fmt.Errorf("invalid default for %s: %w", field.Name, err)
	}
	return nil
}

func applyEnv(field reflect.StructField, v reflect.Value) error {
	envName := field.Tag.Get("env")
	if envName == "" {
		return nil
	}

	// Try primary env var, then alternate
	value := os.Getenv(envName)
	if value == "" {
		if alt := field.Tag.Get("envAlt"); alt != "" {
			value = os.Getenv(alt)
		}
	}
	if value == "" {
		return nil
	}

	if err := setField(v, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
	}
	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Map:
		if field.Type() != reflect.TypeOf(map[string]int(nil)) {
			return fmt.Errorf("unsupported map type: %s", field.Type())
		}
		m, err := parseFactors(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(m))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// parseFactors reads "dc1:3,dc2:2".
func parseFactors(value string) (map[string]int, error) {
	m := make(map[string]int)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, factor, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("datacenter %q must be written name:factor", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(factor))
		if err != nil {
			return nil, fmt.Errorf("datacenter %s: invalid factor: %w", name, err)
		}
		m[strings.TrimSpace(name)] = n
	}
	return m, nil
}
