package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// envKey joins prefix and key the way every TADA_* variable is spelled.
func envKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// parseEnvTags fills cfg (a pointer to a struct) from `env` and `default`
// struct tags. Nested structs are walked with the same prefix.
func parseEnvTags(prefix string, cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.New("cfg must be a pointer to a struct")
	}
	return fillStruct(prefix, v.Elem())
}

func fillStruct(prefix string, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		ft := t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && ft.Type != reflect.TypeOf(time.Time{}) {
			if err := fillStruct(prefix, field); err != nil {
				return err
			}
			continue
		}

		key := ft.Tag.Get("env")
		if key == "" {
			continue
		}
		ek := envKey(prefix, key)
		value, ok := os.LookupEnv(ek)
		if !ok || value == "" {
			value = ft.Tag.Get("default")
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("%s: %w", ek, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if value == "" {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("cannot parse duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse int: %w", err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cannot parse bool: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
