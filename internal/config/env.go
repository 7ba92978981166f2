package config

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// loadEnv reads the BUFDEV_* overrides. A non-nil env is the whole
// environment and the process environment is not consulted. A nil env
// falls back to envconfig over the process environment.
func loadEnv(env map[string]string) (envConfig, error) {
	var out envConfig

	if env == nil {
		err := envconfig.Process(EnvPrefix, &out)
		if err != nil {
			return envConfig{}, fmt.Errorf("%w: %w", ErrEnvInvalid, err)
		}

		return out, nil
	}

	err := decodeEnv(env, &out)
	if err != nil {
		return envConfig{}, fmt.Errorf("%w: %w", ErrEnvInvalid, err)
	}

	return out, nil
}

// decodeEnv fills the pointer fields of out from env, keyed by
// EnvPrefix + "_" + the field's envconfig tag. Absent keys leave the field nil.
func decodeEnv(env map[string]string, out *envConfig) error {
	v := reflect.ValueOf(out).Elem()
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		key := EnvPrefix + "_" + field.Tag.Get("envconfig")

		raw, ok := env[key]
		if !ok {
			continue
		}

		ptr := reflect.New(field.Type.Elem())

		switch field.Type.Elem().Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s=%q: not an integer", key, raw)
			}

			ptr.Elem().SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s=%q: not a boolean", key, raw)
			}

			ptr.Elem().SetBool(b)
		case reflect.String:
			ptr.Elem().SetString(raw)
		default:
			return fmt.Errorf("%s: unsupported field type %s", key, field.Type)
		}

		v.Field(i).Set(ptr)
	}

	return nil
}
