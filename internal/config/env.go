package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every variable the launcher reads.
const EnvPrefix = "VOXLAUNCH_"

// Env is a read-only view over environment variables.
type Env map[string]string

// LoadEnv returns the process environment layered over <root>/.env; variables
// already set in the process win.
func LoadEnv(root string) (Env, error) {
	env := Env{}
	dot, err := godotenv.Read(filepath.Join(root, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return env, err
	}
	for k, v := range dot {
		env[k] = v
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

// Str returns the value of key or def when unset or empty.
func (e Env) Str(key, def string) string {
	if v := strings.TrimSpace(e[key]); v != "" {
		return v
	}
	return def
}

// Bool treats 1/true/yes as true.
func (e Env) Bool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(e[key]))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

// Int returns def when the value is unset or not a number.
func (e Env) Int(key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(e[key])); err == nil {
		return n
	}
	return def
}

func applyEnv(cfg Config, env Env) Config {
	cfg.RuntimeURL = env.Str(EnvPrefix+"RUNTIME_URL", cfg.RuntimeURL)
	cfg.RuntimeSHA256 = env.Str(EnvPrefix+"RUNTIME_SHA256", cfg.RuntimeSHA256)
	cfg.BootstrapURL = env.Str(EnvPrefix+"BOOTSTRAP_URL", cfg.BootstrapURL)
	cfg.SupplementaryPackage = env.Str(EnvPrefix+"SUPPLEMENTARY_PACKAGE", cfg.SupplementaryPackage)
	cfg.ReadyTimeoutSeconds = env.Int(EnvPrefix+"READY_TIMEOUT", cfg.ReadyTimeoutSeconds)
	cfg.SimulatePortable = env.Bool(EnvPrefix+"SIMULATE_PORTABLE", cfg.SimulatePortable)
	return cfg
}
