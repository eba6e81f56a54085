package main

import (
	"strings"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"
)

// envConfig holds the defaults that can come from the environment. Flags
// given on the command line always win.
type envConfig struct {
	Memmap null.String `envconfig:"BANKLD_MEMMAP"`
	Format null.String `envconfig:"BANKLD_FORMAT"`
	Fill   null.String `envconfig:"BANKLD_FILL"`
	Root   null.String `envconfig:"BANKLD_ROOT"`
}

func readEnvConfig(env map[string]string) (envConfig, error) {
	var conf envConfig
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	return conf, err
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}
