package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
	GetMetricsEnabled() bool
}

type mainConfig struct {
	EnvVars
	Security
	Stores
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are not overridden and missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
