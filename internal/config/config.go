package config

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ServerAddr     string
	StoreDriver    string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	NatsURL        string
}

// Env holds the CAMPUS_* environment variables. Command line flags take
// their defaults from it.
type Env struct {
	Addr           string   `envconfig:"ADDR" default:"localhost:8000"`
	Store          string   `envconfig:"STORE" default:"postgres"`
	DSN            string   `envconfig:"DSN" default:"host=localhost user=postgres password=postgres dbname=campus sslmode=disable"`
	SigningKey     string   `envconfig:"SIGNING_KEY"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	NatsURL        string   `envconfig:"NATS_URL"`
}

func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("campus", &env); err != nil {
		return Env{}, fmt.Errorf("process env: %w", err)
	}
	return env, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, errors.New("empty key")
	}
	return key, nil
}

func NewConfig(serverAddr, storeDriver, databaseDSN, base64Secret string, allowedOrigins []string, natsURL string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	switch storeDriver {
	case StorePostgres:
		if databaseDSN == "" {
			return nil, fmt.Errorf("database DSN cannot be empty")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", storeDriver)
	}

	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		StoreDriver:    storeDriver,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		NatsURL:        natsURL,
	}, nil
}
