// Package cleanenvport loads a config.Suite (or any tagged struct) from a YAML/JSON/TOML file
// and the environment using cleanenv, then validates it with validator.
package cleanenvport

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/e2ekit/config"
)

var (
	// ErrConfigPathNotSet is returned when neither --config flag nor CONFIG_PATH env var is set.
	ErrConfigPathNotSet = errors.New("config path not set")
	// ErrConfigFileNotFound is returned when the config file does not exist.
	ErrConfigFileNotFound = errors.New("config file not found")
	// ErrConfigValidation is returned when the config structure fails validation.
	ErrConfigValidation = errors.New("config validation failed")
)

// Load reads cfg from the path given by --config or CONFIG_PATH.
func Load(cfg any) error {
	path := fetchConfigPath()
	if path == "" {
		return fmt.Errorf("%w (use --config flag or CONFIG_PATH env)", ErrConfigPathNotSet)
	}
	return LoadPath(path, cfg)
}

// LoadPath reads cfg from configPath, overlays environment variables and validates the result.
func LoadPath(configPath string, cfg any) error {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}
	if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return validate(cfg)
}

// LoadEnv fills cfg from environment variables and env-default tags only.
func LoadEnv(cfg any) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return validate(cfg)
}

// LoadSuite reads a Suite from configPath, or from the environment alone when configPath is empty.
func LoadSuite(configPath string) (config.Suite, error) {
	var s config.Suite
	var err error
	if configPath == "" {
		err = LoadEnv(&s)
	} else {
		err = LoadPath(configPath, &s)
	}
	if err != nil {
		return config.Suite{}, err
	}
	return s, nil
}

func validate(cfg any) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidation, config.FormatValidationError(err))
	}
	return nil
}

// fetchConfigPath prefers the --config flag, registering and parsing it on first use,
// and falls back to CONFIG_PATH.
func fetchConfigPath() string {
	var path string
	if f := flag.Lookup("config"); f != nil {
		path = f.Value.String()
	} else {
		flag.StringVar(&path, "config", "", "path to config file")
		flag.Parse()
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}
