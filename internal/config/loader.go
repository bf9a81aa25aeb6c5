package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct {
	ext string
}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	err := yaml.NewDecoder(reader).Decode(target)
	if errors.Is(err, io.EOF) {
		// empty file
		return nil
	}
	return err
}

func (y *YAMLLoader) Extension() string {
	if y.ext == "" {
		return "yaml"
	}
	return y.ext
}

// Loader layers configuration sources for one environment.
type Loader struct {
	basePath    string
	environment Environment
	fileLoaders []FileLoader
	// environ overrides the process environment; used by tests.
	environ map[string]string
}

// NewLoader creates a loader reading files under basePath.
func NewLoader(basePath string, environment Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if environment == "" {
		environment = Development
	}
	return &Loader{
		basePath:    basePath,
		environment: environment,
		fileLoaders: []FileLoader{&YAMLLoader{}, &YAMLLoader{ext: "yml"}},
	}
}

// BasePath returns the directory files are read from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// WithEnviron replaces the process environment with vars.
func (l *Loader) WithEnviron(vars map[string]string) *Loader {
	l.environ = vars
	return l
}

// Load applies defaults, files and environment variables, then validates.
func (l *Loader) Load() (*Config, error) {
	cfg := Default(l.environment)
	sources := []string{"defaults"}

	names := []string{"base", strings.ToLower(string(l.environment))}
	if l.environment == Development {
		names = append(names, "local")
	}
	for _, name := range names {
		path, err := l.loadFile(name, cfg)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", name, err)
		}
		sources = append(sources, path)
	}

	opts := env.Options{}
	if l.environ != nil {
		opts.Environment = l.environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	sources = append(sources, "environment")
	cfg.LoadedFrom = sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the first existing <name>.<ext> into cfg.
func (l *Loader) loadFile(name string, cfg *Config) (string, error) {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())
		file, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		err = loader.Load(file, cfg)
		file.Close()
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return path, nil
	}
	return "", os.ErrNotExist
}

// Load reads configuration from ./config (or CONFIG_DIR) for the
// environment named by ENVIRONMENT.
func Load() (*Config, error) {
	dir := os.Getenv("CONFIG_DIR")
	return NewLoader(dir, EnvironmentFromOS()).Load()
}

// MustLoad loads configuration and panics on error.
// Use this only in main() or init() functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
