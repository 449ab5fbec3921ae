package config

import (
	goerrors "errors"
	"io/fs"
	"os"

	"github.com/gobeaver/beaver-kit/config"
	"github.com/mwantia/objfs/data/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to the environment variable of every setting.
	EnvPrefix = "OBJFS_"

	// DefaultSettingsFile holds the system wide settings.
	DefaultSettingsFile = "/etc/objfs/settings.yaml"
)

// Context is one layer of configuration.
type Context interface {
	Get(key string) (string, bool)
}

// MapContext holds explicitly given settings.
type MapContext map[string]string

func (mc MapContext) Get(key string) (string, bool) {
	value, exists := mc[key]
	if !exists || value == "" {
		return "", false
	}
	return value, true
}

// ChainedContext asks its layers in order and returns the first value found.
type ChainedContext []Context

func Chain(contexts ...Context) ChainedContext {
	return ChainedContext(contexts)
}

func (cc ChainedContext) Get(key string) (string, bool) {
	for _, context := range cc {
		if context == nil {
			continue
		}
		if value, exists := context.Get(key); exists {
			return value, true
		}
	}
	return "", false
}

type environment struct {
	URL            string `env:"URL"`
	Account        string `env:"ACCOUNT"`
	KeyPath        string `env:"KEY_PATH"`
	KeyFingerprint string `env:"KEY_FINGERPRINT"`
}

// EnvContext reads the OBJFS_ prefixed process environment.
func EnvContext() (MapContext, error) {
	env := &environment{}
	if err := config.Load(env, config.LoadOptions{Prefix: EnvPrefix}); err != nil {
		return nil, errors.InvalidArgument("load environment", "%v", err)
	}

	return Settings(*env).Values(), nil
}

// FileContext reads the YAML settings file at path. A missing file is
// an empty layer.
func FileContext(path string) (MapContext, error) {
	if path == "" {
		return MapContext{}, nil
	}

	content, err := os.ReadFile(path)
	if goerrors.Is(err, fs.ErrNotExist) {
		return MapContext{}, nil
	}
	if err != nil {
		return nil, errors.IOFailure(err, "load settings file", path)
	}

	settings := Settings{}
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return nil, errors.InvalidArgument("load settings file", "malformed settings file '%s': %v", path, err)
	}

	return settings.Values(), nil
}

// DefaultContexts returns the environment followed by the settings file.
// Explicit settings are placed in front of these by the caller.
func DefaultContexts(settingsFile string) ([]Context, error) {
	env, err := EnvContext()
	if err != nil {
		return nil, err
	}

	file, err := FileContext(settingsFile)
	if err != nil {
		return nil, err
	}

	return []Context{env, file}, nil
}
