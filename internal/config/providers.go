package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Provider is one source of configuration values.
type Provider interface {
	Name() string
	Lookup(key string) (string, bool)
}

// MapProvider serves values from a fixed map, used for flag overrides and defaults.
type MapProvider struct {
	name   string
	values map[string]string
}

func NewMapProvider(name string, values map[string]string) *MapProvider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[strings.ToUpper(k)] = v
	}
	return &MapProvider{name: name, values: copied}
}

func (p *MapProvider) Name() string { return p.name }

func (p *MapProvider) Lookup(key string) (string, bool) {
	v, ok := p.values[strings.ToUpper(key)]
	return v, ok
}

// EnvProvider reads the process environment. Construction loads dotenv files
// without overriding variables that are already set.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

func NewEnvProvider(dotenvFiles ...string) *EnvProvider {
	if len(dotenvFiles) == 0 {
		_ = godotenv.Load() // loads .env
	} else {
		for _, f := range dotenvFiles {
			_ = godotenv.Load(f)
		}
	}
	return &EnvProvider{lookup: os.LookupEnv}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Lookup(key string) (string, bool) {
	return p.lookup(key)
}

// FileProvider serves values from a TOML or YAML document. Nested tables are
// flattened into upper-case keys joined by underscores, so
//
//	[rapidapi]
//	key = "..."
//
// answers RAPIDAPI_KEY.
type FileProvider struct {
	path   string
	values map[string]string
}

// NewFileProvider parses path. A missing file yields an empty provider.
func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path, values: map[string]string{}}
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	flatten("", raw, p.values)
	return p, nil
}

func (p *FileProvider) Name() string { return "file:" + p.path }

func (p *FileProvider) Lookup(key string) (string, bool) {
	v, ok := p.values[strings.ToUpper(key)]
	return v, ok
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// DefaultProviders builds the standard resolution order: overrides, process
// environment, then the optional config file.
func DefaultProviders(configPath string, overrides map[string]string) ([]Provider, error) {
	file, err := NewFileProvider(configPath)
	if err != nil {
		return nil, err
	}
	return []Provider{
		NewMapProvider("flags", overrides),
		NewEnvProvider(),
		file,
	}, nil
}
