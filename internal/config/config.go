package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Publishing contains settings of the technical report site.
type Publishing struct {
	Host string `toml:"host"`
}

// Converter contains settings of the chapter conversion service.
type Converter struct {
	// Endpoint is the base URL of the conversion service. Empty means
	// chapter URLs locate pre-rendered EPUB archives.
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Output contains settings of the generated files.
type Output struct {
	Dir string `toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all settings of the tr2epub command.
type Config struct {
	Publishing Publishing `toml:"publishing"`
	Converter  Converter  `toml:"converter"`
	Output     Output     `toml:"output"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error: the defaults apply. It returns the config, the resolved
// path, and whether the file exists.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", false, err
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true, nil
		}
		projectPath, err := filepath.Abs(projectConfigName)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
			return projectPath, true, nil
		}
		return path, false, nil
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

// FetchTimeout returns the timeout of one chapter retrieval; zero means
// none.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Converter.TimeoutSeconds) * time.Second
}

// OutputPath returns the path of the collection file named name.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Output.Dir, name)
}

// Sample returns a commented configuration file holding the defaults.
func Sample() string {
	d := Default()
	var b strings.Builder
	b.WriteString("# tr2epub configuration\n\n")
	b.WriteString("[publishing]\n")
	fmt.Fprintf(&b, "host = %q\n\n", d.Publishing.Host)
	b.WriteString("[converter]\n")
	b.WriteString("# Conversion service; leave empty when chapter URLs point at EPUB archives.\n")
	fmt.Fprintf(&b, "endpoint = %q\n", d.Converter.Endpoint)
	fmt.Fprintf(&b, "timeout_seconds = %d\n\n", d.Converter.TimeoutSeconds)
	b.WriteString("[output]\n")
	fmt.Fprintf(&b, "dir = %q\n\n", d.Output.Dir)
	b.WriteString("[logging]\n")
	b.WriteString("# auto, text, or json\n")
	fmt.Fprintf(&b, "format = %q\n", d.Logging.Format)
	fmt.Fprintf(&b, "level = %q\n", d.Logging.Level)
	return b.String()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
