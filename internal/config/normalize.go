package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.Publishing.Host = strings.ToLower(strings.TrimSpace(c.Publishing.Host))
	if c.Publishing.Host == "" {
		c.Publishing.Host = defaultPublishingHost
	}

	c.Converter.Endpoint = strings.TrimSpace(c.Converter.Endpoint)
	if c.Converter.Endpoint == "" {
		if value, ok := os.LookupEnv(converterEndpointEnvironment); ok {
			c.Converter.Endpoint = strings.TrimSpace(value)
		}
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
