package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePublishing() error {
	if strings.ContainsAny(c.Publishing.Host, "/:?# ") {
		return fmt.Errorf("publishing.host must be a bare host name, got %q", c.Publishing.Host)
	}
	return nil
}

func (c *Config) validateConverter() error {
	if c.Converter.TimeoutSeconds < 0 {
		return errors.New("converter.timeout_seconds must be zero or positive")
	}
	if c.Converter.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(c.Converter.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("converter.endpoint must be an http(s) URL, got %q", c.Converter.Endpoint)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("logging.format must be one of auto, text, json; got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
