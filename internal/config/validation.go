package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate validates the settings.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
		validation.Field(&c.MarkerFile, validation.Required, validation.By(plainFileName)),
		validation.Field(&c.ProjectMarkers, validation.Each(validation.Required, validation.By(plainFileName))),
	); err != nil {
		return err
	}
	if err := c.Lock.Validate(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// Validate validates the lock settings.
func (c *LockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// Validate validates the catalog settings.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	)
}

func plainFileName(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return errors.New("must be a file name without directories")
	}
	return nil
}

func httpURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}
