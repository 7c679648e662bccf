package config

import (
	"fmt"
	"strings"
)

const (
	LogLevelEnv   = "TCM_LOG_LEVEL"
	CatalogURLEnv = "TCM_CATALOG_URL"
)

// ApplyEnv applies TCM_LOG_LEVEL and TCM_CATALOG_URL from lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if value, ok := lookup(LogLevelEnv); ok && strings.TrimSpace(value) != "" {
		if err := c.LogLevel.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
			return fmt.Errorf("%s: %w", LogLevelEnv, err)
		}
	}
	if value, ok := lookup(CatalogURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
	}
	return nil
}
