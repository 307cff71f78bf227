package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateFilters(); err != nil {
		return err
	}
	if err := c.validateFilenames(); err != nil {
		return err
	}
	if err := c.validateSidecar(); err != nil {
		return err
	}
	if err := c.validateTags(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.RootDirectory == "" {
		return errors.New("paths.root_directory must be set")
	}
	if c.Paths.DatabasePath == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.TimeoutSeconds <= 0 {
		return errors.New("network.timeout_seconds must be positive")
	}
	if c.Network.Retry < 0 {
		return errors.New("network.retry must be zero or greater")
	}
	if c.Network.RetryWaitSeconds < 0 {
		return errors.New("network.retry_wait_seconds must be zero or greater")
	}
	return nil
}

func (c *Config) validateFilters() error {
	if c.Filters.DateDiff < 0 {
		return errors.New("filters.date_diff must be zero or greater")
	}
	if c.Filters.R18Type < 0 || c.Filters.R18Type > 2 {
		return fmt.Errorf("filters.r18_type must be 0, 1, or 2 (got %d)", c.Filters.R18Type)
	}
	if c.Filters.ExtensionFilter != "" {
		if _, err := regexp.Compile(c.Filters.ExtensionFilter); err != nil {
			return fmt.Errorf("filters.extension_filter: %w", err)
		}
	}
	return nil
}

func (c *Config) validateFilenames() error {
	if strings.TrimSpace(c.Filenames.Format) == "" {
		return errors.New("filenames.format must be set")
	}
	if strings.TrimSpace(c.Filenames.MangaFormat) == "" {
		return errors.New("filenames.manga_format must be set")
	}
	return nil
}

func (c *Config) validateSidecar() error {
	if c.Sidecar.URLBlacklistRegex != "" {
		if _, err := regexp.Compile(c.Sidecar.URLBlacklistRegex); err != nil {
			return fmt.Errorf("sidecar.url_blacklist_regex: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTags() error {
	if c.Tags.Limit < -1 {
		return errors.New("tags.limit must be -1 (unlimited) or greater")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}
