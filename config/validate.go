package config

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/go-playground/validator/v10"
	"github.com/use-agent/pmnprobe/models"
)

// Validate checks cfg against its struct tags. Selectors must compile.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("cssselector", validateCSSSelector); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return models.NewProbeError(models.ErrCodeInvalidConfig, "configuration validation failed", err)
	}
	return nil
}

func validateCSSSelector(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := cascadia.Compile(s)
	return err == nil
}

// String renders the settings that matter when reading logs.
func (c *Config) String() string {
	return fmt.Sprintf("input=%s column=%s output=%s layout=%s entries=%d headless=%t",
		c.Run.InputPath, c.Run.NameColumn, c.Run.OutputPath, c.Run.Layout,
		len(c.Search.EntryURLs), c.Browser.Headless)
}
