package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Search  SearchConfig  `yaml:"search"`
	Run     RunConfig     `yaml:"run"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// PageLoadTimeout bounds a single Navigate call.
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" validate:"gt=0"` // default: 45s

	// Stealth masks navigator.webdriver and friends on every new document.
	Stealth bool `yaml:"stealth"` // default: true

	// UserAgent overrides the browser's User-Agent when non-empty.
	UserAgent string `yaml:"user_agent"`

	// AcceptLanguage is sent as an extra request header when non-empty.
	AcceptLanguage string `yaml:"accept_language"` // default: "en-US,en;q=0.9"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types" validate:"dive,oneof=Image Stylesheet Font Media Script"`
}

// SearchConfig describes the target site and the per-query waits.
type SearchConfig struct {
	// EntryURLs are the candidate search entry points, tried in order.
	EntryURLs []string `yaml:"entry_urls" validate:"min=1,dive,url"`

	// InputSelector locates the search input control.
	InputSelector string `yaml:"input_selector" validate:"required,cssselector"` // default: "#pmn-search-query"

	// HeadingSelector locates the heading the extraction rule is anchored to.
	HeadingSelector string `yaml:"heading_selector" validate:"required,cssselector"` // default: "h1"

	// PathwayFragment is the link target of the pathway anchor.
	PathwayFragment string `yaml:"pathway_fragment" validate:"required"` // default: "#PATHWAY"

	// PathwayLabel is the visible text of the pathway anchor.
	PathwayLabel string `yaml:"pathway_label" validate:"required"` // default: "Pathways"

	// DismissLabels are the affirmative button labels clicked to clear overlays.
	DismissLabels []string `yaml:"dismiss_labels"`

	// Bounded waits. Defaults: ready 20s, input 10s, result 18s, dialog 2s,
	// settle 600ms. ActionTimeout (10s) bounds every single browser call.
	ReadyTimeout  time.Duration `yaml:"ready_timeout" validate:"gt=0"`
	InputTimeout  time.Duration `yaml:"input_timeout" validate:"gt=0"`
	ResultTimeout time.Duration `yaml:"result_timeout" validate:"gt=0"`
	DialogTimeout time.Duration `yaml:"dialog_timeout" validate:"gte=0"`
	SettleDelay   time.Duration `yaml:"settle_delay" validate:"gte=0"`
	ActionTimeout time.Duration `yaml:"action_timeout" validate:"gt=0"`
}

// RunConfig controls the input and output tables and pacing.
type RunConfig struct {
	InputPath  string `yaml:"input"`
	NameColumn string `yaml:"column" validate:"required"` // default: "name"
	OutputPath string `yaml:"output" validate:"required"` // default: "pmn_has_pathway.csv"

	// Layout selects the ledger layout: "outcomes" or "annotate".
	Layout string `yaml:"layout" validate:"oneof=outcomes annotate"` // default: "outcomes"

	// Encodings are the candidate input encodings, tried in order.
	Encodings []string `yaml:"encodings" validate:"min=1"`

	// Delay is the fixed pause after every query.
	Delay time.Duration `yaml:"delay" validate:"gte=0"` // default: 900ms

	// Offset and Limit select a positional window of the deduplicated targets.
	Offset int `yaml:"offset" validate:"gte=0"`
	Limit  int `yaml:"limit" validate:"gte=0"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"` // default: "info"
	Format string `yaml:"format" validate:"oneof=json text"`              // default: "text"
}

// DefaultEntryURLs are the known PlantCyc entry points. Older browsers have
// trouble with the www host, so it goes last.
var DefaultEntryURLs = []string{
	"https://plantcyc.org/",
	"https://pmn.plantcyc.org/",
	"https://www.plantcyc.org/",
}

// DefaultDismissLabels are the consent/alert button labels, English and Chinese.
var DefaultDismissLabels = []string{"Accept", "I agree", "同意", "接受", "OK", "Got it"}

// DefaultEncodings is the fixed preference order for reading the input table.
var DefaultEncodings = []string{"utf-8-sig", "utf-8", "gbk", "cp936", "big5", "latin1"}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:             true,
			PageLoadTimeout:      45 * time.Second,
			Stealth:              true,
			AcceptLanguage:       "en-US,en;q=0.9",
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
		},
		Search: SearchConfig{
			EntryURLs:       append([]string(nil), DefaultEntryURLs...),
			InputSelector:   "#pmn-search-query",
			HeadingSelector: "h1",
			PathwayFragment: "#PATHWAY",
			PathwayLabel:    "Pathways",
			DismissLabels:   append([]string(nil), DefaultDismissLabels...),
			ReadyTimeout:    20 * time.Second,
			InputTimeout:    10 * time.Second,
			ResultTimeout:   18 * time.Second,
			DialogTimeout:   2 * time.Second,
			SettleDelay:     600 * time.Millisecond,
			ActionTimeout:   10 * time.Second,
		},
		Run: RunConfig{
			NameColumn: "name",
			OutputPath: "pmn_has_pathway.csv",
			Layout:     "outcomes",
			Encodings:  append([]string(nil), DefaultEncodings...),
			Delay:      900 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from the defaults, the config file found by
// FindConfigFile(configPath) and then PMN_* environment variables. It returns
// the file that was used, or "" if none. An explicit configPath that does not
// exist is ErrConfigNotFound.
func Load(configPath string) (*Config, string, error) {
	cfg := Defaults()

	path := FindConfigFile(configPath)
	if path == "" && configPath != "" {
		return nil, "", ErrConfigNotFound
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, "", err
		}
	}

	cfg.ApplyEnv()
	return cfg, path, nil
}

// ApplyEnv overrides cfg with any PMN_* environment variables that are set.
// Values already in cfg act as the fallbacks.
func (c *Config) ApplyEnv() {
	b := &c.Browser
	b.Headless = envBoolOr("PMN_HEADLESS", b.Headless)
	b.NoSandbox = envBoolOr("PMN_NO_SANDBOX", b.NoSandbox)
	b.BrowserBin = envOr("PMN_BROWSER_BIN", b.BrowserBin)
	b.PageLoadTimeout = envDurationOr("PMN_PAGE_LOAD_TIMEOUT", b.PageLoadTimeout)
	b.Stealth = envBoolOr("PMN_STEALTH", b.Stealth)
	b.UserAgent = envOr("PMN_USER_AGENT", b.UserAgent)
	b.AcceptLanguage = envOr("PMN_ACCEPT_LANGUAGE", b.AcceptLanguage)
	b.BlockedResourceTypes = envSliceOr("PMN_BLOCKED_RESOURCES", b.BlockedResourceTypes)

	s := &c.Search
	s.EntryURLs = envSliceOr("PMN_ENTRY_URLS", s.EntryURLs)
	s.InputSelector = envOr("PMN_INPUT_SELECTOR", s.InputSelector)
	s.HeadingSelector = envOr("PMN_HEADING_SELECTOR", s.HeadingSelector)
	s.PathwayFragment = envOr("PMN_PATHWAY_FRAGMENT", s.PathwayFragment)
	s.PathwayLabel = envOr("PMN_PATHWAY_LABEL", s.PathwayLabel)
	s.DismissLabels = envSliceOr("PMN_DISMISS_LABELS", s.DismissLabels)
	s.ReadyTimeout = envDurationOr("PMN_READY_TIMEOUT", s.ReadyTimeout)
	s.InputTimeout = envDurationOr("PMN_INPUT_TIMEOUT", s.InputTimeout)
	s.ResultTimeout = envDurationOr("PMN_RESULT_TIMEOUT", s.ResultTimeout)
	s.DialogTimeout = envDurationOr("PMN_DIALOG_TIMEOUT", s.DialogTimeout)
	s.SettleDelay = envDurationOr("PMN_SETTLE_DELAY", s.SettleDelay)
	s.ActionTimeout = envDurationOr("PMN_ACTION_TIMEOUT", s.ActionTimeout)

	r := &c.Run
	r.InputPath = envOr("PMN_INPUT", r.InputPath)
	r.NameColumn = envOr("PMN_COLUMN", r.NameColumn)
	r.OutputPath = envOr("PMN_OUTPUT", r.OutputPath)
	r.Layout = envOr("PMN_LAYOUT", r.Layout)
	r.Encodings = envSliceOr("PMN_ENCODINGS", r.Encodings)
	r.Delay = envDurationOr("PMN_DELAY", r.Delay)
	r.Offset = envIntOr("PMN_OFFSET", r.Offset)
	r.Limit = envIntOr("PMN_LIMIT", r.Limit)

	c.Log.Level = envOr("PMN_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("PMN_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return append([]string(nil), fallback...)
}
