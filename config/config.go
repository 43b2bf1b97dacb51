package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Platform  PlatformConfig
	Harvest   HarvestConfig
	Scroll    ScrollConfig
	Enrich    EnrichConfig
	Export    ExportConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// PlatformConfig locates the content platform's endpoints. The defaults match
// the note-style API shapes; everything is overridable because the upstream
// has no schema contract and paths drift over time.
type PlatformConfig struct {
	// BaseURL is the platform origin, no trailing slash.
	BaseURL string // default: "https://note.com"

	// SearchPath is the offset-paginated search JSON endpoint.
	SearchPath string // default: "/api/v3/searches"

	// HashtagPath is the page-number-paginated hashtag JSON endpoint prefix.
	// The tag and "/notes" are appended per request.
	HashtagPath string // default: "/api/v2/hashtags"

	// NotePath is the per-article detail JSON endpoint prefix.
	NotePath string // default: "/api/v3/notes"
}

// HarvestConfig controls API pagination.
type HarvestConfig struct {
	// PageSize is the number of items requested per page.
	PageSize int // default: 10

	// PageDelay is the pause between page requests.
	PageDelay time.Duration // default: 1s

	// RequestTimeout bounds each individual JSON fetch.
	RequestTimeout time.Duration // default: 15s
}

// ScrollConfig controls the DOM fallback collection loop.
type ScrollConfig struct {
	// RenderWait is how long to wait after a scroll for new content.
	RenderWait time.Duration // default: 2s

	// StagnationThreshold is the number of consecutive rounds without new
	// articles before the loop gives up and keeps what it has.
	StagnationThreshold int // default: 3
}

// EnrichConfig controls the per-article rating enrichment.
type EnrichConfig struct {
	// ArticleDelay is the pause between article fetches.
	ArticleDelay time.Duration // default: 500ms

	// RequestTimeout bounds each detail API or article page fetch.
	RequestTimeout time.Duration // default: 10s
}

// ExportConfig controls the CSV output.
type ExportConfig struct {
	// Dir is the directory the CSV file is written to.
	Dir string // default: "."
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for page navigation.
	NavigationTimeout time.Duration // default: 30s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting on the API surface.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("NOTEHARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("NOTEHARVEST_PORT", 8080),
			Mode: envOr("NOTEHARVEST_MODE", "release"),
		},
		Platform: PlatformConfig{
			BaseURL:     strings.TrimRight(envOr("NOTEHARVEST_BASE_URL", "https://note.com"), "/"),
			SearchPath:  envOr("NOTEHARVEST_SEARCH_PATH", "/api/v3/searches"),
			HashtagPath: envOr("NOTEHARVEST_HASHTAG_PATH", "/api/v2/hashtags"),
			NotePath:    envOr("NOTEHARVEST_NOTE_PATH", "/api/v3/notes"),
		},
		Harvest: HarvestConfig{
			PageSize:       envIntOr("NOTEHARVEST_PAGE_SIZE", 10),
			PageDelay:      envDurationOr("NOTEHARVEST_PAGE_DELAY", time.Second),
			RequestTimeout: envDurationOr("NOTEHARVEST_REQUEST_TIMEOUT", 15*time.Second),
		},
		Scroll: ScrollConfig{
			RenderWait:          envDurationOr("NOTEHARVEST_RENDER_WAIT", 2*time.Second),
			StagnationThreshold: envIntOr("NOTEHARVEST_STAGNATION_THRESHOLD", 3),
		},
		Enrich: EnrichConfig{
			ArticleDelay:   envDurationOr("NOTEHARVEST_ARTICLE_DELAY", 500*time.Millisecond),
			RequestTimeout: envDurationOr("NOTEHARVEST_ENRICH_TIMEOUT", 10*time.Second),
		},
		Export: ExportConfig{
			Dir: envOr("NOTEHARVEST_EXPORT_DIR", "."),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("NOTEHARVEST_HEADLESS", true),
			NoSandbox:         envBoolOr("NOTEHARVEST_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("NOTEHARVEST_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("NOTEHARVEST_NAV_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("NOTEHARVEST_AUTH_ENABLED", false),
			APIKeys: envSliceOr("NOTEHARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("NOTEHARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("NOTEHARVEST_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("NOTEHARVEST_LOG_LEVEL", "info"),
			Format: envOr("NOTEHARVEST_LOG_FORMAT", "json"),
		},
	}
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

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
	return fallback
}
