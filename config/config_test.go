package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 || cfg.Server.Mode != "release" {
		t.Errorf("server defaults = %+v", cfg.Server)
	}
	if cfg.Platform.BaseURL != "https://note.com" {
		t.Errorf("BaseURL = %q", cfg.Platform.BaseURL)
	}
	if cfg.Harvest.PageSize != 10 || cfg.Harvest.PageDelay != time.Second {
		t.Errorf("harvest defaults = %+v", cfg.Harvest)
	}
	if cfg.Scroll.StagnationThreshold != 3 {
		t.Errorf("StagnationThreshold = %d", cfg.Scroll.StagnationThreshold)
	}
	if cfg.Enrich.ArticleDelay != 500*time.Millisecond {
		t.Errorf("ArticleDelay = %v", cfg.Enrich.ArticleDelay)
	}
	if cfg.Auth.Enabled {
		t.Error("auth enabled by default")
	}
	if !cfg.Browser.Headless {
		t.Error("browser not headless by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NOTEHARVEST_PORT", "9090")
	t.Setenv("NOTEHARVEST_BASE_URL", "https://staging.note.example/")
	t.Setenv("NOTEHARVEST_PAGE_DELAY", "250ms")
	t.Setenv("NOTEHARVEST_AUTH_ENABLED", "true")
	t.Setenv("NOTEHARVEST_API_KEYS", "k1, k2 ,,k3")
	t.Setenv("NOTEHARVEST_RATE_RPS", "2.5")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Platform.BaseURL != "https://staging.note.example" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Platform.BaseURL)
	}
	if cfg.Harvest.PageDelay != 250*time.Millisecond {
		t.Errorf("PageDelay = %v", cfg.Harvest.PageDelay)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth not enabled")
	}
	if len(cfg.Auth.APIKeys) != 3 || cfg.Auth.APIKeys[0] != "k1" || cfg.Auth.APIKeys[2] != "k3" {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("NOTEHARVEST_PORT", "not-a-number")
	t.Setenv("NOTEHARVEST_PAGE_DELAY", "soon")
	t.Setenv("NOTEHARVEST_HEADLESS", "maybe")

	cfg := Load()
	if cfg.Server.Port != 8080 || cfg.Harvest.PageDelay != time.Second || !cfg.Browser.Headless {
		t.Errorf("bad values did not fall back: %+v", cfg)
	}
}
