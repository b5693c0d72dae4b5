package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadRecommendationDefaults(t *testing.T) {
	t.Setenv("RECOMMENDATION_TTL_SECONDS", "not-a-number")
	t.Setenv("RECOMMENDATION_COUNT", "0")

	cfg := Load()
	if cfg.RecommendationTTLSeconds != 300 {
		t.Fatalf("expected TTL fallback 300, got %d", cfg.RecommendationTTLSeconds)
	}
	if cfg.RecommendationCount != 6 {
		t.Fatalf("expected count fallback 6, got %d", cfg.RecommendationCount)
	}
}
