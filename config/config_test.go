package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Server.Mode = %q, want release", cfg.Server.Mode)
	}
	if cfg.Store.Path != "pagent.db" {
		t.Errorf("Store.Path = %q, want pagent.db", cfg.Store.Path)
	}
	if cfg.Agent.Timeout != 90*time.Second {
		t.Errorf("Agent.Timeout = %v, want 90s", cfg.Agent.Timeout)
	}
	if cfg.Agent.CompressThreshold != 16384 {
		t.Errorf("Agent.CompressThreshold = %d, want 16384", cfg.Agent.CompressThreshold)
	}
	if !cfg.Auth.Enabled {
		t.Error("Auth.Enabled should default to true")
	}
	if cfg.RateLimit.RequestsPerSecond != 5.0 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 5", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAGENT_PORT", "9999")
	t.Setenv("PAGENT_AGENT_TIMEOUT", "2m")
	t.Setenv("PAGENT_AUTH_ENABLED", "false")
	t.Setenv("PAGENT_RATE_RPS", "2.5")

	cfg := Load()
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Agent.Timeout != 2*time.Minute {
		t.Errorf("Agent.Timeout = %v, want 2m", cfg.Agent.Timeout)
	}
	if cfg.Auth.Enabled {
		t.Error("Auth.Enabled should be overridden to false")
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 2.5", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGENT_PORT", "not-a-number")
	t.Setenv("PAGENT_AGENT_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
	if cfg.Agent.Timeout != 90*time.Second {
		t.Errorf("Agent.Timeout = %v, want fallback 90s", cfg.Agent.Timeout)
	}
}

func TestEnvKeyMapOr(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  map[string]string
	}{
		{
			name:  "key owner pairs",
			value: "k1:alice, k2:bob",
			want:  map[string]string{"k1": "alice", "k2": "bob"},
		},
		{
			name:  "bare key maps to itself",
			value: "solo-key",
			want:  map[string]string{"solo-key": "solo-key"},
		},
		{
			name:  "mixed with empty segments",
			value: "k1:alice,,bare",
			want:  map[string]string{"k1": "alice", "bare": "bare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PAGENT_TEST_KEYS", tt.value)
			got := envKeyMapOr("PAGENT_TEST_KEYS", nil)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, owner := range tt.want {
				if got[k] != owner {
					t.Errorf("got[%q] = %q, want %q", k, got[k], owner)
				}
			}
		})
	}
}

func TestEnvKeyMapOr_Unset(t *testing.T) {
	fallback := map[string]string{"k": "o"}
	got := envKeyMapOr("PAGENT_UNSET_TEST_KEYS", fallback)
	if len(got) != 1 || got["k"] != "o" {
		t.Errorf("expected fallback, got %v", got)
	}
}
