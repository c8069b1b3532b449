package startup

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_STRING_SET", "value")
	t.Setenv("TEST_STRING_EMPTY", "")

	if got := getEnv("TEST_STRING_SET", "default"); got != "value" {
		t.Errorf("getEnv() = %q, want value", got)
	}
	if got := getEnv("TEST_STRING_EMPTY", "default"); got != "" {
		t.Errorf("getEnv() = %q, want an explicitly empty value to be kept", got)
	}
	if got := getEnv("TEST_STRING_NEVER_SET", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "unset uses default true", envValue: "", defaultValue: true, want: true},
		{name: "unset uses default false", envValue: "", defaultValue: false, want: false},
		{name: "true", envValue: "true", defaultValue: false, want: true},
		{name: "false", envValue: "false", defaultValue: true, want: false},
		{name: "one", envValue: "1", defaultValue: false, want: true},
		{name: "zero", envValue: "0", defaultValue: true, want: false},
		{name: "uppercase", envValue: "TRUE", defaultValue: false, want: true},
		{name: "invalid uses default", envValue: "yes", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{name: "unset uses default", envValue: "", want: 4},
		{name: "valid", envValue: "8", want: 8},
		{name: "zero", envValue: "0", want: 0},
		{name: "invalid uses default", envValue: "many", want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envValue)
			if got := getEnvInt("TEST_INT_VAR", 4); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "unset uses default", envValue: "", want: time.Hour},
		{name: "minutes", envValue: "15m", want: 15 * time.Minute},
		{name: "zero disables", envValue: "0", want: 0},
		{name: "negative uses default", envValue: "-5m", want: time.Hour},
		{name: "invalid uses default", envValue: "hourly", want: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envValue)
			if got := getEnvDuration("TEST_DURATION_VAR", time.Hour); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "health"},
		{"/", ""},
		{"/api/stats", "api/stats"},
		{"/api/playlists/{name}/next", "api/playlists"},
		{"/api", "api"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRouteGroup(tt.path); got != tt.want {
				t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestValueOrNone(t *testing.T) {
	if got := valueOrNone(""); got != "(none)" {
		t.Errorf("valueOrNone(\"\") = %q", got)
	}
	if got := workersString(0); got != "auto" {
		t.Errorf("workersString(0) = %q", got)
	}
	if got := workersString(3); got != "3" {
		t.Errorf("workersString(3) = %q", got)
	}
}
