package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		input    any
		expected string
	}{
		{
			name:     "map",
			code:     http.StatusOK,
			input:    map[string]int{"records": 3},
			expected: `{"records":3}`,
		},
		{
			name:     "slice with code",
			code:     http.StatusAccepted,
			input:    []string{"photos", "videos"},
			expected: `["photos","videos"]`,
		},
		{
			name:     "nil",
			code:     http.StatusOK,
			input:    nil,
			expected: `null`,
		},
		{
			name: "response struct",
			code: http.StatusOK,
			input: RepositoryStatus{
				ID:        "photos",
				Records:   2,
				LastBuild: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Scheduled: true,
			},
			expected: `{"id":"photos","records":2,"lastBuild":"2024-01-02T03:04:05Z","scheduled":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.code, tt.input)

			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.expected {
				t.Errorf("body = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestWriteJSONUnsupportedValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]float64{"ratio": math.NaN()})

	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want the status sent before encoding", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected no body for an unencodable value, got %q", w.Body.String())
	}
}

func TestWriteJSONStatus(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		status       string
		message      string
		expectedBody string
	}{
		{
			name:         "started",
			code:         http.StatusAccepted,
			status:       "started",
			message:      "Re-indexing started",
			expectedBody: `{"status":"started","message":"Re-indexing started"}`,
		},
		{
			name:         "conflict",
			code:         http.StatusConflict,
			status:       "already_running",
			message:      "Indexing is already in progress",
			expectedBody: `{"status":"already_running","message":"Indexing is already in progress"}`,
		},
		{
			name:         "message omitted",
			code:         http.StatusOK,
			status:       "alive",
			expectedBody: `{"status":"alive"}`,
		},
		{
			name:         "special characters",
			code:         http.StatusOK,
			status:       `quote " and <tag>`,
			expectedBody: `{"status":"quote \" and \u003ctag\u003e"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSONStatus(w, tt.code, tt.status, tt.message)

			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.expectedBody {
				t.Errorf("body = %s, want %s", got, tt.expectedBody)
			}

			var decoded statusBody
			if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}
			if decoded.Status != tt.status {
				t.Errorf("status = %q, want %q", decoded.Status, tt.status)
			}
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusNotFound, "Playlist not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"Playlist not found"}` {
		t.Errorf("body = %s", got)
	}
}
