package s3

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"

	"media-index/internal/repository"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"photos", "photos/"},
		{"/photos/2024/", "photos/2024/"},
	}
	for _, tt := range tests {
		if got := normalizePrefix(tt.in); got != tt.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileID(t *testing.T) {
	r := &Repository{prefix: "photos/"}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{key: "photos/a.jpg", want: "a.jpg", wantOK: true},
		{key: "photos/trip/b.jpg", want: "trip/b.jpg", wantOK: true},
		{key: "photos/", wantOK: false},
		{key: "photos/trip/", wantOK: false},
		{key: "photos/.hidden.jpg", wantOK: false},
		{key: "photos/.thumbs/a.jpg", wantOK: false},
		{key: "videos/a.mp4", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := r.fileID(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("fileID(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}

	if got := r.key("/trip/b.jpg"); got != "photos/trip/b.jpg" {
		t.Errorf("key() = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no such key", err: minio.ErrorResponse{Code: "NoSuchKey"}, want: true},
		{name: "status 404", err: minio.ErrorResponse{StatusCode: http.StatusNotFound}, want: true},
		{name: "wrapped", err: fmt.Errorf("stat: %w", minio.ErrorResponse{Code: "NoSuchKey"}), want: true},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(t.Context(), "s3", Config{Bucket: "media"}); !repository.IsValidation(err) {
		t.Errorf("missing endpoint: expected ValidationError, got %v", err)
	}
	if _, err := New(t.Context(), "s3", Config{Endpoint: "localhost:9000"}); !repository.IsValidation(err) {
		t.Errorf("missing bucket: expected ValidationError, got %v", err)
	}
}

// TestRepository_Bucket runs against a real S3 endpoint when one is
// configured through the environment.
func TestRepository_Bucket(t *testing.T) {
	endpoint := os.Getenv("MEDIA_INDEX_TEST_S3_ENDPOINT")
	bucket := os.Getenv("MEDIA_INDEX_TEST_S3_BUCKET")
	if testing.Short() || endpoint == "" || bucket == "" {
		t.Skip("set MEDIA_INDEX_TEST_S3_ENDPOINT and MEDIA_INDEX_TEST_S3_BUCKET to run")
	}

	r, err := New(t.Context(), "s3", Config{
		Endpoint:  endpoint,
		Bucket:    bucket,
		AccessKey: os.Getenv("MEDIA_INDEX_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("MEDIA_INDEX_TEST_S3_SECRET_KEY"),
		CacheDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Close()

	count := 0
	err = r.Enumerate(t.Context(), func(h repository.FileHandle) error {
		count++
		if _, err := r.Resolve(t.Context(), h.FileID()); err != nil {
			t.Errorf("Resolve(%s) failed: %v", h.FileID(), err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	t.Logf("enumerated %d objects", count)

	if _, err := r.Resolve(t.Context(), "definitely/not/there.jpg"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
