package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"media-index/internal/mediatypes"
)

// Metadata holds the attributes extracted from a file's content.
type Metadata struct {
	Width       int
	Height      int
	Rotation    int
	Orientation mediatypes.Orientation
	// CreationDate is zero when the content carries no capture date.
	CreationDate time.Time
	Description  string
	Rating       *int
	Latitude     *float64
	Longitude    *float64
	Altitude     *float64
	Tags         []string
}

// Extract reads metadata from the local file at path according to kind.
// Files of unknown kind yield empty metadata.
func Extract(ctx context.Context, path string, kind mediatypes.Kind) (*Metadata, error) {
	var (
		md  *Metadata
		err error
	)

	switch kind {
	case mediatypes.KindImage:
		md, err = ExtractImage(path)
	case mediatypes.KindVideo:
		md, err = ExtractVideo(ctx, path)
	default:
		md = &Metadata{}
	}
	if err != nil {
		return nil, err
	}

	md.finalize()
	return md, nil
}

// finalize normalizes rotation, derives orientation and cleans up tags.
func (m *Metadata) finalize() {
	if !mediatypes.IsValidRotation(m.Rotation) {
		m.Rotation = 0
	}
	if m.Width < 0 {
		m.Width = 0
	}
	if m.Height < 0 {
		m.Height = 0
	}
	m.Orientation = mediatypes.OrientationFor(m.Width, m.Height, m.Rotation)
	m.Description = strings.TrimSpace(m.Description)
	m.Tags = NormalizeTags(m.Tags)
}

// NormalizeTags trims tag names, drops empty ones and removes exact
// duplicates while keeping first-seen order. Case is preserved: "Beach"
// and "beach" are distinct tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// String returns a short description for log lines.
func (m *Metadata) String() string {
	date := "unknown"
	if !m.CreationDate.IsZero() {
		date = m.CreationDate.Format(time.RFC3339)
	}
	return fmt.Sprintf("%dx%d rot=%d %s date=%s tags=%v", m.Width, m.Height, m.Rotation, m.Orientation, date, m.Tags)
}

func floatPtr(v float64) *float64 { return &v }
