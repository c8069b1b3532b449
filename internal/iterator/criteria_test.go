package iterator

import (
	"errors"
	"testing"

	"media-index/internal/mediatypes"
	"media-index/internal/repository"
)

func TestParseCriteria(t *testing.T) {
	t.Run("full", func(t *testing.T) {
		c, err := ParseCriteria(map[string]any{
			"repositories":  []any{"photos", "videos"},
			"kinds":         "image",
			"orientation":   "portrait",
			"tags":          []string{"Beach", "sea"},
			"excluded_tags": "private",
			"most_recent":   50,
			"order":         "smart",
			"smart_limit":   float64(20),
			"smart_time":    1.5,
		})
		if err != nil {
			t.Fatalf("ParseCriteria failed: %v", err)
		}
		if len(c.Repositories) != 2 || c.Repositories[1] != "videos" {
			t.Errorf("Repositories = %v", c.Repositories)
		}
		if len(c.Kinds) != 1 || c.Kinds[0] != mediatypes.KindImage {
			t.Errorf("Kinds = %v", c.Kinds)
		}
		if c.Orientation != mediatypes.OrientationPortrait {
			t.Errorf("Orientation = %q", c.Orientation)
		}
		if len(c.Tags) != 2 || len(c.ExcludedTags) != 1 || c.ExcludedTags[0] != "private" {
			t.Errorf("Tags = %v, ExcludedTags = %v", c.Tags, c.ExcludedTags)
		}
		if c.MostRecent != 50 || c.Order != mediatypes.OrderSmart || c.SmartLimit != 20 || c.SmartTime != 1.5 {
			t.Errorf("unexpected criteria %+v", c)
		}
	})

	t.Run("types alias", func(t *testing.T) {
		c, err := ParseCriteria(map[string]any{"types": []any{"image", "video"}})
		if err != nil {
			t.Fatal(err)
		}
		if len(c.Kinds) != 2 {
			t.Errorf("Kinds = %v, want image and video", c.Kinds)
		}
	})

	t.Run("empty selects everything", func(t *testing.T) {
		c, err := ParseCriteria(nil)
		if err != nil {
			t.Fatal(err)
		}
		if c.Order != mediatypes.OrderNone || len(c.Tags) != 0 {
			t.Errorf("unexpected criteria %+v", c)
		}
	})

	invalid := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{name: "unknown key", raw: map[string]any{"colour": "red"}, field: "colour"},
		{name: "most_recent as string", raw: map[string]any{"most_recent": "3"}, field: "most_recent"},
		{name: "most_recent zero", raw: map[string]any{"most_recent": 0}, field: "most_recent"},
		{name: "most_recent fraction", raw: map[string]any{"most_recent": 2.5}, field: "most_recent"},
		{name: "bad order", raw: map[string]any{"order": "size"}, field: "order"},
		{name: "bad direction", raw: map[string]any{"order": "name", "direction": "up"}, field: "direction"},
		{name: "bad kind", raw: map[string]any{"kinds": "audio"}, field: "kinds"},
		{name: "bad orientation", raw: map[string]any{"orientation": "square"}, field: "orientation"},
		{name: "tags not strings", raw: map[string]any{"tags": []any{"a", 1}}, field: "tags"},
		{name: "empty tag list", raw: map[string]any{"tags": []any{}}, field: "tags"},
		{name: "blank tag", raw: map[string]any{"excluded_tags": []string{" "}}, field: "excluded_tags"},
		{name: "kinds and types", raw: map[string]any{"kinds": "image", "types": "video"}, field: "types"},
		{name: "smart without limit", raw: map[string]any{"order": "smart", "smart_time": 2}, field: "smart_limit"},
		{name: "smart without time", raw: map[string]any{"order": "smart", "smart_limit": 2}, field: "smart_time"},
		{name: "negative smart time", raw: map[string]any{"smart_time": -1}, field: "smart_time"},
		{name: "repositories as number", raw: map[string]any{"repositories": 7}, field: "repositories"},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria(tt.raw)
			var verr *repository.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ParseCriteria(%v) error = %v, want validation error", tt.raw, err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantErr  bool
	}{
		{name: "zero value", criteria: Criteria{}},
		{name: "date descending", criteria: Criteria{Order: mediatypes.OrderDate, Direction: mediatypes.Descending}},
		{name: "smart complete", criteria: Criteria{Order: mediatypes.OrderSmart, SmartLimit: 5, SmartTime: 24}},
		{name: "smart incomplete", criteria: Criteria{Order: mediatypes.OrderSmart, SmartLimit: 5}, wantErr: true},
		{name: "negative most recent", criteria: Criteria{MostRecent: -1}, wantErr: true},
		{name: "unknown kind", criteria: Criteria{Kinds: []mediatypes.Kind{mediatypes.KindUnknown}}, wantErr: true},
		{name: "empty repository id", criteria: Criteria{Repositories: []string{""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !repository.IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestCriteriaString(t *testing.T) {
	c := Criteria{Tags: []string{"x"}, Order: mediatypes.OrderName, Direction: mediatypes.Ascending}
	if got, want := c.String(), "tags=[x] order=name direction=ascending"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Criteria{}).String(); got != "order=none" {
		t.Errorf("String() = %q, want order=none", got)
	}
}
