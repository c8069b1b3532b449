package iterator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"media-index/internal/mediatypes"
	"media-index/internal/repository"
)

// Criteria select and order a sub-population of the index. The zero value
// selects everything in insertion order.
type Criteria struct {
	Repositories []string               `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Kinds        []mediatypes.Kind      `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	Orientation  mediatypes.Orientation `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Tags         []string               `json:"tags,omitempty" yaml:"tags,omitempty"`
	ExcludedTags []string               `json:"excludedTags,omitempty" yaml:"excluded_tags,omitempty"`

	// MostRecent keeps the N newest records, plus any sharing the date of
	// the N-th. Zero disables the filter.
	MostRecent int                  `json:"mostRecent,omitempty" yaml:"most_recent,omitempty"`
	Order      mediatypes.Order     `json:"order,omitempty" yaml:"order,omitempty"`
	Direction  mediatypes.Direction `json:"direction,omitempty" yaml:"direction,omitempty"`

	// SmartLimit and SmartTime are required for smart order. SmartTime is
	// the largest gap in hours between consecutive files.
	SmartLimit int     `json:"smartLimit,omitempty" yaml:"smart_limit,omitempty"`
	SmartTime  float64 `json:"smartTime,omitempty" yaml:"smart_time,omitempty"`
}

// Keys accepted by ParseCriteria. "types" is an alias of "kinds".
const (
	keyRepositories = "repositories"
	keyKinds        = "kinds"
	keyTypes        = "types"
	keyOrientation  = "orientation"
	keyTags         = "tags"
	keyExcludedTags = "excluded_tags"
	keyMostRecent   = "most_recent"
	keyOrder        = "order"
	keyDirection    = "direction"
	keySmartLimit   = "smart_limit"
	keySmartTime    = "smart_time"
)

var validKeys = map[string]bool{
	keyRepositories: true,
	keyKinds:        true,
	keyTypes:        true,
	keyOrientation:  true,
	keyTags:         true,
	keyExcludedTags: true,
	keyMostRecent:   true,
	keyOrder:        true,
	keyDirection:    true,
	keySmartLimit:   true,
	keySmartTime:    true,
}

// ParseCriteria converts configuration-style input, as decoded from YAML
// or JSON, into Criteria. A single string is accepted where a list is
// expected. The result is validated.
func ParseCriteria(raw map[string]any) (Criteria, error) {
	var c Criteria

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		if !validKeys[key] {
			return Criteria{}, repository.Invalid(key, nil, "unknown criterion")
		}

		var err error
		switch key {
		case keyRepositories:
			c.Repositories, err = stringSet(key, value)
		case keyKinds, keyTypes:
			if _, ok := raw[keyKinds]; ok && key == keyTypes {
				return Criteria{}, repository.Invalid(key, nil, "cannot be combined with kinds")
			}
			var kinds []string
			kinds, err = stringSet(key, value)
			for _, k := range kinds {
				kind, ok := mediatypes.ParseKind(k)
				if !ok {
					return Criteria{}, repository.Invalid(key, k, "must be image or video")
				}
				c.Kinds = append(c.Kinds, kind)
			}
		case keyOrientation:
			var s string
			s, err = str(key, value)
			c.Orientation = mediatypes.Orientation(s)
		case keyTags:
			c.Tags, err = stringSet(key, value)
		case keyExcludedTags:
			c.ExcludedTags, err = stringSet(key, value)
		case keyMostRecent:
			c.MostRecent, err = positiveInt(key, value)
		case keyOrder:
			var s string
			s, err = str(key, value)
			c.Order = mediatypes.Order(s)
		case keyDirection:
			var s string
			s, err = str(key, value)
			c.Direction = mediatypes.Direction(s)
		case keySmartLimit:
			c.SmartLimit, err = positiveInt(key, value)
		case keySmartTime:
			c.SmartTime, err = positiveNumber(key, value)
		}
		if err != nil {
			return Criteria{}, err
		}
	}

	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Validate checks value ranges and that smart order has its companions.
func (c Criteria) Validate() error {
	if err := nonEmpty(keyRepositories, c.Repositories); err != nil {
		return err
	}
	for _, k := range c.Kinds {
		if _, ok := mediatypes.ParseKind(string(k)); !ok {
			return repository.Invalid(keyKinds, string(k), "must be image or video")
		}
	}
	if c.Orientation != "" {
		if _, ok := mediatypes.ParseOrientation(string(c.Orientation)); !ok {
			return repository.Invalid(keyOrientation, string(c.Orientation), "must be landscape or portrait")
		}
	}
	if err := nonEmpty(keyTags, c.Tags); err != nil {
		return err
	}
	if err := nonEmpty(keyExcludedTags, c.ExcludedTags); err != nil {
		return err
	}
	if c.MostRecent < 0 {
		return repository.Invalid(keyMostRecent, c.MostRecent, "must be greater than 0")
	}
	if _, ok := mediatypes.ParseOrder(string(c.Order)); !ok {
		return repository.Invalid(keyOrder, string(c.Order), "must be name, date, random or smart")
	}
	if c.Direction != "" {
		if _, ok := mediatypes.ParseDirection(string(c.Direction)); !ok {
			return repository.Invalid(keyDirection, string(c.Direction), "must be ascending or descending")
		}
	}
	if c.SmartLimit < 0 {
		return repository.Invalid(keySmartLimit, c.SmartLimit, "must be greater than 0")
	}
	if c.SmartTime < 0 || math.IsNaN(c.SmartTime) || math.IsInf(c.SmartTime, 0) {
		return repository.Invalid(keySmartTime, c.SmartTime, "must be greater than 0")
	}
	if c.Order == mediatypes.OrderSmart {
		if c.SmartLimit == 0 {
			return repository.Invalid(keySmartLimit, nil, "required for smart order")
		}
		if c.SmartTime == 0 {
			return repository.Invalid(keySmartTime, nil, "required for smart order")
		}
	}
	return nil
}

// orderLabel is the metric label of the order.
func (c Criteria) orderLabel() string {
	if c.Order == mediatypes.OrderNone {
		return "none"
	}
	return string(c.Order)
}

func (c Criteria) String() string {
	var parts []string
	add := func(k string, v any) { parts = append(parts, fmt.Sprintf("%s=%v", k, v)) }
	if len(c.Repositories) > 0 {
		add(keyRepositories, c.Repositories)
	}
	if len(c.Kinds) > 0 {
		add(keyKinds, c.Kinds)
	}
	if c.Orientation != "" {
		add(keyOrientation, c.Orientation)
	}
	if len(c.Tags) > 0 {
		add(keyTags, c.Tags)
	}
	if len(c.ExcludedTags) > 0 {
		add(keyExcludedTags, c.ExcludedTags)
	}
	if c.MostRecent > 0 {
		add(keyMostRecent, c.MostRecent)
	}
	add(keyOrder, c.orderLabel())
	if c.Direction != "" {
		add(keyDirection, c.Direction)
	}
	if c.Order == mediatypes.OrderSmart {
		add(keySmartLimit, c.SmartLimit)
		add(keySmartTime, c.SmartTime)
	}
	return strings.Join(parts, " ")
}

func nonEmpty(key string, values []string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return repository.Invalid(key, v, "must not contain empty values")
		}
	}
	return nil
}

func str(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", repository.Invalid(key, value, fmt.Sprintf("must be a string, not %T", value))
	}
	if s == "" {
		return "", repository.Invalid(key, value, "must not be empty")
	}
	return s, nil
}

// stringSet accepts a string or a list of strings.
func stringSet(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil, repository.Invalid(key, value, "must not be empty")
		}
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, repository.Invalid(key, nil, "must not be empty")
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return nil, repository.Invalid(key, nil, "must not be empty")
		}
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, repository.Invalid(key, item, fmt.Sprintf("must contain strings, not %T", item))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, repository.Invalid(key, value, fmt.Sprintf("must be a string or a list of strings, not %T", value))
}

// positiveInt accepts integer types and integral floats, as produced by
// JSON decoding.
func positiveInt(key string, value any) (int, error) {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case uint64:
		if v > math.MaxInt32 {
			return 0, repository.Invalid(key, value, "is too large")
		}
		n = int(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, repository.Invalid(key, value, "must be an integer")
		}
		n = int(v)
	default:
		return 0, repository.Invalid(key, value, fmt.Sprintf("must be an integer, not %T", value))
	}
	if n <= 0 {
		return 0, repository.Invalid(key, value, "must be greater than 0")
	}
	return n, nil
}

func positiveNumber(key string, value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	default:
		return 0, repository.Invalid(key, value, fmt.Sprintf("must be a number, not %T", value))
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, repository.Invalid(key, value, "must be greater than 0")
	}
	return f, nil
}
