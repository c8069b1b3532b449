package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-index/internal/mediatypes"
)

// ErrRecordNotFound is returned by Lookup when no record exists.
var ErrRecordNotFound = fmt.Errorf("record not found: %w", sql.ErrNoRows)

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Record is the stored metadata of one file.
type Record struct {
	ID           int64                  `json:"id"`
	RepositoryID string                 `json:"repositoryId"`
	FileID       string                 `json:"fileId"`
	Name         string                 `json:"name"`
	Kind         mediatypes.Kind        `json:"kind"`
	Width        int                    `json:"width"`
	Height       int                    `json:"height"`
	Rotation     int                    `json:"rotation"`
	Orientation  mediatypes.Orientation `json:"orientation"`
	CreationDate time.Time              `json:"creationDate"`
	Description  string                 `json:"description,omitempty"`
	Rating       *int                   `json:"rating,omitempty"`
	Latitude     *float64               `json:"latitude,omitempty"`
	Longitude    *float64               `json:"longitude,omitempty"`
	Altitude     *float64               `json:"altitude,omitempty"`
	RandomSeed   float64                `json:"randomSeed"`
	LastModified time.Time              `json:"lastModified"`
	LastUpdated  time.Time              `json:"lastUpdated"`
	Verified     bool                   `json:"verified"`
	Tags         []string               `json:"tags,omitempty"`
}

// Ref is the lightweight row materialized by iterator snapshots.
type Ref struct {
	RepositoryID string    `json:"repositoryId"`
	FileID       string    `json:"fileId"`
	CreationDate time.Time `json:"creationDate"`
	RandomSeed   float64   `json:"randomSeed"`
}

// Tag is a tag with the number of records linked to it.
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount"`
}

// IndexStats summarizes the index content.
type IndexStats struct {
	TotalRecords int            `json:"totalRecords"`
	TotalImages  int            `json:"totalImages"`
	TotalVideos  int            `json:"totalVideos"`
	TotalOther   int            `json:"totalOther"`
	TotalTags    int            `json:"totalTags"`
	Repositories map[string]int `json:"repositories"`
}
