package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind represents the kind of content a file holds.
type Kind string

const (
	// KindUnknown is a file whose extension is not a recognized media format.
	KindUnknown Kind = "unknown"
	// KindImage represents an image file.
	KindImage Kind = "image"
	// KindVideo represents a video file.
	KindVideo Kind = "video"
)

// Orientation of content after rotation has been applied.
type Orientation string

const (
	// OrientationLandscape is content at least as wide as it is high.
	OrientationLandscape Orientation = "landscape"
	// OrientationPortrait is content higher than it is wide.
	OrientationPortrait Orientation = "portrait"
)

// Order specifies how a selection is traversed.
type Order string

// Direction specifies the direction of name and date ordering.
type Direction string

const (
	// OrderNone keeps storage order.
	OrderNone Order = ""
	// OrderName sorts by name, case-insensitively.
	OrderName Order = "name"
	// OrderDate sorts by creation date.
	OrderDate Order = "date"
	// OrderRandom shuffles the selection once.
	OrderRandom Order = "random"
	// OrderSmart walks a contiguous run of files from a random anchor.
	OrderSmart Order = "smart"

	// Ascending sorts in ascending order.
	Ascending Direction = "ascending"
	// Descending sorts in descending order.
	Descending Direction = "descending"
)

// Valid rotations in degrees, clockwise.
var validRotations = map[int]bool{0: true, 90: true, 180: true, 270: true}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".mts":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".mts":  "video/mp2t",
}

// GetKind returns the Kind for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
func GetKind(ext string) Kind {
	if ImageExtensions[ext] {
		return KindImage
	}
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindUnknown
}

// KindOf returns the Kind of a file name or path, ignoring extension case.
func KindOf(name string) Kind {
	return GetKind(strings.ToLower(filepath.Ext(name)))
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ParseKind parses a selectable kind. Unknown is not selectable.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindImage, KindVideo:
		return k, true
	}
	return KindUnknown, false
}

// ParseOrientation parses "landscape" or "portrait".
func ParseOrientation(s string) (Orientation, bool) {
	switch o := Orientation(s); o {
	case OrientationLandscape, OrientationPortrait:
		return o, true
	}
	return "", false
}

// ParseOrder parses an order name. The empty string is OrderNone.
func ParseOrder(s string) (Order, bool) {
	switch o := Order(s); o {
	case OrderNone, OrderName, OrderDate, OrderRandom, OrderSmart:
		return o, true
	}
	return OrderNone, false
}

// ParseDirection parses "ascending" or "descending".
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case Ascending, Descending:
		return d, true
	}
	return "", false
}

// IsValidRotation reports whether degrees is one of 0, 90, 180 or 270.
func IsValidRotation(degrees int) bool {
	return validRotations[degrees]
}

// OrientationFor derives the orientation of content with the given stored
// dimensions once it has been rotated clockwise by rotation degrees.
// Square content is landscape.
func OrientationFor(width, height, rotation int) Orientation {
	if rotation == 90 || rotation == 270 {
		width, height = height, width
	}
	if width >= height {
		return OrientationLandscape
	}
	return OrientationPortrait
}
