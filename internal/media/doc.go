// Package media extracts the metadata the index stores for each file.
//
// Images are measured with image.DecodeConfig and read for EXIF fields
// (orientation, capture date, description, rating, GPS position and
// Windows keywords) with goexif. JPEG IPTC keywords are read from the
// Photoshop APP13 segment. Videos are probed with ffprobe.
//
// Extraction never guesses: fields that are absent from the file stay at
// their zero value (or nil for the optional numeric fields) and the caller
// fills in fallbacks such as the file timestamp for the creation date.
package media
