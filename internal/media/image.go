package media

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/text/encoding/unicode"

	"media-index/internal/logging"
)

// Rating is the Windows star rating tag (0x4746) in IFD0. goexif does not
// map it, so ratingParser loads it next to the standard fields.
const Rating exif.FieldName = "Rating"

type ratingParser struct{}

func (ratingParser) Parse(x *exif.Exif) error {
	if len(x.Tiff.Dirs) > 0 {
		x.LoadTags(x.Tiff.Dirs[0], map[uint16]exif.FieldName{0x4746: Rating}, false)
	}
	return nil
}

func init() {
	exif.RegisterParsers(ratingParser{})
}

// EXIF orientation values that imply a clockwise rotation. Mirrored
// orientations (2, 4, 5, 7) are treated as unrotated.
var exifRotation = map[int]int{
	3: 180,
	6: 270,
	8: 90,
}

// ExtractImage reads dimensions and EXIF/IPTC metadata from an image file.
// Missing or unparsable EXIF data is not an error.
func ExtractImage(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	md := &Metadata{}

	cfg, format, err := image.DecodeConfig(f)
	switch {
	case err == nil:
		md.Width, md.Height = cfg.Width, cfg.Height
	case errors.Is(err, image.ErrFormat):
		logging.Debug("No decoder for %s, dimensions unknown", path)
	default:
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	readEXIF(f, path, md)

	if format == "jpeg" {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		keywords, err := ReadIPTCKeywords(f)
		if err != nil {
			logging.Debug("Ignoring IPTC data in %s: %v", path, err)
		}
		md.Tags = append(keywords, md.Tags...)
	}

	return md, nil
}

func readEXIF(r io.Reader, path string, md *Metadata) {
	x, err := exif.Decode(r)
	if x == nil {
		if err != nil && !errors.Is(err, io.EOF) {
			logging.Debug("No EXIF data in %s: %v", path, err)
		}
		return
	}
	if err != nil && exif.IsCriticalError(err) {
		logging.Debug("Corrupt EXIF data in %s: %v", path, err)
		return
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			md.Rotation = exifRotation[v]
		}
	}

	if dt, err := x.DateTime(); err == nil {
		md.CreationDate = dt
	} else if !exif.IsTagNotPresentError(err) {
		logging.Warn("Invalid creation time in %s: %v", path, err)
	}

	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if s, err := tag.StringVal(); err == nil {
			md.Description = s
		}
	}

	if tag, err := x.Get(Rating); err == nil {
		if v, err := tag.Int(0); err == nil {
			md.Rating = &v
		}
	}

	if lat, long, err := x.LatLong(); err == nil {
		md.Latitude = floatPtr(lat)
		md.Longitude = floatPtr(long)
	}

	if alt, ok := altitude(x); ok {
		md.Altitude = floatPtr(alt)
	}

	for _, field := range []exif.FieldName{exif.XPKeywords, exif.XPSubject} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		md.Tags = append(md.Tags, decodeXPKeywords(tag.Val)...)
	}
}

func altitude(x *exif.Exif) (float64, bool) {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	alt := float64(num) / float64(den)
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			alt = -alt
		}
	}
	return alt, true
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeXPKeywords decodes the UTF-16LE, semicolon separated keyword list
// written by Windows Explorer and most photo managers.
func decodeXPKeywords(raw []byte) []string {
	if len(raw) < 2 {
		return nil
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return nil
	}
	s := strings.TrimRight(string(decoded), "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}
