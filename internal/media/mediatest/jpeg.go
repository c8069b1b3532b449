// Package mediatest builds small media files with known metadata for tests.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
	"unicode/utf16"
)

// JPEGOptions describes the pixels and EXIF/IPTC metadata of a test JPEG.
// Zero values are omitted from the file.
type JPEGOptions struct {
	Width       int
	Height      int
	DateTime    time.Time
	Orientation int
	Description string
	Rating      *int
	// Keywords are written both as IPTC keywords and as the Windows
	// XPKeywords EXIF tag.
	Keywords []string
}

// WriteJPEG writes a JPEG built from opts to path, creating parent
// directories as needed.
func WriteJPEG(t testing.TB, path string, opts JPEGOptions) {
	t.Helper()

	data, err := JPEG(opts)
	if err != nil {
		t.Fatalf("failed to build test JPEG: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// JPEG encodes a gray image of the requested size and splices an APP1 EXIF
// segment and an APP13 IPTC segment in after the SOI marker.
func JPEG(opts JPEGOptions) ([]byte, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 16
	}
	if h <= 0 {
		h = 8
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Gray{Y: 0})

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	body := encoded.Bytes()[2:] // drop SOI

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8})

	if tiff := buildTIFF(opts); tiff != nil {
		writeSegment(&out, 0xE1, append([]byte("Exif\x00\x00"), tiff...))
	}
	if len(opts.Keywords) > 0 {
		writeSegment(&out, 0xED, buildPhotoshopIPTC(opts.Keywords))
	}

	out.Write(body)
	return out.Bytes(), nil
}

func writeSegment(out *bytes.Buffer, marker byte, payload []byte) {
	out.Write([]byte{0xFF, marker})
	_ = binary.Write(out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	typeByte  = 1
	typeASCII = 2
	typeShort = 3
)

func buildTIFF(opts JPEGOptions) []byte {
	le := binary.LittleEndian
	var entries []ifdEntry

	ascii := func(tag uint16, s string) {
		b := append([]byte(s), 0)
		entries = append(entries, ifdEntry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b})
	}
	short := func(tag uint16, v int) {
		b := make([]byte, 2)
		le.PutUint16(b, uint16(v))
		entries = append(entries, ifdEntry{tag: tag, typ: typeShort, count: 1, data: b})
	}

	if opts.Description != "" {
		ascii(0x010E, opts.Description)
	}
	if opts.Orientation != 0 {
		short(0x0112, opts.Orientation)
	}
	if !opts.DateTime.IsZero() {
		ascii(0x0132, opts.DateTime.Format("2006:01:02 15:04:05"))
	}
	if opts.Rating != nil {
		short(0x4746, *opts.Rating)
	}
	if len(opts.Keywords) > 0 {
		units := utf16.Encode([]rune(strings.Join(opts.Keywords, ";")))
		b := make([]byte, 0, len(units)*2+2)
		for _, u := range units {
			b = le.AppendUint16(b, u)
		}
		b = append(b, 0, 0)
		entries = append(entries, ifdEntry{tag: 0x9C9E, typ: typeByte, count: uint32(len(b)), data: b})
	}

	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	var ifd, data bytes.Buffer
	dataStart := 8 + 2 + 12*len(entries) + 4

	_ = binary.Write(&ifd, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&ifd, le, e.tag)
		_ = binary.Write(&ifd, le, e.typ)
		_ = binary.Write(&ifd, le, e.count)
		if len(e.data) <= 4 {
			field := make([]byte, 4)
			copy(field, e.data)
			ifd.Write(field)
			continue
		}
		_ = binary.Write(&ifd, le, uint32(dataStart+data.Len()))
		data.Write(e.data)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	_ = binary.Write(&ifd, le, uint32(0))

	var tiff bytes.Buffer
	tiff.Write([]byte{'I', 'I', 0x2A, 0x00})
	_ = binary.Write(&tiff, le, uint32(8))
	tiff.Write(ifd.Bytes())
	tiff.Write(data.Bytes())
	return tiff.Bytes()
}

func buildPhotoshopIPTC(keywords []string) []byte {
	var iptc bytes.Buffer
	for _, kw := range keywords {
		iptc.Write([]byte{0x1C, 0x02, 0x19})
		_ = binary.Write(&iptc, binary.BigEndian, uint16(len(kw)))
		iptc.WriteString(kw)
	}
	if iptc.Len()%2 == 1 {
		iptc.WriteByte(0)
	}

	var res bytes.Buffer
	res.WriteString("Photoshop 3.0\x00")
	res.WriteString("8BIM")
	_ = binary.Write(&res, binary.BigEndian, uint16(0x0404))
	res.Write([]byte{0, 0}) // empty, padded resource name
	_ = binary.Write(&res, binary.BigEndian, uint32(iptc.Len()))
	res.Write(iptc.Bytes())
	return res.Bytes()
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
