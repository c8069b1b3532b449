package media

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	markerSOI   = 0xD8
	markerSOS   = 0xDA
	markerEOI   = 0xD9
	markerAPP13 = 0xED

	iptcResourceID  = 0x0404
	iptcTagMarker   = 0x1C
	iptcRecordApp   = 2
	iptcDataSetKeyw = 25
)

var photoshopHeader = []byte("Photoshop 3.0\x00")

// ReadIPTCKeywords returns the IPTC keywords (dataset 2:25) stored in the
// Photoshop APP13 segment of a JPEG stream. A JPEG without IPTC data
// yields no keywords and no error.
func ReadIPTCKeywords(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil {
		return nil, err
	}
	if soi[0] != 0xFF || soi[1] != markerSOI {
		return nil, errors.New("not a JPEG stream")
	}

	for {
		marker, err := nextMarker(br)
		if err != nil {
			return nil, err
		}
		if marker == markerSOS || marker == markerEOI {
			return nil, nil
		}
		if (marker >= 0xD0 && marker <= 0xD7) || marker == 0x01 {
			continue // markers without a length
		}

		var length uint16
		if err := binary.Read(br, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		if length < 2 {
			return nil, fmt.Errorf("invalid segment length %d", length)
		}
		payload := make([]byte, int(length)-2)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, err
		}

		if marker == markerAPP13 && bytes.HasPrefix(payload, photoshopHeader) {
			return parsePhotoshopResources(payload[len(photoshopHeader):])
		}
	}
}

func nextMarker(br *bufio.Reader) (byte, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker, got 0x%02X", b)
	}
	for {
		b, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF { // fill bytes
			return b, nil
		}
	}
}

func parsePhotoshopResources(data []byte) ([]string, error) {
	for len(data) >= 12 {
		if !bytes.Equal(data[:4], []byte("8BIM")) {
			return nil, errors.New("malformed image resource block")
		}
		id := binary.BigEndian.Uint16(data[4:6])

		// Pascal string name, padded so length byte plus text is even.
		nameLen := int(data[6])
		off := 7 + nameLen
		if (nameLen+1)%2 == 1 {
			off++
		}
		if off+4 > len(data) {
			return nil, errors.New("truncated image resource block")
		}
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+size > len(data) {
			return nil, errors.New("truncated image resource data")
		}

		if id == iptcResourceID {
			return parseIPTCKeywords(data[off : off+size]), nil
		}

		off += size
		if size%2 == 1 {
			off++
		}
		if off > len(data) {
			break
		}
		data = data[off:]
	}
	return nil, nil
}

func parseIPTCKeywords(data []byte) []string {
	var keywords []string
	for len(data) >= 5 && data[0] == iptcTagMarker {
		record, dataset := data[1], data[2]
		size := int(binary.BigEndian.Uint16(data[3:5]))
		if size&0x8000 != 0 || 5+size > len(data) {
			break // extended datasets are not used for keywords
		}
		if record == iptcRecordApp && dataset == iptcDataSetKeyw {
			keywords = append(keywords, string(data[5:5+size]))
		}
		data = data[5+size:]
	}
	return keywords
}
