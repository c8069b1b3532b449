package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"media-index/internal/logging"
)

var ffprobePath = "ffprobe"

// SetFFprobePath overrides the ffprobe binary used for video probing.
func SetFFprobePath(path string) {
	if path != "" {
		ffprobePath = path
	}
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Tags         map[string]string `json:"tags"`
	SideDataList []struct {
		Rotation *int `json:"rotation"`
	} `json:"side_data_list"`
}

// ExtractVideo probes a video file with ffprobe.
func ExtractVideo(ctx context.Context, path string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.Bytes(), path)
}

// rotate tag values are counter-clockwise; rotations are stored clockwise.
var rotateTagRotation = map[int]int{
	0:   0,
	90:  270,
	180: 180,
	270: 90,
}

func parseProbeOutput(data []byte, path string) (*Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	md := &Metadata{}

	var video *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			video = &out.Streams[i]
			break
		}
	}
	if video == nil {
		logging.Debug("No video stream in %s", path)
		return md, nil
	}

	md.Width, md.Height = video.Width, video.Height

	if rotate, ok := video.Tags["rotate"]; ok {
		if v, err := strconv.Atoi(rotate); err == nil {
			md.Rotation = rotateTagRotation[normalizeDegrees(v)]
		}
	} else {
		// Newer muxers store a display matrix instead of the rotate tag.
		// Its rotation is the negated rotate value.
		for _, sd := range video.SideDataList {
			if sd.Rotation != nil {
				md.Rotation = rotateTagRotation[normalizeDegrees(-*sd.Rotation)]
				break
			}
		}
	}

	created := video.Tags["creation_time"]
	if created == "" {
		created = out.Format.Tags["creation_time"]
	}
	if created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			logging.Warn("Invalid creation time format %q in %s", created, path)
		} else {
			md.CreationDate = t
		}
	}

	return md, nil
}

func normalizeDegrees(v int) int {
	v %= 360
	if v < 0 {
		v += 360
	}
	return v
}
