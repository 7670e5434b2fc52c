package video

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info is what the pipeline needs from a video container: how long it
// plays and how many frames pass per second.
type Info struct {
	Duration float64 // seconds; 0 when the container is undecodable
	FPS      float64
}

// Probe inspects a video file. Decoding is an opaque capability; the
// default implementation shells out to ffprobe.
type Probe interface {
	Probe(ctx context.Context, path string) (Info, error)
}

type FFProbe struct {
	binary string
}

func NewFFProbe(binary string) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{binary: binary}
}

type ffprobeOutput struct {
	Streams []struct {
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,nb_frames",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var decoded ffprobeOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := Info{}
	if len(decoded.Streams) > 0 {
		info.FPS = parseRate(decoded.Streams[0].RFrameRate)
	}
	if info.FPS <= 0 {
		// Undecodable frame rate reports as a zero-length video.
		return Info{}, nil
	}

	if d, err := strconv.ParseFloat(decoded.Format.Duration, 64); err == nil && d > 0 {
		info.Duration = d
	} else if len(decoded.Streams) > 0 {
		if frames, err := strconv.ParseFloat(decoded.Streams[0].NbFrames, 64); err == nil && frames > 0 {
			info.Duration = frames / info.FPS
		}
	}
	return info, nil
}

// parseRate converts ffprobe's rational frame rate ("30000/1001") to
// a float. Malformed or zero-denominator rates yield 0.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
