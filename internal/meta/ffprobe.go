package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/franz/music-catalog/internal/util"
)

// probeOutput is the part of `ffprobe -print_format json` we read
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format *struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration asks ffprobe for the duration of an audio file in
// milliseconds. Returns util.ErrNotFound when ffprobe is not installed.
func ProbeDuration(ctx context.Context, path string) (int, error) {
	if !FFprobeAvailable() {
		return 0, util.ErrNotFound
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("ffprobe failed: %s", string(exitErr.Stderr))
		}
		return 0, fmt.Errorf("ffprobe execution failed: %w", err)
	}
	return parseProbeDuration(output)
}

// parseProbeDuration prefers the container duration and falls back to the
// first audio stream. ffprobe reports seconds as strings, "N/A" when unknown.
func parseProbeDuration(output []byte) (int, error) {
	var info probeOutput
	if err := json.Unmarshal(output, &info); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	candidates := make([]string, 0, 2)
	if info.Format != nil {
		candidates = append(candidates, info.Format.Duration)
	}
	for _, s := range info.Streams {
		if s.CodecType == "audio" {
			candidates = append(candidates, s.Duration)
			break
		}
	}

	for _, c := range candidates {
		secs, err := strconv.ParseFloat(c, 64)
		if err != nil || secs <= 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
			continue
		}
		return int(math.Round(secs * 1000)), nil
	}
	return 0, fmt.Errorf("ffprobe reported no duration")
}

// FFprobeAvailable checks if ffprobe is available in PATH
func FFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}
