// Package audio discovers and probes the source file and wraps the external
// ffmpeg/ffprobe tools behind a small extraction interface.
package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Source describes the working folder's single audio file. It is probed
// once per run and read-only afterwards. A zero Duration means the duration
// is unknown.
type Source struct {
	Path       string
	Duration   float64
	SampleRate int
	Channels   int
}

var sourceExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".ogg": true, ".mp4": true, ".aac": true,
}

// FindSource locates the single audio file in dir. Zero or more than one
// candidate is an error: the working folder convention is one source plus
// its annotation files.
func FindSource(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read working folder: %w", err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", fmt.Errorf("no audio source file in %s", dir)
	default:
		return "", fmt.Errorf("expected exactly one audio source file in %s, found %d", dir, len(found))
	}
}

// Probe runs ffprobe on path and returns the source's duration and stream
// parameters. The exec step is separated from parsing so the parser can be
// tested on canned output.
func Probe(ctx context.Context, binary, path string) (Source, error) {
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Source{Path: path}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	src, err := parseProbe(out)
	if err != nil {
		return Source{Path: path}, err
	}
	src.Path = path
	return src, nil
}

func parseProbe(out []byte) (Source, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return Source{}, fmt.Errorf("ffprobe parse: %w", err)
	}

	var src Source
	src.Duration, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	for _, s := range probe.Streams {
		if s.CodecType == "audio" {
			src.SampleRate, _ = strconv.Atoi(s.SampleRate)
			src.Channels = s.Channels
			break
		}
	}
	return src, nil
}

// Request describes one clip extraction.
type Request struct {
	SourcePath string
	Start      float64
	End        float64
	SampleRate int
	Channels   int
	OutPath    string
}

// Service slices one clip out of a source file, resampled to the requested
// format. Implementations write OutPath or return an error.
type Service interface {
	Extract(ctx context.Context, req Request) error
}

// FFmpeg extracts clips by running the ffmpeg binary.
type FFmpeg struct {
	Binary string
}

// Extract runs ffmpeg with a fast seek to the span start and re-encodes the
// slice as 16-bit PCM at the requested rate and channel count.
func (f *FFmpeg) Extract(ctx context.Context, req Request) error {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary, extractArgs(req)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract failed: %w\n%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func extractArgs(req Request) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(req.Start),
		"-t", formatSeconds(req.End - req.Start),
		"-i", req.SourcePath,
		"-ar", strconv.Itoa(req.SampleRate),
		"-ac", strconv.Itoa(req.Channels),
		"-sample_fmt", "s16",
		req.OutPath,
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
