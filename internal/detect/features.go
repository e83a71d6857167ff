package detect

import (
	"math"
	"path/filepath"

	"tapedeck/internal/media/ffprobe"
)

// Features is the per-file measurement vector the scorer works from.
type Features struct {
	Path         string
	Width        int
	Height       int
	FrameRate    float64
	Interlaced   bool
	BitrateKbps  int
	AudioStreams int
}

// extractFeatures reduces an ffprobe result to the fields the signatures
// score against. Returns false when the file has no video stream.
func extractFeatures(path string, res ffprobe.Result) (Features, bool) {
	video, ok := res.FirstVideoStream()
	if !ok {
		return Features{}, false
	}
	return Features{
		Path:         path,
		Width:        video.Width,
		Height:       video.Height,
		FrameRate:    video.FrameRate(),
		Interlaced:   video.Interlaced(),
		BitrateKbps:  int(video.BitRateBits() / 1000),
		AudioStreams: res.AudioStreamCount(),
	}, true
}

// scoreSignature scores one file against one signature and normalizes the
// result into [0,1]. The rubric weighs resolution 3.0 (half credit within
// 50px), frame rate 2.0 (half credit within 2fps, full within 0.5), field
// order 2.0, bitrate 1.5 (0.75 in the relaxed band), and audio layout 1.0.
func scoreSignature(sig signature, f Features) float64 {
	var score, maxScore float64

	maxScore += 3.0
	exact := false
	near := false
	for _, res := range sig.Resolutions {
		if f.Width == res.Width && f.Height == res.Height {
			exact = true
			break
		}
		if abs(f.Width-res.Width) < 50 && abs(f.Height-res.Height) < 50 {
			near = true
		}
	}
	switch {
	case exact:
		score += 3.0
	case near:
		score += 1.5
	}

	maxScore += 2.0
	if f.FrameRate > 0 {
		close, loose := false, false
		for _, rate := range sig.FrameRates {
			delta := math.Abs(f.FrameRate - rate)
			if delta < 0.5 {
				close = true
				break
			}
			if delta < 2.0 {
				loose = true
			}
		}
		switch {
		case close:
			score += 2.0
		case loose:
			score += 1.0
		}
	}

	maxScore += 2.0
	if f.Interlaced == sig.Interlaced {
		score += 2.0
	}

	maxScore += 1.5
	if f.BitrateKbps > 0 {
		low, high := sig.BitrateKbps[0], sig.BitrateKbps[1]
		switch {
		case f.BitrateKbps >= low && f.BitrateKbps <= high:
			score += 1.5
		case f.BitrateKbps > low/2 && f.BitrateKbps < low*2:
			score += 0.75
		}
	}

	maxScore += 1.0
	for _, n := range sig.AudioStreams {
		if f.AudioStreams == n {
			score += 1.0
			break
		}
	}

	return score / maxScore
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func baseName(path string) string {
	return filepath.Base(path)
}
