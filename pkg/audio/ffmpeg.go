package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CanonicalExt is the container format the pipeline operates on.
const CanonicalExt = ".wav"

// IsCanonical reports whether the file is already in the canonical format.
func IsCanonical(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CanonicalExt)
}

// Normalize converts an audio file to 16 kHz mono WAV next to the input
// file and returns the new path.
//
// ffmpeg -y -i input -ac 1 -ar 16000 -f wav output
func Normalize(ctx context.Context, ffmpegPath, inputPath string) (string, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	out := base + CanonicalExt

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-y", "-i", inputPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return out, nil
}
