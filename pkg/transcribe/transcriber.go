// Package transcribe converts audio files into time-stamped transcript
// segments via a Whisper-style speech-to-text API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oguzatay/smartmeet/pkg/logging"
)

// Segment is one time-stamped window of transcribed speech.
type Segment struct {
	// Start and End are offsets into the recording, in seconds.
	Start float64
	End   float64
	Text  string
}

// Transcriber turns an audio file into an ordered, non-overlapping
// sequence of segments ascending by start time.
//
// A missing file or total provider failure yields an empty slice, not an
// error: an empty transcript is a valid (if uninteresting) outcome and
// the pipeline must treat it as such.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) []Segment
}

const defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// WhisperConfig configures the Whisper HTTP client.
type WhisperConfig struct {
	APIKey string

	// BaseURL overrides the API host for OpenAI-compatible providers
	// (e.g. Groq). The audio/transcriptions path is appended.
	BaseURL string

	// Model is the speech-to-text model identifier.
	Model string

	// Language hints the spoken language (ISO 639-1), optional.
	Language string

	// Timeout bounds each transcription call.
	Timeout time.Duration
}

// Whisper is a Transcriber backed by the OpenAI-compatible
// audio/transcriptions endpoint, requesting verbose JSON for
// per-segment timestamps.
type Whisper struct {
	config     WhisperConfig
	httpClient *http.Client
	logger     logging.Logger
}

// NewWhisper creates a Whisper transcription client.
func NewWhisper(cfg WhisperConfig, logger logging.Logger) *Whisper {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Whisper{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(logging.F("component", "transcriber")),
	}
}

// verboseResponse is the verbose_json response shape.
type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe sends the file and returns its segments in transcript order.
// If the provider returns a whole-file result with no segmentation, one
// segment spanning [0, duration] is synthesized.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) []Segment {
	f, err := os.Open(audioPath)
	if err != nil {
		w.logger.Warn("Audio file unavailable for transcription",
			logging.F("path", audioPath), logging.Err(err))
		return nil
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := w.writeForm(mw, f, filepath.Base(audioPath)); err != nil {
		w.logger.Warn("Failed to build transcription request", logging.Err(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint(), &body)
	if err != nil {
		w.logger.Warn("Failed to build transcription request", logging.Err(err))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Warn("Transcription provider unreachable", logging.Err(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		w.logger.Warn("Transcription provider returned error",
			logging.F("status", resp.StatusCode),
			logging.F("body", string(raw)))
		return nil
	}

	var parsed verboseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		w.logger.Warn("Failed to decode transcription response", logging.Err(err))
		return nil
	}

	return normalize(parsed)
}

func (w *Whisper) writeForm(mw *multipart.Writer, f io.Reader, filename string) error {
	if err := mw.WriteField("model", w.config.Model); err != nil {
		return err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return err
	}
	if w.config.Language != "" {
		if err := mw.WriteField("language", w.config.Language); err != nil {
			return err
		}
	}

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	return mw.Close()
}

func (w *Whisper) endpoint() string {
	if w.config.BaseURL == "" {
		return defaultEndpoint
	}
	return strings.TrimSuffix(w.config.BaseURL, "/") + "/audio/transcriptions"
}

// normalize converts the provider response into ordered segments.
func normalize(resp verboseResponse) []Segment {
	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil
		}
		// Whole-file result with no segmentation: synthesize one segment.
		end := resp.Duration
		if end <= 0 {
			end = 1
		}
		return []Segment{{Start: 0, End: end, Text: text}}
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return segments
}

var _ Transcriber = (*Whisper)(nil)

// String implements fmt.Stringer for logging.
func (w *Whisper) String() string {
	return fmt.Sprintf("whisper(%s)", w.config.Model)
}
