package speaker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/oguzatay/smartmeet/pkg/audio"
	"github.com/oguzatay/smartmeet/pkg/logging"
)

// Encoder turns a short audio clip into a fixed-length voice embedding.
//
// Embed never returns an error: any internal failure yields the zero-vector
// sentinel, which callers must treat as "no usable embedding" (see IsZero).
type Encoder interface {
	Embed(ctx context.Context, clip audio.PCM) []float32

	// Dim returns the embedding dimensionality.
	Dim() int
}

// HTTPEncoderConfig configures the speaker-encoder HTTP client.
type HTTPEncoderConfig struct {
	// BaseURL of the encoder service; POST {BaseURL}/embed accepts a WAV
	// body and returns {"embedding": [...]}.
	BaseURL string

	// Dim is the expected embedding dimensionality.
	Dim int

	// Timeout bounds each call.
	Timeout time.Duration
}

// HTTPEncoder calls an external speaker-encoder model service
// (an ECAPA-TDNN style encoder served over HTTP).
type HTTPEncoder struct {
	config     HTTPEncoderConfig
	httpClient *http.Client
	logger     logging.Logger
}

// NewHTTPEncoder creates an encoder client.
func NewHTTPEncoder(cfg HTTPEncoderConfig, logger logging.Logger) *HTTPEncoder {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPEncoder{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(logging.F("component", "speaker_encoder")),
	}
}

// Dim returns the configured embedding dimensionality.
func (e *HTTPEncoder) Dim() int {
	return e.config.Dim
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed downmixes the clip to mono, ships it to the encoder service, and
// returns the embedding. Any failure returns the zero-vector sentinel.
func (e *HTTPEncoder) Embed(ctx context.Context, clip audio.PCM) []float32 {
	zero := make([]float32, e.config.Dim)

	mono := clip.Mono()
	if len(mono.Samples) == 0 {
		return zero
	}

	var body bytes.Buffer
	if err := audio.EncodeWAV(&body, mono); err != nil {
		e.logger.Warn("Failed to encode clip for embedding", logging.Err(err))
		return zero
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/embed", &body)
	if err != nil {
		e.logger.Warn("Failed to build embed request", logging.Err(err))
		return zero
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Warn("Speaker encoder unreachable", logging.Err(err))
		return zero
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e.logger.Warn("Speaker encoder returned error",
			logging.F("status", resp.StatusCode),
			logging.F("body", string(raw)))
		return zero
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		e.logger.Warn("Failed to decode embedding response", logging.Err(err))
		return zero
	}

	if len(parsed.Embedding) != e.config.Dim {
		e.logger.Warn("Unexpected embedding dimensionality",
			logging.F("got", len(parsed.Embedding)),
			logging.F("want", e.config.Dim))
		return zero
	}

	return parsed.Embedding
}

// IsAvailable checks whether the encoder service responds.
func (e *HTTPEncoder) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

var _ Encoder = (*HTTPEncoder)(nil)
