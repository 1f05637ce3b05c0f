package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
)

// MinCorrectableChars is the text length below which correction is not
// worth a model call.
const MinCorrectableChars = 5

// CorrectionResult carries the corrected text and whether the model
// actually changed anything.
type CorrectionResult struct {
	Text      string
	Corrected bool
}

// Corrector fixes speech-to-text artifacts in transcript segments:
// misheard words, broken punctuation, garbled names. It never changes
// meaning and never drops content.
type Corrector struct {
	completer llm.Completer
	logger    logging.Logger
}

// NewCorrector creates a Corrector on top of the given completer.
func NewCorrector(completer llm.Completer, logger logging.Logger) *Corrector {
	return &Corrector{
		completer: completer,
		logger:    logger.With(logging.F("component", "corrector")),
	}
}

// Correct returns a cleaned version of the segment text. Short inputs
// are returned unchanged without a model call, and any failure falls
// back to the original text: a raw segment beats a lost one.
func (c *Corrector) Correct(ctx context.Context, text string) CorrectionResult {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= MinCorrectableChars {
		return CorrectionResult{Text: text}
	}

	out, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You fix speech-to-text transcription errors. Output only the corrected text, nothing else.",
		Prompt: fmt.Sprintf(`Fix transcription errors in the text below: misheard words, punctuation, casing.
Do not translate, do not rephrase, do not add or remove content. If the text is already correct, return it unchanged.

Text:
%s`, trimmed),
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("Text correction failed, keeping raw segment", logging.Err(err))
		return CorrectionResult{Text: text}
	}

	corrected := strings.TrimSpace(out)
	if corrected == "" {
		return CorrectionResult{Text: text}
	}
	return CorrectionResult{Text: corrected, Corrected: corrected != trimmed}
}
