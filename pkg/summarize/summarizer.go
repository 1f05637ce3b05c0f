// Package summarize runs the LLM analysis passes over a meeting
// transcript: executive summary, sentiment, and task extraction.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oguzatay/smartmeet/pkg/llm"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
)

// maxTranscriptChars caps the transcript sent in a single prompt so long
// meetings stay inside the model context window.
const maxTranscriptChars = 15000

// MinAnalyzableChars is the transcript length below which analysis is
// skipped entirely; shorter texts carry no extractable content.
const MinAnalyzableChars = 10

// TaskDraft is an extracted action item before persistence.
type TaskDraft struct {
	Description string
	Assignee    string
	DueDate     *string
	Confidence  float64
}

// Summarizer runs analysis prompts against a chat completion model.
type Summarizer struct {
	completer llm.Completer
	logger    logging.Logger

	// now is swapped in tests to pin the date context given to the model.
	now func() time.Time
}

// NewSummarizer creates a Summarizer on top of the given completer.
func NewSummarizer(completer llm.Completer, logger logging.Logger) *Summarizer {
	return &Summarizer{
		completer: completer,
		logger:    logger.With(logging.F("component", "summarizer")),
		now:       time.Now,
	}
}

func clipTranscript(transcript string) string {
	if len(transcript) > maxTranscriptChars {
		return transcript[:maxTranscriptChars]
	}
	return transcript
}

// Summarize produces the four-part executive summary. A failed call or
// unparseable completion degrades to an empty summary, never an error:
// a meeting without a summary is still a completed meeting.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) meeting.ExecutiveSummary {
	out, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You are an executive assistant who writes crisp meeting summaries. Respond with JSON only.",
		Prompt: fmt.Sprintf(`Summarize the meeting transcript below as JSON with exactly these keys:
"discussions": list of the main topics discussed,
"decisions": list of decisions that were made,
"action_plan": list of agreed next steps,
"deadlines": list of any deadlines mentioned.
Use empty lists for sections with nothing to report. Answer in the language of the transcript.

Transcript:
%s`, clipTranscript(transcript)),
		JSONMode: true,
	})
	if err != nil {
		s.logger.Warn("Summary generation failed", logging.Err(err))
		return meeting.ExecutiveSummary{}
	}

	var summary meeting.ExecutiveSummary
	if err := decodeModelJSON(out, &summary); err != nil {
		s.logger.Warn("Summary completion was not parseable", logging.Err(err))
		return meeting.ExecutiveSummary{}
	}
	return summary
}

// Sentiment assesses the overall mood of the meeting. Any failure
// degrades to a neutral mid-scale reading.
func (s *Summarizer) Sentiment(ctx context.Context, transcript string) meeting.Sentiment {
	neutral := meeting.Sentiment{Mood: "neutral", Score: 5}

	out, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You assess the emotional tone of meetings. Respond with JSON only.",
		Prompt: fmt.Sprintf(`Assess the overall mood of the meeting transcript below.
Respond as JSON: {"mood": one lowercase word, "score": integer 1-10 where 1 is very negative and 10 is very positive}.

Transcript:
%s`, clipTranscript(transcript)),
		JSONMode: true,
	})
	if err != nil {
		s.logger.Warn("Sentiment analysis failed", logging.Err(err))
		return neutral
	}

	var sentiment meeting.Sentiment
	if err := decodeModelJSON(out, &sentiment); err != nil {
		s.logger.Warn("Sentiment completion was not parseable", logging.Err(err))
		return neutral
	}
	if sentiment.Mood == "" {
		sentiment.Mood = "neutral"
	}
	if sentiment.Score < 1 || sentiment.Score > 10 {
		sentiment.Score = 5
	}
	return sentiment
}

// ExtractTasks pulls concrete action items out of the transcript. The
// model is given today's date so relative phrases ("by tomorrow
// evening") resolve to absolute due dates. Failures degrade to an
// empty list.
func (s *Summarizer) ExtractTasks(ctx context.Context, transcript string) []TaskDraft {
	today := s.now()

	out, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You extract concrete action items from meeting transcripts. Respond with JSON only.",
		Prompt: fmt.Sprintf(`Today is %s (%s).
Extract every concrete task from the meeting transcript below.
Respond as JSON: {"tasks": [{"description": what must be done, "assignee": person responsible or "unspecified", "due_date": "YYYY-MM-DD HH:MM" or null, "confidence": 0.0-1.0}]}.
Resolve relative dates ("tomorrow", "next Friday") against today's date. When a day is given without a time, use 17:00. Keep descriptions in the language of the transcript.

Transcript:
%s`, today.Format("2006-01-02"), today.Weekday(), clipTranscript(transcript)),
		JSONMode: true,
	})
	if err != nil {
		s.logger.Warn("Task extraction failed", logging.Err(err))
		return nil
	}

	drafts, err := parseTaskDrafts(out)
	if err != nil {
		s.logger.Warn("Task completion was not parseable", logging.Err(err))
		return nil
	}
	return drafts
}

// rawTask tolerates the shape drift LLMs produce for task lists.
type rawTask struct {
	Description string          `json:"description"`
	Task        string          `json:"task"`
	Assignee    string          `json:"assignee"`
	DueDate     *string         `json:"due_date"`
	Confidence  json.RawMessage `json:"confidence"`
}

// parseTaskDrafts accepts {"tasks": [...]}, {"action_items": [...]},
// or a bare top-level list.
func parseTaskDrafts(raw string) ([]TaskDraft, error) {
	var envelope struct {
		Tasks       []rawTask `json:"tasks"`
		ActionItems []rawTask `json:"action_items"`
	}
	var items []rawTask

	// A bare list must be decoded before the envelope path: the
	// outermost-brace fallback in decodeModelJSON would otherwise slice
	// the first element out of the array and "succeed" with zero tasks.
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var bare []rawTask
		if err := decodeModelList(raw, &bare); err != nil {
			return nil, err
		}
		items = bare
	} else {
		envErr := decodeModelJSON(raw, &envelope)
		if envErr == nil {
			items = envelope.Tasks
			if len(items) == 0 {
				items = envelope.ActionItems
			}
		}
		if len(items) == 0 {
			var bare []rawTask
			if listErr := decodeModelList(raw, &bare); listErr == nil {
				items = bare
			} else if envErr != nil {
				return nil, envErr
			}
		}
	}

	drafts := make([]TaskDraft, 0, len(items))
	for _, item := range items {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			description = strings.TrimSpace(item.Task)
		}
		if description == "" {
			continue
		}

		assignee := strings.TrimSpace(item.Assignee)
		if assignee == "" {
			assignee = meeting.AssigneeUnspecified
		}

		var due *string
		if item.DueDate != nil {
			if d := strings.TrimSpace(*item.DueDate); d != "" && !strings.EqualFold(d, "null") {
				due = &d
			}
		}

		drafts = append(drafts, TaskDraft{
			Description: description,
			Assignee:    assignee,
			DueDate:     due,
			Confidence:  parseConfidence(item.Confidence),
		})
	}
	return drafts, nil
}

// decodeModelList is decodeModelJSON for top-level arrays.
func decodeModelList(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return fmt.Errorf("completion is not a JSON list")
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}

// parseConfidence accepts a number or a numeric string; anything else
// is 0.
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 || f > 1 {
			return 0
		}
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, scanErr := fmt.Sscanf(s, "%f", &f); scanErr == nil && f >= 0 && f <= 1 {
			return f
		}
	}
	return 0
}
