// Package pipeline orchestrates the asynchronous processing of an
// uploaded meeting: audio normalization, transcription, speaker
// identification, text correction, analysis, and memory indexing.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oguzatay/smartmeet/pkg/audio"
	smarterrors "github.com/oguzatay/smartmeet/pkg/errors"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/meeting"
	"github.com/oguzatay/smartmeet/pkg/observability"
	"github.com/oguzatay/smartmeet/pkg/speaker"
	"github.com/oguzatay/smartmeet/pkg/summarize"
	"github.com/oguzatay/smartmeet/pkg/transcribe"
)

// MeetingStore is the slice of the meeting repository the pipeline
// writes through.
type MeetingStore interface {
	Get(ctx context.Context, id int64) (*meeting.Meeting, error)
	TransitionStatus(ctx context.Context, id int64, from, to meeting.Status) error
	MarkFailed(ctx context.Context, id int64) error
	SetAudioPath(ctx context.Context, id int64, path string) error
	InsertSegments(ctx context.Context, segments []meeting.Segment) error
	SegmentsByMeeting(ctx context.Context, meetingID int64) ([]meeting.Segment, error)
	SetSummary(ctx context.Context, id int64, s *meeting.ExecutiveSummary) error
	SetSentiment(ctx context.Context, id int64, s *meeting.Sentiment) error
	InsertActionItems(ctx context.Context, items []meeting.ActionItem) error
}

// ProfileSource supplies the known-speaker set.
type ProfileSource interface {
	LoadKnown(ctx context.Context) ([]speaker.Profile, error)
}

// Corrector cleans transcription artifacts out of a segment.
type Corrector interface {
	Correct(ctx context.Context, text string) summarize.CorrectionResult
}

// Analyzer runs the LLM analysis passes over a full transcript.
type Analyzer interface {
	Summarize(ctx context.Context, transcript string) meeting.ExecutiveSummary
	Sentiment(ctx context.Context, transcript string) meeting.Sentiment
	ExtractTasks(ctx context.Context, transcript string) []summarize.TaskDraft
}

// Indexer stores segments in the semantic memory.
type Indexer interface {
	IndexMeeting(ctx context.Context, m *meeting.Meeting, segments []meeting.Segment) error
}

// Config holds the pipeline tuning knobs.
type Config struct {
	// MatchThreshold is the minimum cosine similarity for accepting a
	// speaker identification.
	MatchThreshold float64

	// MinSegmentSeconds is the shortest segment worth fingerprinting.
	MinSegmentSeconds float64

	// FFmpegPath locates the ffmpeg binary for audio normalization.
	FFmpegPath string
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:    0.35,
		MinSegmentSeconds: 0.5,
		FFmpegPath:        "ffmpeg",
	}
}

// Deps bundles the pipeline collaborators.
type Deps struct {
	Store       MeetingStore
	Transcriber transcribe.Transcriber
	Encoder     speaker.Encoder
	Profiles    ProfileSource
	Corrector   Corrector
	Analyzer    Analyzer
	Indexer     Indexer
	Locker      Locker
}

// Pipeline runs the processing stages for one meeting at a time.
type Pipeline struct {
	deps    Deps
	config  Config
	metrics *observability.PipelineMetrics
	tracer  *observability.Tracer
	logger  logging.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithConfig sets a custom pipeline configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) {
		p.config = cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline.
func New(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		deps:   deps,
		config: DefaultConfig(),
		tracer: observability.NewTracer(),
		logger: logging.MustGlobal(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With(logging.F("component", "pipeline"))
	return p
}

// Process runs the full pipeline for one meeting. A meeting that has
// disappeared or already completed is not an error; a concurrent run on
// the same meeting returns ErrConflict.
func (p *Pipeline) Process(ctx context.Context, meetingID int64) error {
	release, err := p.deps.Locker.Acquire(ctx, meetingID)
	if err != nil {
		return err
	}
	defer release()

	m, err := p.deps.Store.Get(ctx, meetingID)
	if smarterrors.IsNotFound(err) {
		p.logger.Warn("Meeting vanished before processing, dropping",
			logging.F("meeting_id", meetingID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}

	ctx, span := p.tracer.StartMeetingSpan(ctx, m.ID, m.OwnerID)
	defer span.End()

	switch m.Status {
	case meeting.StatusCompleted:
		p.logger.Info("Meeting already completed, dropping",
			logging.F("meeting_id", meetingID))
		return nil
	case meeting.StatusProcessing:
		// A crashed run left it mid-flight; the lock is ours, resume.
	default:
		if err := p.deps.Store.TransitionStatus(ctx, m.ID, m.Status, meeting.StatusProcessing); err != nil {
			return fmt.Errorf("starting processing for meeting %d: %w", m.ID, err)
		}
	}

	p.logger.Info("Starting meeting pipeline",
		logging.F("meeting_id", m.ID), logging.F("owner_id", m.OwnerID))

	if err := p.run(ctx, m); err != nil {
		observability.RecordError(span, err)
		p.recordProcessed(string(meeting.StatusFailed))
		if markErr := p.deps.Store.MarkFailed(context.WithoutCancel(ctx), m.ID); markErr != nil {
			p.logger.Error("Failed to mark meeting as failed",
				logging.F("meeting_id", m.ID), logging.Err(markErr))
		}
		return err
	}

	p.recordProcessed(string(meeting.StatusCompleted))
	p.logger.Info("Meeting pipeline completed", logging.F("meeting_id", m.ID))
	return nil
}

func (p *Pipeline) run(ctx context.Context, m *meeting.Meeting) error {
	audioPath := p.runNormalization(ctx, m)

	segments, err := p.runTranscription(ctx, audioPath)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		p.logger.Warn("Transcription produced no segments",
			logging.F("meeting_id", m.ID))
		return p.complete(ctx, m)
	}

	persisted, transcript, err := p.runSegmentProcessing(ctx, m, audioPath, segments)
	if err != nil {
		return err
	}

	// The guard counts spoken text only; the attribution prefixes in the
	// joined transcript carry no analyzable content.
	spoken := 0
	for _, seg := range persisted {
		spoken += len(seg.Text)
	}

	if spoken > summarize.MinAnalyzableChars {
		if err := p.runAnalysis(ctx, m, transcript); err != nil {
			return err
		}
		if err := p.runIndexing(ctx, m); err != nil {
			return err
		}
	} else {
		p.logger.Info("Transcript too short for analysis",
			logging.F("meeting_id", m.ID), logging.F("chars", spoken))
	}

	return p.complete(ctx, m)
}

func (p *Pipeline) complete(ctx context.Context, m *meeting.Meeting) error {
	if err := p.deps.Store.TransitionStatus(ctx, m.ID, meeting.StatusProcessing, meeting.StatusCompleted); err != nil {
		return fmt.Errorf("completing meeting %d: %w", m.ID, err)
	}
	return nil
}

// runNormalization converts the upload to 16 kHz mono WAV. Failure is
// not fatal: transcription providers accept most container formats, so
// the original file is still worth sending.
func (p *Pipeline) runNormalization(ctx context.Context, m *meeting.Meeting) string {
	ctx, span := p.tracer.StartStageSpan(ctx, "normalize")
	defer span.End()
	defer p.stageTimer("normalize")()

	if audio.IsCanonical(m.AudioPath) {
		return m.AudioPath
	}

	normalized, err := audio.Normalize(ctx, p.config.FFmpegPath, m.AudioPath)
	if err != nil {
		p.logger.Warn("Audio normalization failed, using original file",
			logging.F("meeting_id", m.ID), logging.Err(err))
		return m.AudioPath
	}

	if err := p.deps.Store.SetAudioPath(ctx, m.ID, normalized); err != nil {
		p.logger.Warn("Failed to persist normalized audio path",
			logging.F("meeting_id", m.ID), logging.Err(err))
	}
	return normalized
}

func (p *Pipeline) runTranscription(ctx context.Context, audioPath string) ([]transcribe.Segment, error) {
	ctx, span := p.tracer.StartStageSpan(ctx, "transcribe")
	defer span.End()
	defer p.stageTimer("transcribe")()

	return p.deps.Transcriber.Transcribe(ctx, audioPath), nil
}

// runSegmentProcessing corrects and attributes every segment, persists
// them, and returns the persisted segments plus the joined transcript.
// A failure on one segment degrades that segment, never the run.
func (p *Pipeline) runSegmentProcessing(ctx context.Context, m *meeting.Meeting, audioPath string, segments []transcribe.Segment) ([]meeting.Segment, string, error) {
	ctx, span := p.tracer.StartStageSpan(ctx, "segments")
	defer span.End()
	defer p.stageTimer("segments")()

	pcm, decodeErr := audio.DecodeWAVFile(audioPath)
	if decodeErr != nil {
		p.logger.Warn("Cannot decode audio for speaker identification",
			logging.F("meeting_id", m.ID), logging.Err(decodeErr))
	}

	profiles, err := p.deps.Profiles.LoadKnown(ctx)
	if err != nil {
		p.logger.Warn("Failed to load speaker profiles",
			logging.F("meeting_id", m.ID), logging.Err(err))
		profiles = nil
	}

	out := make([]meeting.Segment, 0, len(segments))
	lines := make([]string, 0, len(segments))

	for _, seg := range segments {
		text := p.correctText(ctx, seg.Text)
		name := p.identifySpeaker(ctx, pcm, decodeErr == nil, profiles, seg)

		out = append(out, meeting.Segment{
			MeetingID: m.ID,
			StartTime: seg.Start,
			EndTime:   seg.End,
			Speaker:   name,
			Text:      text,
		})
		lines = append(lines, fmt.Sprintf("%s: %s", name, text))
		p.recordSegment("ok")
	}

	if err := p.deps.Store.InsertSegments(ctx, out); err != nil {
		return nil, "", fmt.Errorf("persisting %d segments: %w", len(out), err)
	}

	return out, strings.Join(lines, "\n"), nil
}

func (p *Pipeline) correctText(ctx context.Context, text string) string {
	if p.deps.Corrector == nil {
		return text
	}
	return p.deps.Corrector.Correct(ctx, text).Text
}

func (p *Pipeline) identifySpeaker(ctx context.Context, pcm audio.PCM, haveAudio bool, profiles []speaker.Profile, seg transcribe.Segment) string {
	if !haveAudio || len(profiles) == 0 {
		return meeting.SpeakerUnknown
	}
	if seg.End-seg.Start < p.config.MinSegmentSeconds {
		p.recordSpeakerMatch("too_short", 0)
		return meeting.SpeakerUnknown
	}

	clip := pcm.Clip(seg.Start, seg.End)
	embedding := p.deps.Encoder.Embed(ctx, clip)
	match := speaker.BestMatch(embedding, profiles)

	if match.Score <= p.config.MatchThreshold {
		p.recordSpeakerMatch("unmatched", match.Score)
		return meeting.SpeakerUnknown
	}

	p.recordSpeakerMatch("matched", match.Score)
	return match.Name
}

// runAnalysis runs the summary, sentiment and task passes. Each AI pass
// degrades to its documented fallback; failing to persist a pass's
// output fails the run.
func (p *Pipeline) runAnalysis(ctx context.Context, m *meeting.Meeting, transcript string) error {
	ctx, span := p.tracer.StartStageSpan(ctx, "analysis")
	defer span.End()
	defer p.stageTimer("analysis")()

	summary := p.deps.Analyzer.Summarize(ctx, transcript)
	if !summary.Empty() {
		if err := p.deps.Store.SetSummary(ctx, m.ID, &summary); err != nil {
			return fmt.Errorf("persisting summary for meeting %d: %w", m.ID, err)
		}
	}

	sentiment := p.deps.Analyzer.Sentiment(ctx, transcript)
	if err := p.deps.Store.SetSentiment(ctx, m.ID, &sentiment); err != nil {
		return fmt.Errorf("persisting sentiment for meeting %d: %w", m.ID, err)
	}

	drafts := p.deps.Analyzer.ExtractTasks(ctx, transcript)
	if len(drafts) > 0 {
		items := make([]meeting.ActionItem, len(drafts))
		for i, d := range drafts {
			items[i] = meeting.ActionItem{
				MeetingID:   m.ID,
				Description: d.Description,
				Assignee:    d.Assignee,
				DueDate:     d.DueDate,
				Status:      meeting.ActionItemPending,
				Confidence:  d.Confidence,
			}
		}
		if err := p.deps.Store.InsertActionItems(ctx, items); err != nil {
			return fmt.Errorf("persisting %d action items for meeting %d: %w", len(items), m.ID, err)
		}
	}
	return nil
}

// runIndexing writes the meeting's segments into semantic memory. The
// segments are re-read from the store so the index reflects exactly
// what was persisted, and an indexing failure fails the run.
func (p *Pipeline) runIndexing(ctx context.Context, m *meeting.Meeting) error {
	ctx, span := p.tracer.StartStageSpan(ctx, "index")
	defer span.End()
	defer p.stageTimer("index")()

	segments, err := p.deps.Store.SegmentsByMeeting(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("reading segments of meeting %d for indexing: %w", m.ID, err)
	}

	if err := p.deps.Indexer.IndexMeeting(ctx, m, segments); err != nil {
		return fmt.Errorf("indexing meeting %d into memory: %w", m.ID, err)
	}
	return nil
}

func (p *Pipeline) stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		if p.metrics != nil {
			p.metrics.RecordStageLatency(stage, time.Since(start).Seconds())
		}
	}
}

func (p *Pipeline) recordProcessed(status string) {
	if p.metrics != nil {
		p.metrics.RecordMeetingProcessed(status)
	}
}

func (p *Pipeline) recordSegment(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordSegment(outcome)
	}
}

func (p *Pipeline) recordSpeakerMatch(result string, score float64) {
	if p.metrics != nil {
		p.metrics.RecordSpeakerMatch(result, score)
	}
}
