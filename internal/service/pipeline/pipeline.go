// Package pipeline runs one spoken farm question end to end: transcribe,
// pick knowledge context, generate within the latency budget, clean the text
// for speech, then synthesize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
	"ai-voice-query-service/internal/service/density"
	"ai-voice-query-service/internal/service/generation"
	"ai-voice-query-service/internal/service/knowledge"
	"ai-voice-query-service/internal/service/prompt"
	"ai-voice-query-service/internal/service/sanitize"
	"ai-voice-query-service/internal/service/stt"
	"ai-voice-query-service/internal/service/tts"
)

// Generator is the race plus its fast path.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
	Direct(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// ContextSelector picks the knowledge context for a transcript.
type ContextSelector interface {
	Select(query string) knowledge.Selection
}

// Locations resolves district IDs.
type Locations interface {
	Lookup(id string) (*models.Location, bool)
}

// Reporter receives advisory stage timings.
type Reporter interface {
	Report(event models.StageEvent)
}

// Publisher receives the terminal event of each run.
type Publisher interface {
	PublishCompleted(ctx context.Context, event models.QueryCompleted) error
	PublishFailed(ctx context.Context, event models.QueryFailed) error
}

// Deps are the pipeline's collaborators. Transcriber, Generator and Context
// are required; the rest may be nil.
type Deps struct {
	Transcriber stt.Transcriber
	Generator   Generator
	Context     ContextSelector
	Synthesizer tts.Synthesizer
	Locations   Locations
	Reporter    Reporter
	Publisher   Publisher
}

// Config holds the per-run settings.
type Config struct {
	// Budget is the target end-to-end latency.
	Budget          time.Duration
	DefaultLanguage models.Language
	// DefaultDistrict applies when a query names none.
	DefaultDistrict string

	RaceMaxTokens   int
	RaceTemperature float64
	FastMaxTokens   int
	FastTemperature float64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Budget:          3 * time.Second,
		DefaultLanguage: models.English,
		DefaultDistrict: "coimbatore",
		RaceMaxTokens:   350,
		RaceTemperature: 0.4,
		FastMaxTokens:   150,
		FastTemperature: 0.6,
	}
}

// Error is a terminal pipeline failure at a named stage.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var errMissingDependency = errors.New("pipeline: missing dependency")

// Pipeline orchestrates one query at a time per call; it holds no per-query
// state and is safe for concurrent use.
type Pipeline struct {
	deps    Deps
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// New validates deps and fills unset config fields from DefaultConfig.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Transcriber == nil:
		return nil, fmt.Errorf("%w: transcriber", errMissingDependency)
	case deps.Generator == nil:
		return nil, fmt.Errorf("%w: generator", errMissingDependency)
	case deps.Context == nil:
		return nil, fmt.Errorf("%w: context selector", errMissingDependency)
	}

	d := DefaultConfig()
	if cfg.Budget <= 0 {
		cfg.Budget = d.Budget
	}
	if !cfg.DefaultLanguage.IsSupported() {
		cfg.DefaultLanguage = d.DefaultLanguage
	}
	if cfg.RaceMaxTokens <= 0 {
		cfg.RaceMaxTokens = d.RaceMaxTokens
	}
	if cfg.RaceTemperature <= 0 {
		cfg.RaceTemperature = d.RaceTemperature
	}
	if cfg.FastMaxTokens <= 0 {
		cfg.FastMaxTokens = d.FastMaxTokens
	}
	if cfg.FastTemperature <= 0 {
		cfg.FastTemperature = d.FastTemperature
	}

	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("pipeline"),
	}, nil
}

// run carries one query's working state.
type run struct {
	id       string
	start    time.Time
	lang     models.Language
	district string
	result   *models.PipelineResult
	log      zerolog.Logger
	accuracy float64
}

// Run processes q. It always returns a well-formed result. The error is
// non-nil only for a generation failure, in which case the result carries
// OutcomeFailed and the diagnostic detail.
func (p *Pipeline) Run(ctx context.Context, q models.AudioQuery) (*models.PipelineResult, error) {
	r := &run{
		id:       uuid.NewString(),
		start:    time.Now(),
		lang:     p.requestLanguage(q.Language),
		district: q.DistrictID,
	}
	r.log = logging.WithQuery(r.id, string(r.lang))
	r.result = &models.PipelineResult{QueryID: r.id, Language: r.lang}

	p.metrics.RecordQueryStart()

	// Transcribe.
	tStart := time.Now()
	tr, err := p.deps.Transcriber.Transcribe(ctx, stt.Audio{
		Data:     q.Audio,
		MimeType: q.MimeType,
		Filename: q.Filename,
		Language: r.lang,
	})
	r.result.Timing.TranscriptionMs = sinceMs(tStart)
	p.stage(r, models.StageTranscription, r.result.Timing.TranscriptionMs)

	if err == nil && (tr == nil || strings.TrimSpace(tr.Text) == "") {
		err = stt.NewFailure("pipeline", "empty_transcript", stt.ErrEmptyTranscript, r.lang)
	}
	if err != nil {
		return p.busy(ctx, r, err), nil
	}

	r.accuracy = tr.Confidence
	r.result.Transcript = strings.TrimSpace(tr.Text)
	r.result.PhoneticAccuracy = tr.Confidence
	r.result.DetectedLanguage = tr.DetectedLanguage
	if detected := stt.ShortLanguage(tr.DetectedLanguage); detected != "" {
		r.lang = detected
	}
	r.result.Language = r.lang

	// Generate.
	gStart := time.Now()
	gen, err := p.generate(ctx, r)
	r.result.Timing.GenerationMs = sinceMs(gStart)
	p.stage(r, models.StageGeneration, r.result.Timing.GenerationMs)
	if err != nil {
		return p.fail(ctx, r, models.StageGeneration, err)
	}
	r.result.Model = gen.Model
	r.result.RacePath = string(gen.Path)

	text := gen.Text
	if extracted, ok := sanitize.ExtractResponse(text); ok {
		text = extracted
	}
	r.result.Answer = sanitize.Sanitize(text)
	r.result.InfoDensity = density.Score(r.result.Answer)
	p.metrics.RecordDensity(r.result.InfoDensity)

	// Synthesize.
	sStart := time.Now()
	if r.result.Answer != "" && p.deps.Synthesizer != nil {
		audio, err := p.deps.Synthesizer.Synthesize(ctx, r.result.Answer, r.lang)
		if err != nil {
			p.metrics.RecordSynthesisFailed()
			r.log.Warn().Err(err).Msg("Synthesis failed, returning text only")
		} else {
			r.result.Audio = audio
		}
	}
	r.result.Timing.SynthesisMs = sinceMs(sStart)
	p.stage(r, models.StageSynthesis, r.result.Timing.SynthesisMs)

	r.result.Outcome = models.OutcomeAnswered
	p.finish(r)

	if p.deps.Publisher != nil {
		err := p.deps.Publisher.PublishCompleted(ctx, models.QueryCompleted{
			EventType:   models.EventQueryCompleted,
			QueryID:     r.id,
			Language:    r.lang,
			Transcript:  r.result.Transcript,
			Answer:      r.result.Answer,
			Model:       r.result.Model,
			RacePath:    r.result.RacePath,
			ContextTier: r.result.ContextTier,
			InfoDensity: r.result.InfoDensity,
			HasAudio:    r.result.Audio != nil,
			Timing:      r.result.Timing,
			MetBudget:   r.result.MetBudget,
			Timestamp:   time.Now().UnixMilli(),
		})
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to publish completed event")
		}
	}
	return r.result, nil
}

func (p *Pipeline) generate(ctx context.Context, r *run) (*generation.Result, error) {
	transcript := r.result.Transcript
	class := Classify(transcript)
	r.result.QueryClass = string(class)
	p.metrics.RecordQueryClass(string(class))

	sel := p.deps.Context.Select(transcript)
	r.result.ContextTier = string(sel.Tier)
	p.metrics.RecordContext(string(sel.Tier), len(sel.Titles))

	system := prompt.System(sel.Text, p.location(r), r.lang)

	r.log.Info().
		Str("class", string(class)).
		Str("tier", string(sel.Tier)).
		Strs("sections", sel.Titles).
		Msg("Routing query")

	var (
		res *generation.Result
		err error
	)
	if class.FastPath() {
		res, err = p.deps.Generator.Direct(ctx, generation.Request{
			Messages: []generation.Message{
				{Role: generation.RoleSystem, Content: system},
				{Role: generation.RoleUser, Content: prompt.FastUser(transcript, r.lang)},
			},
			MaxTokens:   p.cfg.FastMaxTokens,
			Temperature: p.cfg.FastTemperature,
		})
	} else {
		res, err = p.deps.Generator.Generate(ctx, generation.Request{
			Messages: []generation.Message{
				{Role: generation.RoleSystem, Content: system},
				{Role: generation.RoleUser, Content: prompt.RaceUser(transcript, r.lang)},
			},
			MaxTokens:   p.cfg.RaceMaxTokens,
			Temperature: p.cfg.RaceTemperature,
		})
	}
	if err != nil {
		return nil, err
	}
	p.metrics.RecordRace(string(res.Path))
	return res, nil
}

// location resolves the query's district, falling back to the default.
// Unknown districts are dropped from the prompt.
func (p *Pipeline) location(r *run) *models.Location {
	if p.deps.Locations == nil {
		return nil
	}
	id := r.district
	if id == "" {
		id = p.cfg.DefaultDistrict
	}
	loc, ok := p.deps.Locations.Lookup(id)
	if !ok {
		r.log.Debug().Str("district", id).Msg("Unknown district, omitting location")
		return nil
	}
	return loc
}

func (p *Pipeline) busy(ctx context.Context, r *run, err error) *models.PipelineResult {
	msg := stt.BusyMessage(r.lang)
	var failure *stt.Failure
	if errors.As(err, &failure) && failure.Fallback != "" {
		msg = failure.Fallback
	}
	r.result.Outcome = models.OutcomeServiceBusy
	r.result.Answer = msg
	r.result.Error = err.Error()

	r.log.Warn().Err(err).Msg("Transcription failed, returning busy message")
	p.finish(r)
	p.publishFailed(ctx, r, models.StageTranscription)
	return r.result
}

func (p *Pipeline) fail(ctx context.Context, r *run, stage string, err error) (*models.PipelineResult, error) {
	r.result.Outcome = models.OutcomeFailed
	r.result.Error = err.Error()

	r.log.Error().Err(err).Str("stage", stage).Msg("Pipeline failed")
	p.finish(r)
	p.publishFailed(ctx, r, stage)
	return r.result, &Error{Stage: stage, Err: err}
}

func (p *Pipeline) publishFailed(ctx context.Context, r *run, stage string) {
	if p.deps.Publisher == nil {
		return
	}
	err := p.deps.Publisher.PublishFailed(ctx, models.QueryFailed{
		EventType: models.EventQueryFailed,
		QueryID:   r.id,
		Language:  r.lang,
		Outcome:   r.result.Outcome,
		Stage:     stage,
		Error:     r.result.Error,
		Timing:    r.result.Timing,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to publish failed event")
	}
}

// finish stamps the total and budget flag and records the run.
func (p *Pipeline) finish(r *run) {
	total := time.Since(r.start)
	r.result.Timing.TotalMs = total.Milliseconds()
	r.result.MetBudget = total <= p.cfg.Budget
	p.stage(r, models.StageTotal, r.result.Timing.TotalMs)
	p.metrics.RecordQueryEnd(string(r.result.Outcome), r.result.MetBudget)

	r.log.Info().
		Str("outcome", string(r.result.Outcome)).
		Str("model", r.result.Model).
		Str("path", r.result.RacePath).
		Int64("transcriptionMs", r.result.Timing.TranscriptionMs).
		Int64("generationMs", r.result.Timing.GenerationMs).
		Int64("synthesisMs", r.result.Timing.SynthesisMs).
		Int64("totalMs", r.result.Timing.TotalMs).
		Bool("metBudget", r.result.MetBudget).
		Msg("Query finished")
}

// stage records one stage timing. The live feed is advisory and must not
// affect the run.
func (p *Pipeline) stage(r *run, stage string, ms int64) {
	p.metrics.RecordStage(stage, float64(ms)/1000)
	if p.deps.Reporter == nil {
		return
	}
	p.deps.Reporter.Report(models.StageEvent{
		QueryID:          r.id,
		Stage:            stage,
		LatencyMs:        ms,
		InfoDensity:      r.result.InfoDensity,
		PhoneticAccuracy: r.accuracy,
		Timestamp:        time.Now().UnixMilli(),
	})
}

func (p *Pipeline) requestLanguage(l models.Language) models.Language {
	if l == "" {
		return p.cfg.DefaultLanguage
	}
	if l.IsSupported() {
		return l
	}
	return models.ParseLanguage(string(l))
}

func sinceMs(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
