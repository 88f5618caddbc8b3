package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/service/generation"
	"ai-voice-query-service/internal/service/knowledge"
	"ai-voice-query-service/internal/service/location"
	"ai-voice-query-service/internal/service/stt"
	sttmock "ai-voice-query-service/internal/service/stt/mock"
	ttsmock "ai-voice-query-service/internal/service/tts/mock"
)

type fakeProvider struct {
	mu   sync.Mutex
	text string
	err  error
	reqs []generation.Request
}

func (f *fakeProvider) Complete(ctx context.Context, req generation.Request) (*generation.Completion, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &generation.Completion{Text: f.text, Model: req.Model}, nil
}

func (f *fakeProvider) requests() []generation.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generation.Request(nil), f.reqs...)
}

type recordingReporter struct {
	mu     sync.Mutex
	stages []string
}

func (r *recordingReporter) Report(e models.StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, e.Stage)
}

type recordingPublisher struct {
	mu        sync.Mutex
	completed []models.QueryCompleted
	failed    []models.QueryFailed
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, e models.QueryCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, e)
	return nil
}

func (p *recordingPublisher) PublishFailed(_ context.Context, e models.QueryFailed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return nil
}

type harness struct {
	pipeline    *Pipeline
	transcriber *sttmock.Transcriber
	primary     *fakeProvider
	secondary   *fakeProvider
	synthesizer *ttsmock.Synthesizer
	reporter    *recordingReporter
	publisher   *recordingPublisher
}

type harnessOption func(*harness)

func withTranscriber(t *sttmock.Transcriber) harnessOption {
	return func(h *harness) { h.transcriber = t }
}

func withSynthesizer(s *ttsmock.Synthesizer) harnessOption {
	return func(h *harness) { h.synthesizer = s }
}

func newHarness(t *testing.T, utterance sttmock.Utterance, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		transcriber: sttmock.New(sttmock.WithUtterances(utterance)),
		primary:     &fakeProvider{text: `{"response": "Give 1.3 kg urea per palm in 2 splits."}`},
		secondary:   &fakeProvider{text: "Vanakkam! Ask me about your crop."},
		synthesizer: ttsmock.New(nil),
		reporter:    &recordingReporter{},
		publisher:   &recordingPublisher{},
	}
	for _, opt := range opts {
		opt(h)
	}

	racer := generation.NewRacer(h.primary, h.secondary, generation.Config{
		SoftDeadline:   time.Second,
		ClearancePause: 10 * time.Millisecond,
	})
	p, err := New(Deps{
		Transcriber: h.transcriber,
		Generator:   racer,
		Context:     knowledge.NewFilter(knowledge.Default(), knowledge.DefaultKeywords(), knowledge.DefaultLongQueryThreshold),
		Synthesizer: h.synthesizer,
		Locations:   location.Default(),
		Reporter:    h.reporter,
		Publisher:   h.publisher,
	}, DefaultConfig())
	require.NoError(t, err)
	h.pipeline = p
	return h
}

func systemPrompt(req generation.Request) string {
	for _, m := range req.Messages {
		if m.Role == generation.RoleSystem {
			return m.Content
		}
	}
	return ""
}

func TestRun_CropQuery(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "enthana acre, thengai", Confidence: 88, Language: models.Tamil})

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, Language: models.Tamil})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeAnswered, res.Outcome)
	assert.Equal(t, "enthana acre, thengai", res.Transcript)
	assert.Equal(t, string(knowledge.TierMatched), res.ContextTier)
	assert.Equal(t, string(ClassNormal), res.QueryClass)
	assert.Equal(t, string(generation.PathPrimary), res.RacePath)

	reqs := h.primary.requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, systemPrompt(reqs[0]), "TNAU CERTIFIED FERTILIZER RECOMMENDATIONS")
	assert.Contains(t, systemPrompt(reqs[0]), "Farmer's location: Coimbatore")
	assert.Equal(t, 350, reqs[0].MaxTokens)
	assert.Equal(t, 0.4, reqs[0].Temperature)
	assert.Empty(t, h.secondary.requests())

	assert.Equal(t, "Give 1.3 kg urea per palm in 2 splits.", res.Answer)
	assert.Regexp(t, `\d`, res.Answer)
	assert.False(t, strings.HasPrefix(res.Answer, "{"))
	assert.Greater(t, res.InfoDensity, 0.0)
	assert.Equal(t, 88.0, res.PhoneticAccuracy)
	assert.GreaterOrEqual(t, res.Timing.TotalMs, int64(0))
	assert.True(t, res.MetBudget)
	assert.NotNil(t, res.Audio)
	assert.NotEmpty(t, res.QueryID)

	assert.Equal(t, []string{
		models.StageTranscription, models.StageGeneration, models.StageSynthesis, models.StageTotal,
	}, h.reporter.stages)
	require.Len(t, h.publisher.completed, 1)
	assert.Equal(t, res.QueryID, h.publisher.completed[0].QueryID)
	assert.True(t, h.publisher.completed[0].HasAudio)
}

func TestRun_GreetingUsesFastPath(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "hello", Confidence: 97, Language: models.English})

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}})
	require.NoError(t, err)

	assert.Equal(t, string(ClassGreeting), res.QueryClass)
	assert.Equal(t, string(generation.PathDirect), res.RacePath)
	assert.Empty(t, h.primary.requests(), "primary must never be invoked")

	reqs := h.secondary.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 150, reqs[0].MaxTokens)
	assert.Equal(t, 0.6, reqs[0].Temperature)
	assert.Equal(t, "Vanakkam! Ask me about your crop.", res.Answer)
}

func TestRun_TranscriptionFailureReturnsBusy(t *testing.T) {
	for _, lang := range models.Languages {
		t.Run(string(lang), func(t *testing.T) {
			h := newHarness(t, sttmock.Utterance{},
				withTranscriber(sttmock.New(sttmock.WithError(errors.New("provider down")))))

			res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, Language: lang})
			require.NoError(t, err)

			assert.Equal(t, models.OutcomeServiceBusy, res.Outcome)
			assert.Equal(t, stt.BusyMessage(lang), res.Answer)
			assert.Contains(t, res.Error, "provider down")
			assert.Nil(t, res.Audio)
			assert.Zero(t, res.PhoneticAccuracy)
			assert.Zero(t, res.InfoDensity)

			assert.Empty(t, h.primary.requests())
			assert.Empty(t, h.secondary.requests())
			assert.Empty(t, h.synthesizer.Calls())

			require.Len(t, h.publisher.failed, 1)
			assert.Equal(t, models.StageTranscription, h.publisher.failed[0].Stage)
			assert.Equal(t, models.OutcomeServiceBusy, h.publisher.failed[0].Outcome)
		})
	}
}

func TestRun_EmptyTranscriptReturnsBusy(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: ""})

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, Language: models.Malayalam})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeServiceBusy, res.Outcome)
	assert.Equal(t, stt.BusyMessage(models.Malayalam), res.Answer)
	assert.Empty(t, h.secondary.requests())
}

func TestRun_SynthesisFailureKeepsText(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "how much urea for paddy per acre", Language: models.English},
		withSynthesizer(ttsmock.New(errors.New("voice quota exceeded"))))

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeAnswered, res.Outcome)
	assert.NotEmpty(t, res.Answer)
	assert.Nil(t, res.Audio)
	assert.False(t, h.publisher.completed[0].HasAudio)
}

func TestRun_GenerationFailure(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "how much urea for paddy per acre", Language: models.English})
	h.primary.err = errors.New("primary exploded")
	h.secondary.err = errors.New("secondary exploded")

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}})

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.StageGeneration, pErr.Stage)
	var raceErr *generation.RaceError
	assert.ErrorAs(t, err, &raceErr)

	require.NotNil(t, res)
	assert.Equal(t, models.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Error, "secondary exploded")
	assert.Empty(t, h.synthesizer.Calls())

	require.Len(t, h.publisher.failed, 1)
	assert.Equal(t, models.StageGeneration, h.publisher.failed[0].Stage)
}

func TestRun_DetectedLanguageDrivesDialectAndVoice(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "vazhaikku evvalavu uram venam", Language: models.Malayalam})

	res, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, Language: models.English})
	require.NoError(t, err)

	assert.Equal(t, models.Malayalam, res.Language)
	assert.Equal(t, "ml-IN", res.DetectedLanguage)
	require.NotNil(t, res.Audio)
	assert.True(t, strings.HasPrefix(string(res.Audio.Data), "ml:"))
}

func TestRun_UnknownDistrictOmitsLocation(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "how much urea for paddy per acre", Language: models.English})

	_, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, DistrictID: "atlantis"})
	require.NoError(t, err)

	reqs := h.primary.requests()
	require.Len(t, reqs, 1)
	assert.NotContains(t, systemPrompt(reqs[0]), "Farmer's location")
}

func TestRun_SelectedDistrict(t *testing.T) {
	h := newHarness(t, sttmock.Utterance{Text: "how much urea for paddy per acre", Language: models.English})

	_, err := h.pipeline.Run(context.Background(), models.AudioQuery{Audio: []byte{1}, DistrictID: "wayanad"})
	require.NoError(t, err)

	assert.Contains(t, systemPrompt(h.primary.requests()[0]), "Farmer's location: Wayanad")
}

func TestNew_MissingDependencies(t *testing.T) {
	filter := knowledge.NewFilter(knowledge.Default(), knowledge.DefaultKeywords(), 0)
	racer := generation.NewRacer(&fakeProvider{}, &fakeProvider{}, generation.Config{})

	_, err := New(Deps{Generator: racer, Context: filter}, Config{})
	assert.ErrorIs(t, err, errMissingDependency)

	_, err = New(Deps{Transcriber: sttmock.New(), Context: filter}, Config{})
	assert.ErrorIs(t, err, errMissingDependency)

	_, err = New(Deps{Transcriber: sttmock.New(), Generator: racer}, Config{})
	assert.ErrorIs(t, err, errMissingDependency)

	p, err := New(Deps{Transcriber: sttmock.New(), Generator: racer, Context: filter}, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Budget, p.cfg.Budget)
}
