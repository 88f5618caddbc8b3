// Package app wires the voice query service together from configuration.
package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	grpcapi "ai-voice-query-service/internal/api/grpc"
	"ai-voice-query-service/internal/config"
	"ai-voice-query-service/internal/events"
	apihttp "ai-voice-query-service/internal/http"
	"ai-voice-query-service/internal/livefeed"
	"ai-voice-query-service/internal/models"
	"ai-voice-query-service/internal/observability"
	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
	"ai-voice-query-service/internal/service/generation"
	"ai-voice-query-service/internal/service/generation/openai"
	"ai-voice-query-service/internal/service/knowledge"
	"ai-voice-query-service/internal/service/location"
	"ai-voice-query-service/internal/service/pipeline"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config
	Pipeline    *pipeline.Pipeline
	Districts   *location.Directory
	Hub         *livefeed.Hub

	publisher *events.Publisher
	closers   []io.Closer
	logger    zerolog.Logger

	cancelHub context.CancelFunc
	http      *http.Server
	grpc      *grpcapi.Server
	metrics   *observability.Server
}

// New builds every collaborator from cfg. Nothing listens until Start.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{
		Cfg:    cfg,
		logger: logging.WithComponent("application"),
	}

	transcriber, err := newTranscriber(ctx, cfg.STT)
	if err != nil {
		return nil, err
	}
	if c, ok := transcriber.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	synthesizer, err := newSynthesizer(cfg.TTS)
	if err != nil {
		return nil, err
	}

	index := knowledge.Default()
	if cfg.Knowledge.CorpusPath != "" {
		index = knowledge.LoadFile(cfg.Knowledge.CorpusPath)
	}
	filter := knowledge.NewFilter(index, knowledge.DefaultKeywords(), cfg.Knowledge.LongQueryThreshold)

	// One client serves both legs so they share warm connections.
	provider := openai.New(openai.Config{BaseURL: cfg.Generation.BaseURL, APIKey: cfg.Generation.APIKey})
	racer := generation.NewRacer(provider, provider, generation.Config{
		PrimaryModel:        cfg.Generation.PrimaryModel,
		SecondaryModel:      cfg.Generation.SecondaryModel,
		PrimaryTimeout:      cfg.Generation.PrimaryTimeout,
		SoftDeadline:        cfg.Generation.SoftDeadline,
		ClearancePause:      cfg.Generation.ClearancePause,
		SecondaryTimeout:    cfg.Generation.SecondaryTimeout,
		FallbackTemperature: cfg.Generation.FallbackTemperature,
	})

	a.Districts = location.Default()
	a.publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	})

	deps := pipeline.Deps{
		Transcriber: transcriber,
		Generator:   racer,
		Context:     filter,
		Synthesizer: synthesizer,
		Locations:   a.Districts,
		Publisher:   a.publisher,
	}
	if cfg.Observability.LiveFeed {
		a.Hub = livefeed.NewHub()
		deps.Reporter = a.Hub
	}

	a.Pipeline, err = pipeline.New(deps, pipeline.Config{
		Budget:          cfg.Pipeline.Budget,
		DefaultLanguage: models.ParseLanguage(cfg.Pipeline.DefaultLanguage),
		DefaultDistrict: cfg.Pipeline.DefaultDistrict,
		RaceMaxTokens:   cfg.Generation.MaxTokens,
		RaceTemperature: cfg.Generation.Temperature,
		FastMaxTokens:   cfg.Generation.FastMaxTokens,
		FastTemperature: cfg.Generation.FastTemperature,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("stt", cfg.STT.Provider).
		Str("tts", cfg.TTS.Provider).
		Str("primaryModel", cfg.Generation.PrimaryModel).
		Str("secondaryModel", cfg.Generation.SecondaryModel).
		Int("knowledgeSections", index.Len()).
		Bool("kafka", cfg.Kafka.Enabled).
		Bool("liveFeed", cfg.Observability.LiveFeed).
		Msg("AI voice query service application created")
	return a, nil
}

// Router returns the public HTTP handler.
func (a *Application) Router() http.Handler {
	return apihttp.NewRouter(a.Pipeline, a.Districts)
}

// Start opens every listener and returns once they are bound.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()

	var live http.Handler
	if a.Hub != nil {
		hubCtx, cancel := context.WithCancel(context.Background())
		a.cancelHub = cancel
		go a.Hub.Run(hubCtx)
		live = a.Hub
	}

	a.metrics = observability.NewServer(a.Cfg.Service.MetricsAddr, live)
	a.metrics.Start()

	grpcLis, err := net.Listen("tcp", ":"+a.Cfg.Service.GRPCPort)
	if err != nil {
		return err
	}
	a.grpc = grpcapi.New(metrics.DefaultMetrics)
	go func() {
		if err := a.grpc.Serve(grpcLis); err != nil {
			a.logger.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	httpLis, err := net.Listen("tcp", ":"+a.Cfg.Service.HTTPPort)
	if err != nil {
		return err
	}
	a.http = &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		a.logger.Info().Str("addr", httpLis.Addr().String()).Msg("HTTP server started")
		if err := a.http.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("HTTP serve failed")
		}
	}()

	a.grpc.SetServing(true)
	a.logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI voice query service started")
	return nil
}

// Shutdown drains listeners and closes collaborators, best effort.
func (a *Application) Shutdown(ctx context.Context) {
	a.logger.Info().Msg("AI voice query service shutting down")

	if a.grpc != nil {
		a.grpc.Stop()
	}
	if a.http != nil {
		if err := a.http.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("HTTP shutdown")
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Observability shutdown")
		}
	}
	if a.cancelHub != nil {
		a.cancelHub()
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Publisher close")
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Close")
		}
	}
}
