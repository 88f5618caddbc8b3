package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ai-voice-query-service/internal/observability/logging"
	"ai-voice-query-service/internal/observability/metrics"
)

// Config holds the models and timing of a race. Zero fields take the values
// of DefaultConfig.
type Config struct {
	PrimaryModel   string
	SecondaryModel string

	// PrimaryTimeout is the hard ceiling on the primary request.
	PrimaryTimeout time.Duration
	// SoftDeadline is how long the primary may run before it is cancelled in
	// favour of the secondary.
	SoftDeadline time.Duration
	// ClearancePause is the gap between cancelling the primary and
	// dispatching the secondary.
	ClearancePause time.Duration
	// SecondaryTimeout is the hard ceiling on the secondary request.
	SecondaryTimeout time.Duration

	// FallbackTemperature replaces the request temperature whenever the
	// secondary stands in for the primary.
	FallbackTemperature float64
}

// DefaultConfig returns the production race timing.
func DefaultConfig() Config {
	return Config{
		PrimaryModel:        "meta-llama/Meta-Llama-3-70B-Instruct",
		SecondaryModel:      "meta-llama/Meta-Llama-3-8B-Instruct",
		PrimaryTimeout:      60 * time.Second,
		SoftDeadline:        8 * time.Second,
		ClearancePause:      1500 * time.Millisecond,
		SecondaryTimeout:    30 * time.Second,
		FallbackTemperature: 0.6,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PrimaryModel == "" {
		c.PrimaryModel = d.PrimaryModel
	}
	if c.SecondaryModel == "" {
		c.SecondaryModel = d.SecondaryModel
	}
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = d.PrimaryTimeout
	}
	if c.SoftDeadline <= 0 {
		c.SoftDeadline = d.SoftDeadline
	}
	if c.ClearancePause <= 0 {
		c.ClearancePause = d.ClearancePause
	}
	if c.SecondaryTimeout <= 0 {
		c.SecondaryTimeout = d.SecondaryTimeout
	}
	if c.FallbackTemperature <= 0 {
		c.FallbackTemperature = d.FallbackTemperature
	}
	return c
}

// Racer runs the primary/secondary generation race.
//
// The primary is dispatched with a hard timeout and a separate soft deadline.
// If it answers before the deadline it wins. If the deadline fires first the
// primary is cancelled, the racer waits out the clearance pause, and then
// dispatches the secondary. A rate-limited primary hands over to the
// secondary at once with no pause, since nothing was cancelled. Any other
// primary failure also hands over immediately and is only reported if the
// secondary fails too.
type Racer struct {
	primary   Provider
	secondary Provider
	cfg       Config
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewRacer creates a racer over two providers. They may be the same client.
func NewRacer(primary, secondary Provider, cfg Config) *Racer {
	return &Racer{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg.withDefaults(),
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("racer"),
	}
}

// Config returns the effective configuration.
func (r *Racer) Config() Config {
	return r.cfg
}

type legOutcome struct {
	leg        Leg
	model      string
	completion *Completion
	err        error
	latency    time.Duration
}

// dispatch runs one leg in its own goroutine. out must have room for every
// leg of the race so a discarded leg never blocks.
func (r *Racer) dispatch(ctx context.Context, leg Leg, p Provider, req Request, out chan<- legOutcome) {
	go func() {
		start := time.Now()
		c, err := p.Complete(ctx, req)
		if err == nil && c == nil {
			err = ErrMalformedResponse
		}
		latency := time.Since(start)

		if err != nil {
			r.metrics.RecordGenerationError(req.Model, errorKind(err))
		} else {
			r.metrics.RecordGeneration(req.Model, latency.Seconds())
		}
		out <- legOutcome{leg: leg, model: req.Model, completion: c, err: err, latency: latency}
	}()
}

// Generate runs the race for req and returns its single winner. It returns
// an error only when both legs failed or ctx ended first.
func (r *Racer) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	rc := newRace()
	outcomes := make(chan legOutcome, 2)

	primaryCtx, cancelPrimary := context.WithTimeout(ctx, r.cfg.PrimaryTimeout)
	defer cancelPrimary()
	cancelSecondary := context.CancelFunc(func() {})
	defer func() { cancelSecondary() }()

	primaryReq := req
	primaryReq.Model = r.cfg.PrimaryModel
	r.dispatch(primaryCtx, LegPrimary, r.primary, primaryReq, outcomes)
	if err := rc.transition(StateRacing); err != nil {
		return nil, err
	}

	softDeadline := time.NewTimer(r.cfg.SoftDeadline)
	defer softDeadline.Stop()

	var (
		path       Path
		primaryErr error
	)

	handOver := func(p Path) error {
		if err := rc.transition(StateSecondaryDispatched); err != nil {
			return err
		}
		path = p
		softDeadline.Stop()

		secondaryReq := req
		secondaryReq.Model = r.cfg.SecondaryModel
		secondaryReq.Temperature = r.cfg.FallbackTemperature

		var secondaryCtx context.Context
		secondaryCtx, cancelSecondary = context.WithTimeout(ctx, r.cfg.SecondaryTimeout)
		r.dispatch(secondaryCtx, LegSecondary, r.secondary, secondaryReq, outcomes)

		r.log.Info().
			Str("path", string(p)).
			Str("model", secondaryReq.Model).
			Float64("temperature", secondaryReq.Temperature).
			Msg("Secondary dispatched")
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			rc.resolve()
			return nil, fmt.Errorf("generation: %w", ctx.Err())

		case <-softDeadline.C:
			if rc.current() != StateRacing {
				continue
			}
			r.log.Warn().
				Str("model", r.cfg.PrimaryModel).
				Dur("softDeadline", r.cfg.SoftDeadline).
				Msg("Primary exceeded soft deadline, cancelling")

			if err := rc.transition(StateCancelling); err != nil {
				return nil, err
			}
			cancelPrimary()
			primaryErr = errSoftDeadline

			if err := rc.transition(StateClearing); err != nil {
				return nil, err
			}
			if err := sleep(ctx, r.cfg.ClearancePause); err != nil {
				rc.resolve()
				return nil, fmt.Errorf("generation: clearance pause: %w", err)
			}
			if err := handOver(PathSoftDeadline); err != nil {
				return nil, err
			}

		case out := <-outcomes:
			if err := ctx.Err(); err != nil {
				rc.resolve()
				return nil, fmt.Errorf("generation: %w", err)
			}
			if out.leg == LegPrimary {
				if rc.current() != StateRacing {
					// Cancelled, or the secondary already took over.
					r.log.Debug().Err(out.err).Msg("Discarding late primary result")
					continue
				}
				if out.err == nil {
					return r.win(rc, out, PathPrimary, start), nil
				}

				primaryErr = out.err
				next := PathPrimaryFailed
				if errors.Is(out.err, ErrRateLimited) {
					next = PathRateLimited
				}
				r.log.Warn().Err(out.err).Str("model", out.model).Msg("Primary failed, handing over to secondary")
				if err := handOver(next); err != nil {
					return nil, err
				}
				continue
			}

			if out.err == nil {
				return r.win(rc, out, path, start), nil
			}
			rc.resolve()
			err := &RaceError{Primary: primaryErr, Secondary: out.err}
			r.log.Error().Err(err).Str("path", string(path)).Msg("Both models failed")
			return nil, err
		}
	}
}

func (r *Racer) win(rc *race, out legOutcome, path Path, start time.Time) *Result {
	rc.resolve()

	model := out.completion.Model
	if model == "" {
		model = out.model
	}
	res := &Result{
		Text:        out.completion.Text,
		Model:       model,
		Leg:         out.leg,
		Path:        path,
		TTFT:        out.latency,
		Elapsed:     time.Since(start),
		Transitions: rc.transitions(),
	}

	r.log.Info().
		Str("model", res.Model).
		Str("path", string(res.Path)).
		Dur("ttft", res.TTFT).
		Dur("elapsed", res.Elapsed).
		Int("chars", len(res.Text)).
		Msg("Race resolved")
	return res
}

// Direct skips the race and asks the secondary model. It is used for
// greetings and other trivial queries, with the request's own temperature and
// token budget.
func (r *Racer) Direct(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req.Model = r.cfg.SecondaryModel

	ctx, cancel := context.WithTimeout(ctx, r.cfg.SecondaryTimeout)
	defer cancel()

	c, err := r.secondary.Complete(ctx, req)
	if err == nil && c == nil {
		err = ErrMalformedResponse
	}
	latency := time.Since(start)
	if err != nil {
		r.metrics.RecordGenerationError(req.Model, errorKind(err))
		return nil, fmt.Errorf("generation: direct call to %s: %w", req.Model, err)
	}
	r.metrics.RecordGeneration(req.Model, latency.Seconds())

	model := c.Model
	if model == "" {
		model = req.Model
	}
	r.log.Info().
		Str("model", model).
		Dur("ttft", latency).
		Int("chars", len(c.Text)).
		Msg("Direct call completed")

	return &Result{
		Text:    c.Text,
		Model:   model,
		Leg:     LegSecondary,
		Path:    PathDirect,
		TTFT:    latency,
		Elapsed: latency,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
