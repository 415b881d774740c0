package detector

import (
	"context"
	"time"

	"katari/internal/interfaces"
)

// LoadState tracks one page-load wait. It is transient: it exists only for
// the duration of a single readiness decision and is never persisted.
type LoadState int

const (
	// StateLoading: activity signals are nonzero (or unknown).
	StateLoading LoadState = iota

	// StateStableCandidate: signals read zero but the settle window is
	// still open.
	StateStableCandidate

	// StateReady: signals stayed zero for a full settle window.
	StateReady

	// StateTimedOut: the wait ceiling elapsed first. Capture proceeds
	// anyway; dashboards can contain perpetually-polling widgets.
	StateTimedOut
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateStableCandidate:
		return "stable-candidate"
	case StateReady:
		return "ready"
	case StateTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Sampler reports the page's current count of active loading signals,
// typically visible loading indicators plus pending network requests.
type Sampler func(ctx context.Context) (int, error)

// Clock abstracts time so tests can drive the wait deterministically
// instead of depending on wall-clock sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock returns the wall-clock implementation used outside tests.
func SystemClock() Clock { return systemClock{} }

// Config tunes one detector. Zero fields fall back to defaults.
type Config struct {
	// PollInterval is the sampling cadence.
	PollInterval time.Duration

	// SettleDelay is the minimum observed-quiet duration before a page is
	// declared ready.
	SettleDelay time.Duration

	// MaxWait is the overall ceiling for one wait.
	MaxWait time.Duration
}

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultSettleDelay  = 2 * time.Second
	defaultMaxWait      = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	return c
}

// Result is the outcome of one wait. Both Ready and TimedOut permit the
// caller to continue with capture.
type Result struct {
	State   LoadState
	Elapsed time.Duration
	Polls   int
}

// Detector decides when a dynamically-rendered dashboard page is done
// enough to capture, without a deterministic completion event from the
// target application. It is stateless between calls and re-entrant per
// page, including sub-pages of a multi-page report.
type Detector struct {
	cfg    Config
	clock  Clock
	logger interfaces.Logger
}

// New creates a Detector. A nil clock selects the system clock.
func New(cfg Config, clock Clock, logger interfaces.Logger) *Detector {
	if clock == nil {
		clock = systemClock{}
	}
	return &Detector{
		cfg:    cfg.withDefaults(),
		clock:  clock,
		logger: logger.With(interfaces.Field{Key: "component", Value: "detector"}),
	}
}

// Wait polls sample until the page settles or the ceiling elapses.
//
// The signal must stay zero for one full settle window before Ready is
// declared. A page quiet from the very first sample still waits out a full
// window: an initial zero reading alone never proves the render happened.
// Any nonzero reading, and any sampler error, reopens the window.
//
// Only context cancellation returns an error; TimedOut is a valid outcome,
// not a failure.
func (d *Detector) Wait(ctx context.Context, sample Sampler) (Result, error) {
	start := d.clock.Now()
	deadline := start.Add(d.cfg.MaxWait)

	state := StateLoading
	var quietSince time.Time
	polls := 0

	for {
		if err := ctx.Err(); err != nil {
			return Result{State: state, Elapsed: d.clock.Now().Sub(start), Polls: polls}, err
		}

		now := d.clock.Now()
		count, err := sample(ctx)
		polls++

		switch {
		case err != nil:
			// Sampling can fail mid-navigation; treat it as activity and
			// let the ceiling bound persistent failures.
			d.logger.Debug("sampler error, treating as activity",
				interfaces.Field{Key: "error", Value: err.Error()})
			state = StateLoading
			quietSince = time.Time{}

		case count > 0:
			if state == StateStableCandidate {
				d.logger.Debug("loading signals resumed",
					interfaces.Field{Key: "count", Value: count})
			}
			state = StateLoading
			quietSince = time.Time{}

		default:
			if quietSince.IsZero() {
				quietSince = now
				state = StateStableCandidate
			} else if now.Sub(quietSince) >= d.cfg.SettleDelay {
				elapsed := now.Sub(start)
				d.logger.Debug("page settled",
					interfaces.Field{Key: "elapsed", Value: elapsed.String()},
					interfaces.Field{Key: "polls", Value: polls})
				return Result{State: StateReady, Elapsed: elapsed, Polls: polls}, nil
			}
		}

		if !now.Before(deadline) {
			elapsed := now.Sub(start)
			d.logger.Warn("load wait ceiling reached, capturing anyway",
				interfaces.Field{Key: "elapsed", Value: elapsed.String()},
				interfaces.Field{Key: "last_state", Value: state.String()})
			return Result{State: StateTimedOut, Elapsed: elapsed, Polls: polls}, nil
		}

		if err := d.clock.Sleep(ctx, d.cfg.PollInterval); err != nil {
			return Result{State: state, Elapsed: d.clock.Now().Sub(start), Polls: polls}, err
		}
	}
}

// PageSampler combines a page's visible loading indicators and its pending
// network requests into one activity signal.
func PageSampler(page interfaces.Page, selectors []string) Sampler {
	return func(ctx context.Context) (int, error) {
		visible, err := page.CountVisible(ctx, selectors)
		if err != nil {
			return 0, err
		}
		return visible + page.PendingRequests(), nil
	}
}
