package collect

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/auth"
	"github.com/ternarybob/colligo/internal/telegram"
)

// progressEvery is the record interval between progress emissions
const progressEvery = 50

// Options tune a job run
type Options struct {
	// MaxCodeRetries caps rate-limited code-request retries (0 = no cap)
	MaxCodeRetries int
	// RequestsPerSecond paces remote calls
	RequestsPerSecond float64
	// NewClient overrides the registered driver, used by tests
	NewClient telegram.Factory
}

// strategy is one pagination-and-transform behavior over the shared
// job skeleton
type strategy interface {
	collect(ctx context.Context, rt *runtime) (title string, records []*Record, err error)
}

// runtime is the per-job state handed to a strategy
type runtime struct {
	client  telegram.Client
	cfg     JobConfig
	sink    interfaces.EventSink
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// throttle paces the next direct remote call. Iterator Next calls are
// not paced here: iterators yield from buffered pages and the concrete
// driver paces its own page fetches.
func (rt *runtime) throttle(ctx context.Context) error {
	return rt.limiter.Wait(ctx)
}

// Runner executes one collection job: acquire client, authorize, resolve
// target, paginate, transform, emit a single terminal outcome. The job
// owns its client connection and record buffer exclusively.
type Runner struct {
	cfg       JobConfig
	sessions  *telegram.SessionStore
	sink      interfaces.EventSink
	logger    arbor.ILogger
	auth      *auth.Service
	newClient telegram.Factory
	limiter   *rate.Limiter
}

// NewRunner creates a runner for one job configuration
func NewRunner(cfg JobConfig, sessions *telegram.SessionStore, sink interfaces.EventSink, logger arbor.ILogger, opts Options) *Runner {
	newClient := opts.NewClient
	if newClient == nil {
		newClient = telegram.NewClient
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Runner{
		cfg:       cfg,
		sessions:  sessions,
		sink:      sink,
		logger:    logger,
		auth:      auth.NewService(sink, logger, opts.MaxCodeRetries),
		newClient: newClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Supply forwards a prompt answer to the authentication flow
func (r *Runner) Supply(input string) {
	r.auth.Supply(input)
}

// Run executes the job and returns its terminal outcome. Every failure in
// the job body is converted to a Failed outcome with human-readable text;
// nothing propagates as a raw error or panic.
func (r *Runner) Run(ctx context.Context) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("mode", string(r.cfg.Mode)).Msgf("Job panicked: %v", rec)
			outcome = Failed(fmt.Sprintf("unexpected failure: %v", rec))
		}
	}()

	strat, err := strategyFor(r.cfg.Mode)
	if err != nil {
		return Failed(err.Error())
	}

	// Post-scoped links are validated before any remote call; an invalid
	// link never starts a connection.
	if r.cfg.Mode.postScoped() {
		if _, _, err := ParsePostLink(r.cfg.Link); err != nil {
			return Failed("link is not a valid post link")
		}
	}

	client, err := r.newClient(r.cfg.Credentials, r.sessions)
	if err != nil {
		return Failed(fmt.Sprintf("failed to create client: %v", err))
	}
	defer func() {
		if client.IsConnected() {
			if err := client.Disconnect(); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to disconnect client")
			}
		}
	}()

	r.sink.Emit(interfaces.StatusMessage("Initializing client"))
	if err := r.auth.EnsureAuthorized(ctx, client); err != nil {
		return r.classify(ctx, err)
	}
	if ctx.Err() != nil {
		return Cancelled()
	}

	title, records, err := strat.collect(ctx, &runtime{
		client:  client,
		cfg:     r.cfg,
		sink:    r.sink,
		limiter: r.limiter,
		logger:  r.logger,
	})
	if err != nil {
		return r.classify(ctx, err)
	}
	return Completed(title, records)
}

// classify converts a job body error into the terminal outcome
func (r *Runner) classify(ctx context.Context, err error) Outcome {
	if ctx.Err() != nil || errors.Is(err, auth.ErrCancelled) || errors.Is(err, context.Canceled) {
		return Cancelled()
	}

	var soft *softError
	if errors.As(err, &soft) {
		return Outcome{Status: StatusFailed, Reason: soft.msg, Soft: true}
	}

	if errors.Is(err, ErrInvalidLink) {
		return Failed("link is not a valid post link")
	}
	return Failed(err.Error())
}

// strategyFor routes a mode to its collector strategy
func strategyFor(mode Mode) (strategy, error) {
	switch mode {
	case ModeMembers:
		return &membersStrategy{}, nil
	case ModeMessages:
		return &messagesStrategy{}, nil
	case ModeComments:
		return &commentsStrategy{}, nil
	case ModeReactions:
		return &reactionsStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown collection mode: %q", mode)
}
