package comet

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is where the poll loop currently is.
type State int32

const (
	StateNegotiating State = iota
	StatePolling
	StateClassifying
	StateDispatching
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StatePolling:
		return "polling"
	case StateClassifying:
		return "classifying"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Fetcher performs one long-poll and returns the framed body.
type Fetcher interface {
	Fetch(ctx context.Context, ch Channel) ([]byte, error)
}

// KeepAlive refreshes the server-side lease on a channel.
type KeepAlive interface {
	Knock(ctx context.Context, channelName string) error
}

// DefaultKnockEvery is the number of plain iterations between knocks.
const DefaultKnockEvery = 10

// LoopConfig tunes the poll loop.
type LoopConfig struct {
	// KnockEvery: a knock replaces the counter increment once the counter
	// exceeds this value. Zero means DefaultKnockEvery.
	KnockEvery int

	// RetryDelay is the wait after the first consecutive failure; it doubles
	// per further failure up to RetryMaxDelay. Zero retries immediately.
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration

	// OnError, if set, is called with every non-fatal error.
	OnError func(error)
}

// Loop drives a negotiated channel until its context is cancelled. The
// channel, knock counter and failure count belong to the goroutine running
// Run; only State may be read concurrently.
type Loop struct {
	channel    Channel
	knockCount int
	failures   int

	fetcher Fetcher
	knocker KeepAlive
	sink    Sink
	config  LoopConfig
	logger  *zap.Logger

	state atomic.Int32
}

func NewLoop(ch Channel, fetcher Fetcher, knocker KeepAlive, sink Sink, config LoopConfig, logger *zap.Logger) *Loop {
	if config.KnockEvery <= 0 {
		config.KnockEvery = DefaultKnockEvery
	}
	if config.RetryMaxDelay > 0 && config.RetryMaxDelay < config.RetryDelay {
		config.RetryMaxDelay = config.RetryDelay
	}
	l := &Loop{
		channel: ch,
		fetcher: fetcher,
		knocker: knocker,
		sink:    sink,
		config:  config,
		logger:  logger,
	}
	l.state.Store(int32(StateNegotiating))
	return l
}

// State returns the current state. Safe for concurrent use.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Channel returns a copy of the channel. Not safe to call while Run is
// executing on another goroutine.
func (l *Loop) Channel() Channel {
	return l.channel
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run polls until ctx is cancelled and then returns nil. Poll, frame, decode
// and sink failures are reported and retried at the same offset; they never
// end the loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	l.logger.Info("polling comet channel",
		zap.String("channel", l.channel.Name),
		zap.String("baseURL", l.channel.BaseURL),
		zap.Int64("offset", l.channel.Offset),
	)

	for {
		if ctx.Err() != nil {
			l.logger.Info("comet loop stopped", zap.Int64("offset", l.channel.Offset))
			return nil
		}

		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.failures++
			l.report(err)
			l.wait(ctx, l.retryDelay())
			continue
		}
		l.failures = 0
	}
}

// iterate runs one knock-or-count step, one poll and the dispatch of its
// events.
func (l *Loop) iterate(ctx context.Context) error {
	if l.knockDue() {
		l.knock(ctx)
	}

	l.setState(StatePolling)
	body, err := l.fetcher.Fetch(ctx, l.channel)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.setState(StateClassifying)
	payload, err := ParseFrame(body)
	if err != nil {
		return err
	}
	result, err := Decode(payload)
	if err != nil {
		return err
	}

	l.adopt(result.NewOffset)

	l.setState(StateDispatching)
	for _, unit := range result.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.sink.Handle(ctx, unit); err != nil {
			l.logger.Warn("dispatching event failed", zap.String("type", unit.Tag()), zap.Error(err))
			if l.config.OnError != nil {
				l.config.OnError(err)
			}
		}
	}
	return nil
}

// knockDue advances the knock counter and reports whether this iteration
// knocks instead.
func (l *Loop) knockDue() bool {
	if l.knockCount > l.config.KnockEvery {
		l.knockCount = 0
		return true
	}
	l.knockCount++
	return false
}

func (l *Loop) knock(ctx context.Context) {
	if err := l.knocker.Knock(ctx, l.channel.Name); err != nil {
		l.logger.Debug("knock failed", zap.String("channel", l.channel.Name), zap.Error(err))
		return
	}
	l.logger.Debug("knocked", zap.String("channel", l.channel.Name))
}

func (l *Loop) adopt(offset int64) {
	if offset < l.channel.Offset {
		l.logger.Warn("server moved offset backwards",
			zap.Int64("offset", l.channel.Offset),
			zap.Int64("newOffset", offset),
		)
	}
	l.channel.Offset = offset
}

func (l *Loop) report(err error) {
	l.logger.Warn("comet poll failed",
		zap.Error(err),
		zap.Int64("offset", l.channel.Offset),
		zap.Int("consecutiveFailures", l.failures),
	)
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}

func (l *Loop) retryDelay() time.Duration {
	if l.config.RetryDelay <= 0 || l.failures == 0 {
		return 0
	}
	shift := l.failures - 1
	if shift > 16 {
		shift = 16
	}
	delay := l.config.RetryDelay * time.Duration(1<<shift) // Exponential backoff
	if l.config.RetryMaxDelay > 0 && delay > l.config.RetryMaxDelay {
		delay = l.config.RetryMaxDelay
	}
	return delay
}

func (l *Loop) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
