package comet

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Client negotiates a channel and streams it into a sink.
type Client struct {
	requester Requester
	poller    *Poller
	knocker   *Knocker
	config    LoopConfig
	logger    *zap.Logger
}

func NewClient(requester Requester, poller *Poller, knocker *Knocker, config LoopConfig, logger *zap.Logger) *Client {
	return &Client{
		requester: requester,
		poller:    poller,
		knocker:   knocker,
		config:    config,
		logger:    logger,
	}
}

// Stream negotiates a fresh channel and runs a poll loop on it until ctx is
// cancelled. Only a negotiation failure is returned as an error.
func (c *Client) Stream(ctx context.Context, sink Sink) error {
	ch, err := Negotiate(ctx, c.requester)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("starting comet stream: %w", err)
	}
	c.logger.Debug("negotiated comet channel", zap.Stringer("channel", ch))

	return NewLoop(*ch, c.poller, c.knocker, sink, c.config, c.logger).Run(ctx)
}
