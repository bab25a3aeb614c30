package fakeplurk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/comet"
)

// DemoUsers are registered by the demo streamer; the first one is the
// account the fake server treats as logged in.
var DemoUsers = []api.User{
	{ID: 1, NickName: "me", DisplayName: "Fake Me", FullName: "Fake Plurker", Karma: 100, DefaultLang: "en"},
	{ID: 2, NickName: "alice", DisplayName: "Alice", Karma: 87.2, DefaultLang: "en"},
	{ID: 3, NickName: "bob", DisplayName: "Bob", Karma: 64.9, DefaultLang: "en"},
}

var demoQualifiers = []string{"says", "thinks", "feels", "shares", "wonders", "likes"}

// Demo publishes synthetic traffic on every open channel.
type Demo struct {
	hub      *Hub
	interval time.Duration
	tick     int
	last     api.Plurk
	logger   *zap.Logger
}

// NewDemo creates a Demo and registers DemoUsers on hub.
func NewDemo(hub *Hub, interval time.Duration, logger *zap.Logger) *Demo {
	for _, u := range DemoUsers {
		hub.AddUser(u)
	}
	return &Demo{hub: hub, interval: interval, logger: logger}
}

// Run publishes on every tick until ctx is cancelled. Call in a goroutine.
func (d *Demo) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("demo streamer started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("demo streamer stopping")
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step publishes one round: a new plurk, every third round a response to the
// previous plurk, every fifth round a notification count update.
func (d *Demo) Step() {
	d.tick++

	if d.tick%3 == 0 && d.last.PlurkID != 0 {
		responder := DemoUsers[d.tick%len(DemoUsers)]
		d.hub.Respond(d.last, responder, "says", fmt.Sprintf("reply #%d", d.tick))
	}

	owner := DemoUsers[d.tick%len(DemoUsers)]
	d.last = d.hub.Post(api.Plurk{
		OwnerID:    owner.ID,
		Qualifier:  demoQualifiers[d.tick%len(demoQualifiers)],
		Content:    fmt.Sprintf("demo plurk <b>#%d</b>", d.tick),
		ContentRaw: fmt.Sprintf("demo plurk **#%d**", d.tick),
		Lang:       "en",
	})

	if d.tick%5 == 0 {
		d.hub.Broadcast(comet.Notification{Counts: comet.NotificationCounts{Noti: int64(d.tick / 5)}})
	}

	d.logger.Debug("demo round published",
		zap.Int("tick", d.tick),
		zap.Int64("plurkID", d.last.PlurkID),
	)
}
