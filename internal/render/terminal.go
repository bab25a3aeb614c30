package render

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/comet"
)

// ProfileResolver looks up public profiles by user id.
type ProfileResolver interface {
	GetPublicProfile(ctx context.Context, userID int64) (*api.Profile, error)
}

const maxCachedNames = 512

// Names resolves user ids to display names and remembers the answers.
type Names struct {
	resolver ProfileResolver
	logger   *zap.Logger

	mu    sync.Mutex
	names map[int64]string
}

func NewNames(resolver ProfileResolver, logger *zap.Logger) *Names {
	return &Names{
		resolver: resolver,
		logger:   logger,
		names:    make(map[int64]string),
	}
}

// Lookup returns the display name of userID, or the id itself when the
// profile cannot be fetched. Failed lookups are not cached.
func (n *Names) Lookup(ctx context.Context, userID int64) string {
	n.mu.Lock()
	name, ok := n.names[userID]
	n.mu.Unlock()
	if ok {
		return name
	}

	fallback := strconv.FormatInt(userID, 10)
	if n.resolver == nil {
		return fallback
	}

	profile, err := n.resolver.GetPublicProfile(ctx, userID)
	if err != nil {
		n.logger.Debug("profile lookup failed", zap.Int64("userID", userID), zap.Error(err))
		return fallback
	}
	name = profile.UserInfo.Name()
	if name == "" {
		name = fallback
	}

	n.mu.Lock()
	if len(n.names) >= maxCachedNames {
		clear(n.names)
	}
	n.names[userID] = name
	n.mu.Unlock()
	return name
}

// Terminal is a comet.Sink that prints each event followed by a separator.
type Terminal struct {
	printer *Printer
	names   *Names

	mu sync.Mutex
}

func NewTerminal(out io.Writer, names *Names) *Terminal {
	return &Terminal{printer: NewPrinter(out), names: names}
}

func (t *Terminal) Handle(ctx context.Context, unit comet.ContentUnit) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.printer
	switch u := unit.(type) {
	case comet.NewPlurk:
		owner := t.names.Lookup(ctx, u.Plurk.OwnerID)
		p.header("New plurk", u.Plurk)
		p.plurkLine(u.Plurk, owner)
		p.println(u.Plurk.ContentRaw)

	case comet.NewResponse:
		owner := t.names.Lookup(ctx, u.Plurk.OwnerID)
		responder, ok := u.Responder()
		responderName := responder.Name()
		if !ok || responderName == "" {
			responderName = t.names.Lookup(ctx, u.Response.UserID)
		}
		p.header("New response", u.Plurk)
		p.plurkLine(u.Plurk, owner)
		p.println(u.Plurk.ContentRaw)
		p.println(" -------")
		p.println(
			p.timestamp(u.Response.Posted),
			p.styles.Responder.Render(responderName),
			p.qualifier(u.Response.Qualifier),
			u.Response.ContentRaw,
		)

	case comet.Notification:
		p.println(p.styles.Header.Render("Notification:"),
			fmt.Sprintf("noti=%d req=%d", u.Counts.Noti, u.Counts.Req))

	default:
		return fmt.Errorf("render: unhandled event %T", unit)
	}
	p.separator()
	return p.Err()
}
