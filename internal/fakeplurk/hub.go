package fakeplurk

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/comet"
)

var ErrUnknownChannel = errors.New("unknown channel")

// maxRetained caps the events kept per channel; older ones fall off the
// front and their offsets are no longer served.
const maxRetained = 1000

// channel is the server side of one comet channel. Event i has offset
// base+i+1, so the offset after the newest event is base+len(events).
type channel struct {
	name     string
	events   []comet.ContentUnit
	base     int64
	knocks   int
	lastSeen time.Time
	// wake is closed and replaced on every publish.
	wake chan struct{}
}

func (c *channel) end() int64 {
	return c.base + int64(len(c.events))
}

// Hub holds the channels, users and timeline of the fake server.
type Hub struct {
	prefix string
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	channels map[string]*channel
	users    map[int64]api.User
	plurks   []api.Plurk
	nextID   int64
	nextResp int64
}

func NewHub(prefix string, logger *zap.Logger) *Hub {
	return &Hub{
		prefix:   prefix,
		logger:   logger,
		now:      time.Now,
		channels: make(map[string]*channel),
		users:    make(map[int64]api.User),
		nextID:   1,
		nextResp: 1,
	}
}

// Open creates a channel and returns its name.
func (h *Hub) Open() string {
	name := h.prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")

	h.mu.Lock()
	h.channels[name] = &channel{
		name:     name,
		lastSeen: h.now(),
		wake:     make(chan struct{}),
	}
	h.mu.Unlock()

	h.logger.Debug("channel opened", zap.String("channel", name))
	return name
}

// Channels returns the open channel names in sorted order.
func (h *Hub) Channels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.channels))
	for name := range h.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Publish appends events to a channel, wakes its pending poll and returns
// the channel's new offset.
func (h *Hub) Publish(name string, events ...comet.ContentUnit) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[name]
	if !ok {
		return 0, ErrUnknownChannel
	}
	h.publishLocked(ch, events)
	return ch.end(), nil
}

// Broadcast publishes events to every open channel.
func (h *Hub) Broadcast(events ...comet.ContentUnit) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.channels {
		h.publishLocked(ch, events)
	}
}

func (h *Hub) publishLocked(ch *channel, events []comet.ContentUnit) {
	if len(events) == 0 {
		return
	}
	ch.events = append(ch.events, events...)
	if over := len(ch.events) - maxRetained; over > 0 {
		ch.events = append([]comet.ContentUnit(nil), ch.events[over:]...)
		ch.base += int64(over)
	}
	close(ch.wake)
	ch.wake = make(chan struct{})
}

// Since returns the events after offset along with a channel that is closed
// on the next publish. A negative offset or one past the end yields no
// events and the current end offset.
func (h *Hub) Since(name string, offset int64) (comet.PollResult, <-chan struct{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[name]
	if !ok {
		return comet.PollResult{}, nil, ErrUnknownChannel
	}
	ch.lastSeen = h.now()

	result := comet.PollResult{NewOffset: ch.end()}
	if offset >= 0 && offset < ch.end() {
		start := max(offset, ch.base) - ch.base
		result.Events = append([]comet.ContentUnit(nil), ch.events[start:]...)
	}
	return result, ch.wake, nil
}

// Knock refreshes the channel lease and counts the knock.
func (h *Hub) Knock(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[name]
	if !ok {
		return ErrUnknownChannel
	}
	ch.knocks++
	ch.lastSeen = h.now()
	return nil
}

// Knocks returns how many knocks a channel received.
func (h *Hub) Knocks(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.channels[name]; ok {
		return ch.knocks
	}
	return 0
}

// Sweep drops channels idle for longer than ttl and returns how many went.
func (h *Hub) Sweep(ttl time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-ttl)
	count := 0
	for name, ch := range h.channels {
		if ch.lastSeen.Before(cutoff) {
			close(ch.wake)
			delete(h.channels, name)
			count++
		}
	}
	return count
}

// Run sweeps idle channels until ctx is cancelled. Call in a goroutine.
func (h *Hub) Run(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub stopping")
			return
		case <-ticker.C:
			if n := h.Sweep(ttl); n > 0 {
				h.logger.Debug("swept idle channels", zap.Int("count", n))
			}
		}
	}
}

// AddUser registers a user for profile lookups and timelines.
func (h *Hub) AddUser(u api.User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[u.ID] = u
}

// User returns a registered user.
func (h *Hub) User(id int64) (api.User, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.users[id]
	return u, ok
}

// Post assigns an id and timestamp to p, records it on the timeline and
// broadcasts it as a new plurk.
func (h *Hub) Post(p api.Plurk) api.Plurk {
	h.mu.Lock()
	defer h.mu.Unlock()

	p.PlurkID = h.nextID
	h.nextID++
	if p.UserID == 0 {
		p.UserID = p.OwnerID
	}
	if p.Posted.IsZero() {
		p.Posted = api.Time{Time: h.now().UTC().Truncate(time.Second)}
	}
	h.plurks = append(h.plurks, p)

	for _, ch := range h.channels {
		h.publishLocked(ch, []comet.ContentUnit{comet.NewPlurk{Plurk: p}})
	}
	return p
}

// Respond broadcasts a response to plurk p from user u.
func (h *Hub) Respond(p api.Plurk, u api.User, qualifier, content string) comet.NewResponse {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.plurks {
		if h.plurks[i].PlurkID == p.PlurkID {
			h.plurks[i].ResponseCount++
			p = h.plurks[i]
		}
	}

	event := comet.NewResponse{
		PlurkID:       p.PlurkID,
		Plurk:         p,
		ResponseCount: p.ResponseCount,
		Response: api.Response{
			ID:         h.nextResp,
			PlurkID:    p.PlurkID,
			UserID:     u.ID,
			Posted:     api.Time{Time: h.now().UTC().Truncate(time.Second)},
			Content:    content,
			ContentRaw: content,
			Qualifier:  qualifier,
		},
		Users: map[string]api.User{strconv.FormatInt(u.ID, 10): u},
	}
	h.nextResp++

	for _, ch := range h.channels {
		h.publishLocked(ch, []comet.ContentUnit{event})
	}
	return event
}

// Timeline returns the plurks posted after since, newest first, with their
// owners.
func (h *Hub) Timeline(since time.Time) api.Timeline {
	h.mu.Lock()
	defer h.mu.Unlock()

	tl := api.Timeline{Plurks: []api.Plurk{}, PlurkUsers: map[string]api.User{}}
	for i := len(h.plurks) - 1; i >= 0; i-- {
		p := h.plurks[i]
		if !p.Posted.After(since) {
			continue
		}
		tl.Plurks = append(tl.Plurks, p)
		if u, ok := h.users[p.OwnerID]; ok {
			tl.PlurkUsers[strconv.FormatInt(u.ID, 10)] = u
		}
	}
	return tl
}
