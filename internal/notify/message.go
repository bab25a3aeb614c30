package notify

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/plurk-comet/internal/comet"
)

// Message is one ntfy post.
type Message struct {
	Title string
	Body  string
	Tags  string // extra tags appended to the configured ones
	Click string
}

// FormatMessage turns an event into a notification. ok is false for events
// not worth a push, such as notification counters that are all zero.
func FormatMessage(unit comet.ContentUnit) (msg Message, ok bool) {
	switch u := unit.(type) {
	case comet.NewPlurk:
		return Message{
			Title: fmt.Sprintf("New plurk %s", u.Plurk.Qualifier),
			Body:  body(u.Plurk.ContentRaw, u.Plurk.Content),
			Tags:  "new",
			Click: u.Plurk.Permalink(),
		}, true

	case comet.NewResponse:
		who := fmt.Sprintf("user %d", u.Response.UserID)
		if user, found := u.Responder(); found {
			who = user.Name()
		}
		return Message{
			Title: fmt.Sprintf("%s %s (%d responses)", who, u.Response.Qualifier, u.ResponseCount),
			Body:  body(u.Response.ContentRaw, u.Response.Content),
			Tags:  "leftwards_arrow_with_hook",
			Click: u.Plurk.Permalink(),
		}, true

	case comet.Notification:
		if u.Counts.Noti == 0 && u.Counts.Req == 0 {
			return Message{}, false
		}
		return Message{
			Title: "Plurk notifications",
			Body:  fmt.Sprintf("Notifications: %d\nFriend requests: %d", u.Counts.Noti, u.Counts.Req),
			Tags:  "bell",
		}, true
	}
	return Message{}, false
}

func body(raw, rendered string) string {
	if s := strings.TrimSpace(raw); s != "" {
		return s
	}
	if s := strings.TrimSpace(rendered); s != "" {
		return s
	}
	return "(empty)"
}
