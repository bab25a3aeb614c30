package comet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgnsrekt/plurk-comet/internal/api"
)

// Event tags as they appear in the "type" field on the wire.
const (
	TagNewResponse        = "new_response"
	TagNewPlurk           = "new_plurk"
	TagUpdateNotification = "update_notification"
)

// ContentUnit is one decoded realtime event. The set of implementations is
// closed: NewResponse, NewPlurk and Notification. Consumers should switch on
// the concrete type and treat the default branch as a programming error.
type ContentUnit interface {
	Tag() string
	contentUnit()
}

// NewResponse is a reply added to a plurk the user can see.
type NewResponse struct {
	PlurkID       int64
	Plurk         api.Plurk
	Response      api.Response
	ResponseCount int64
	Users         map[string]api.User // keyed by user id as a string
}

// Responder returns the author of the response, if the event carried it.
func (r NewResponse) Responder() (api.User, bool) {
	u, ok := r.Users[fmt.Sprintf("%d", r.Response.UserID)]
	return u, ok
}

// NewPlurk is a freshly posted plurk.
type NewPlurk struct {
	Plurk api.Plurk
}

// NotificationCounts are the unread notification and friend request counts.
type NotificationCounts struct {
	Noti int64 `json:"noti"`
	Req  int64 `json:"req"`
}

// Notification reports updated notification counts.
type Notification struct {
	Counts NotificationCounts
}

func (NewResponse) Tag() string  { return TagNewResponse }
func (NewPlurk) Tag() string     { return TagNewPlurk }
func (Notification) Tag() string { return TagUpdateNotification }

func (NewResponse) contentUnit()  {}
func (NewPlurk) contentUnit()     {}
func (Notification) contentUnit() {}

// PollResult is the outcome of one successful poll.
type PollResult struct {
	NewOffset int64
	Events    []ContentUnit // nil when the server sent "data": null
}

type envelope struct {
	NewOffset *int64            `json:"new_offset"`
	Data      []json.RawMessage `json:"data"`
}

type tagged struct {
	Type string `json:"type"`
}

type responseWire struct {
	PlurkID       *int64              `json:"plurk_id"`
	Plurk         *api.Plurk          `json:"plurk"`
	Response      *api.Response       `json:"response"`
	ResponseCount int64               `json:"response_count"`
	User          map[string]api.User `json:"user"`
}

type notificationWire struct {
	Counts *NotificationCounts `json:"counts"`
}

// Decode parses a payload of the form {"new_offset": n, "data": [...]}.
// Decoding is all or nothing: if any element fails, no events are returned.
func Decode(payload []byte) (PollResult, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return PollResult{}, &PayloadDecodeError{Index: -1, Err: err}
	}
	if env.NewOffset == nil {
		return PollResult{}, &PayloadDecodeError{Index: -1, Err: errors.New("missing new_offset")}
	}

	result := PollResult{NewOffset: *env.NewOffset}
	if env.Data == nil {
		return result, nil
	}

	events := make([]ContentUnit, 0, len(env.Data))
	for i, raw := range env.Data {
		unit, err := decodeUnit(raw)
		if err != nil {
			var pe *PayloadDecodeError
			if errors.As(err, &pe) {
				pe.Index = i
				return PollResult{}, pe
			}
			return PollResult{}, &PayloadDecodeError{Index: i, Err: err}
		}
		events = append(events, unit)
	}
	result.Events = events
	return result, nil
}

func decodeUnit(raw json.RawMessage) (ContentUnit, error) {
	var t tagged
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}

	switch t.Type {
	case TagNewResponse:
		var w responseWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: err}
		}
		if w.PlurkID == nil || w.Plurk == nil || w.Response == nil {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: errors.New("plurk_id, plurk and response are required")}
		}
		return NewResponse{
			PlurkID:       *w.PlurkID,
			Plurk:         *w.Plurk,
			Response:      *w.Response,
			ResponseCount: w.ResponseCount,
			Users:         w.User,
		}, nil

	case TagNewPlurk:
		var p api.Plurk
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: err}
		}
		if p.PlurkID == 0 {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: errors.New("plurk_id is required")}
		}
		return NewPlurk{Plurk: p}, nil

	case TagUpdateNotification:
		var w notificationWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: err}
		}
		if w.Counts == nil {
			return nil, &PayloadDecodeError{Tag: t.Type, Err: errors.New("counts is required")}
		}
		return Notification{Counts: *w.Counts}, nil

	case "":
		return nil, errors.New("missing type tag")

	default:
		return nil, &PayloadDecodeError{Tag: t.Type, Err: ErrUnknownEvent}
	}
}
