package comet

import (
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/plurk-comet/internal/api"
)

// Encode renders a poll result in the wire payload shape (without the frame).
// It is the inverse of Decode and is what the fake server sends.
func Encode(result PollResult) ([]byte, error) {
	out := struct {
		NewOffset int64         `json:"new_offset"`
		Data      []ContentUnit `json:"data"`
	}{NewOffset: result.NewOffset, Data: result.Events}
	return json.Marshal(out)
}

func (r NewResponse) MarshalJSON() ([]byte, error) {
	users := r.Users
	if users == nil {
		users = map[string]api.User{}
	}
	return json.Marshal(struct {
		Type          string              `json:"type"`
		PlurkID       int64               `json:"plurk_id"`
		Plurk         api.Plurk           `json:"plurk"`
		Response      api.Response        `json:"response"`
		ResponseCount int64               `json:"response_count"`
		User          map[string]api.User `json:"user"`
	}{
		Type:          TagNewResponse,
		PlurkID:       r.PlurkID,
		Plurk:         r.Plurk,
		Response:      r.Response,
		ResponseCount: r.ResponseCount,
		User:          users,
	})
}

// new_plurk carries the plurk fields inline next to the tag.
func (p NewPlurk) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(p.Plurk)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("flattening plurk: %w", err)
	}
	fields["type"] = json.RawMessage(`"` + TagNewPlurk + `"`)
	return json.Marshal(fields)
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string             `json:"type"`
		Counts NotificationCounts `json:"counts"`
	}{Type: TagUpdateNotification, Counts: n.Counts})
}
