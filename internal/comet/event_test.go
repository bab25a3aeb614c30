package comet

import (
	"errors"
	"testing"

	"github.com/dgnsrekt/plurk-comet/internal/api"
)

func TestDecode_NewPlurk(t *testing.T) {
	payload := `{"new_offset": 42, "data": [{"type":"new_plurk","plurk_id":100,"owner_id":7,"user_id":7,
		"posted":"Fri, 05 Jun 2009 23:07:13 GMT","content":"<b>hi</b>","content_raw":"**hi**","qualifier":"says"}]}`

	result, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewOffset != 42 {
		t.Errorf("expected new offset 42, got %d", result.NewOffset)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}

	np, ok := result.Events[0].(NewPlurk)
	if !ok {
		t.Fatalf("expected NewPlurk, got %T", result.Events[0])
	}
	if np.Plurk.PlurkID != 100 || np.Plurk.OwnerID != 7 || np.Plurk.Qualifier != "says" {
		t.Errorf("unexpected plurk: %+v", np.Plurk)
	}
	if np.Plurk.Posted.Year() != 2009 {
		t.Errorf("expected posted in 2009, got %v", np.Plurk.Posted.Time)
	}
}

func TestDecode_AllVariantsInOrder(t *testing.T) {
	payload := `{"new_offset": 9, "data": [
		{"type": "update_notification", "counts": {"noti": 3, "req": 1}},
		{"type": "new_response", "plurk_id": 100, "response_count": 2,
		 "plurk": {"plurk_id": 100, "owner_id": 7, "content_raw": "post"},
		 "response": {"id": 555, "plurk_id": 100, "user_id": 8, "content_raw": "reply", "qualifier": "asks"},
		 "user": {"8": {"id": 8, "display_name": "Eight"}}},
		{"type": "new_plurk", "plurk_id": 101, "owner_id": 7}
	]}`

	result, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Events))
	}

	n, ok := result.Events[0].(Notification)
	if !ok || n.Counts != (NotificationCounts{Noti: 3, Req: 1}) {
		t.Errorf("unexpected first event: %#v", result.Events[0])
	}

	r, ok := result.Events[1].(NewResponse)
	if !ok {
		t.Fatalf("expected NewResponse, got %T", result.Events[1])
	}
	if r.PlurkID != 100 || r.ResponseCount != 2 || r.Response.ID != 555 || r.Plurk.OwnerID != 7 {
		t.Errorf("unexpected response: %+v", r)
	}
	if u, ok := r.Responder(); !ok || u.DisplayName != "Eight" {
		t.Errorf("expected responder Eight, got %+v (found=%v)", u, ok)
	}

	if p, ok := result.Events[2].(NewPlurk); !ok || p.Plurk.PlurkID != 101 {
		t.Errorf("unexpected third event: %#v", result.Events[2])
	}
}

func TestDecode_NullData(t *testing.T) {
	result, err := Decode([]byte(`{"new_offset": 5, "data": null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewOffset != 5 || result.Events != nil {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestDecode_UnknownTagFailsWholeBatch(t *testing.T) {
	payload := `{"new_offset": 42, "data": [
		{"type": "new_plurk", "plurk_id": 100},
		{"type": "unknown_tag"}
	]}`

	result, err := Decode([]byte(payload))
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
	if result.Events != nil || result.NewOffset != 0 {
		t.Errorf("expected no partial result, got %+v", result)
	}

	var pde *PayloadDecodeError
	if !errors.As(err, &pde) {
		t.Fatalf("expected PayloadDecodeError, got %T", err)
	}
	if pde.Index != 1 || pde.Tag != "unknown_tag" {
		t.Errorf("expected failure at index 1 with tag unknown_tag, got index %d tag %q", pde.Index, pde.Tag)
	}
	if !errors.Is(err, ErrUnknownEvent) {
		t.Error("expected ErrUnknownEvent in chain")
	}
}

func TestDecode_ShapeErrors(t *testing.T) {
	payloads := map[string]string{
		"malformed json":         `{"new_offset": 1, "data": [`,
		"missing new_offset":     `{"data": []}`,
		"string offset":          `{"new_offset": "1", "data": []}`,
		"missing tag":            `{"new_offset": 1, "data": [{"plurk_id": 1}]}`,
		"null element":           `{"new_offset": 1, "data": [null]}`,
		"plurk without id":       `{"new_offset": 1, "data": [{"type": "new_plurk"}]}`,
		"plurk id wrong type":    `{"new_offset": 1, "data": [{"type": "new_plurk", "plurk_id": "x"}]}`,
		"response missing body":  `{"new_offset": 1, "data": [{"type": "new_response", "plurk_id": 1, "plurk": {}}]}`,
		"notification no counts": `{"new_offset": 1, "data": [{"type": "update_notification"}]}`,
		"bad timestamp":          `{"new_offset": 1, "data": [{"type": "new_plurk", "plurk_id": 1, "posted": "yesterday"}]}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(payload))
			var pde *PayloadDecodeError
			if !errors.As(err, &pde) {
				t.Fatalf("expected PayloadDecodeError, got %v", err)
			}
		})
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	in := PollResult{
		NewOffset: 77,
		Events: []ContentUnit{
			NewPlurk{Plurk: api.Plurk{PlurkID: 1, OwnerID: 2, ContentRaw: "hello"}},
			NewResponse{
				PlurkID:  1,
				Plurk:    api.Plurk{PlurkID: 1, OwnerID: 2},
				Response: api.Response{ID: 3, PlurkID: 1, UserID: 4, ContentRaw: "hey"},
				Users:    map[string]api.User{"4": {ID: 4, DisplayName: "Four"}},
			},
			Notification{Counts: NotificationCounts{Noti: 1}},
		},
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v (payload %s)", err, data)
	}
	if out.NewOffset != 77 || len(out.Events) != 3 {
		t.Fatalf("unexpected result: %+v", out)
	}
	for i := range in.Events {
		if in.Events[i].Tag() != out.Events[i].Tag() {
			t.Errorf("event %d: expected %s, got %s", i, in.Events[i].Tag(), out.Events[i].Tag())
		}
	}
	if p := out.Events[0].(NewPlurk); p.Plurk.ContentRaw != "hello" {
		t.Errorf("inline plurk fields lost: %+v", p.Plurk)
	}
}
