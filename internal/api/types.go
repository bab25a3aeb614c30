package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PermalinkBase is where plurk permalinks live, independent of the API host.
const PermalinkBase = "https://www.plurk.com/p/"

// Time is a timestamp in the RFC 1123 form the Plurk API uses
// ("Fri, 05 Jun 2009 23:07:13 GMT").
type Time struct {
	time.Time
}

var timeLayouts = []string{time.RFC1123, time.RFC1123Z}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q is not RFC 1123", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC1123))
}

// User is the public part of a Plurk account.
type User struct {
	ID              int64   `json:"id"`
	NickName        string  `json:"nick_name"`
	DisplayName     string  `json:"display_name"`
	FullName        string  `json:"full_name"`
	Karma           float64 `json:"karma"`
	Premium         bool    `json:"premium"`
	VerifiedAccount bool    `json:"verified_account"`
	HasProfileImage int     `json:"has_profile_image"`
	Avatar          int64   `json:"avatar"`
	Status          string  `json:"status"`
	DefaultLang     string  `json:"default_lang"`
	NameColor       string  `json:"name_color"`
}

// Name returns the display name, falling back to the nick name.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.NickName
}

// Plurk is a snapshot of a single post.
type Plurk struct {
	PlurkID         int64   `json:"plurk_id"`
	OwnerID         int64   `json:"owner_id"`
	UserID          int64   `json:"user_id"`
	Posted          Time    `json:"posted"`
	Content         string  `json:"content"`
	ContentRaw      string  `json:"content_raw"`
	Qualifier       string  `json:"qualifier"`
	Lang            string  `json:"lang"`
	PlurkType       int     `json:"plurk_type"`
	ResponseCount   int64   `json:"response_count"`
	ResponsesSeen   int64   `json:"responses_seen"`
	IsUnread        int     `json:"is_unread"`
	NoComments      int     `json:"no_comments"`
	FavoriteCount   int64   `json:"favorite_count"`
	ReplurkersCount int64   `json:"replurkers_count"`
	Anonymous       bool    `json:"anonymous"`
	Porn            bool    `json:"porn"`
	ReplurkerID     *int64  `json:"replurker_id"`
	LimitedTo       *string `json:"limited_to"`
	LastEdited      *Time   `json:"last_edited"`
}

// Permalink returns the public URL of the plurk.
func (p Plurk) Permalink() string {
	return PermalinkBase + Base36(p.PlurkID)
}

// Base36 encodes a plurk id the way permalinks do.
func Base36(id int64) string {
	return strconv.FormatInt(id, 36)
}

// Response is a snapshot of a reply to a plurk.
type Response struct {
	ID          int64  `json:"id"`
	PlurkID     int64  `json:"plurk_id"`
	UserID      int64  `json:"user_id"`
	Posted      Time   `json:"posted"`
	Content     string `json:"content"`
	ContentRaw  string `json:"content_raw"`
	Qualifier   string `json:"qualifier"`
	Lang        string `json:"lang"`
	Editability int    `json:"editability"`
	LastEdited  *Time  `json:"last_edited"`
}

// Timeline is the body of /APP/Polling/getPlurks.
type Timeline struct {
	Plurks     []Plurk         `json:"plurks"`
	PlurkUsers map[string]User `json:"plurk_users"`
}

// Owner returns the user who owns p, if the timeline carried it.
func (tl *Timeline) Owner(p Plurk) (User, bool) {
	u, ok := tl.PlurkUsers[fmt.Sprintf("%d", p.OwnerID)]
	return u, ok
}

// Profile is the body of /APP/Profile/getPublicProfile.
type Profile struct {
	UserInfo     User `json:"user_info"`
	FansCount    int  `json:"fans_count"`
	FriendsCount int  `json:"friends_count"`
}
