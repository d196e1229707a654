package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Participant represents a channel member eligible to author generated content
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RealName     string `json:"real_name"`
	DisplayName  string `json:"display_name"`
	Title        string `json:"title"`
	Avatar       string `json:"avatar"`
	IsBot        bool   `json:"is_bot"`
	TeamID       string `json:"team_id,omitempty"`
	EnterpriseID string `json:"enterprise_id,omitempty"`
}

// PostingName is the username a message is posted under
func (p Participant) PostingName() string {
	switch {
	case p.RealName != "":
		return p.RealName
	case p.DisplayName != "":
		return p.DisplayName
	default:
		return p.Name
	}
}

// Reactions is a list of emoji names. Generated output sometimes carries a
// single string instead of a list; both decode to the same value.
type Reactions []string

func (r *Reactions) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("reactions must be a string or a list of strings: %w", err)
	}
	if strings.TrimSpace(single) == "" {
		*r = nil
		return nil
	}
	*r = Reactions{single}
	return nil
}

// GeneratedReply is one threaded reply produced by the generation service
type GeneratedReply struct {
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Reactions Reactions `json:"reacjis,omitempty"`
}

// Valid reports whether the reply carries both an author token and a body
func (r GeneratedReply) Valid() bool {
	return strings.TrimSpace(r.Author) != "" && strings.TrimSpace(r.Message) != ""
}

// GeneratedPost is one root message produced by the generation service
type GeneratedPost struct {
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Reactions Reactions `json:"reacjis,omitempty"`
}

// Valid reports whether the post carries both an author token and a body
func (p GeneratedPost) Valid() bool {
	return strings.TrimSpace(p.Author) != "" && strings.TrimSpace(p.Message) != ""
}

// Canvas is a generated channel document
type Canvas struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ChannelSpec describes a channel suggested by the generation service
type ChannelSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Topic       string `json:"topic,omitempty"`
	IsPrivate   int    `json:"is_private"`
}

// Private reports whether the suggested channel should be private
func (c ChannelSpec) Private() bool {
	return c.IsPrivate == 1
}

// ChannelDesign holds suggested generation settings for an existing channel
type ChannelDesign struct {
	Canvas          string   `json:"canvas"`
	Topics          []string `json:"topics,omitempty"`
	CustomPrompt    string   `json:"custom_prompt,omitempty"`
	NumParticipants string   `json:"num_participants"`
	NumPosts        string   `json:"num_posts"`
	PostLength      string   `json:"post_length"`
	Tone            string   `json:"tone"`
	EmojiDensity    string   `json:"emoji_density"`
	ThreadReplies   string   `json:"thread_replies"`
}

// RawParameters converts the design into form-shaped parameters
func (d ChannelDesign) RawParameters() RawParameters {
	return RawParameters{
		Topics:       d.Topics,
		CustomPrompt: d.CustomPrompt,
		Participants: d.NumParticipants,
		Posts:        d.NumPosts,
		Replies:      d.ThreadReplies,
		PostLength:   d.PostLength,
		Tone:         d.Tone,
		EmojiDensity: d.EmojiDensity,
		Canvas:       strings.EqualFold(d.Canvas, "yes"),
	}
}

// ChannelInfo is the subset of channel state the pipeline reads
type ChannelInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Topic      string `json:"topic"`
	Purpose    string `json:"purpose"`
	IsPrivate  bool   `json:"is_private"`
	NumMembers int    `json:"num_members"`
	CanvasID   string `json:"canvas_id,omitempty"`
}

// ThreadMessage is one message of an existing thread, re-identified where possible
type ThreadMessage struct {
	Text       string `json:"text"`
	AuthorType string `json:"author_type"` // "bot" or "user"
	AuthorID   string `json:"author_id"`
	Timestamp  string `json:"ts"`
}

// ItemKind distinguishes root posts from threaded replies
type ItemKind string

const (
	ItemPost  ItemKind = "post"
	ItemReply ItemKind = "reply"
)

// ItemStatus is the outcome of one generated item
type ItemStatus string

const (
	ItemPosted  ItemStatus = "posted"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult records what happened to one generated post or reply
type ItemResult struct {
	Kind            ItemKind   `json:"kind"`
	PostIndex       int        `json:"post_index"`
	ReplyIndex      int        `json:"reply_index,omitempty"`
	Status          ItemStatus `json:"status"`
	AuthorToken     string     `json:"author_token,omitempty"`
	AuthorID        string     `json:"author_id,omitempty"`
	Timestamp       string     `json:"ts,omitempty"`
	ThreadTimestamp string     `json:"thread_ts,omitempty"`
	Message         string     `json:"message,omitempty"`
	Reactions       []string   `json:"reactions,omitempty"`
	FailedReactions []string   `json:"failed_reactions,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// GenerationSummary is returned to the caller once a run completes
type GenerationSummary struct {
	HistoryID    uint          `json:"history_id"`
	ChannelID    string        `json:"channel_id"`
	PostsPlanned int           `json:"posts_planned"`
	PostsSent    int           `json:"posts_sent"`
	RepliesSent  int           `json:"replies_sent"`
	Participants int           `json:"participants"`
	Topics       []string      `json:"topics,omitempty"`
	CanvasStatus string        `json:"canvas_status,omitempty"`
	Duration     time.Duration `json:"duration"`
	Items        []ItemResult  `json:"items,omitempty"`
}

// MessagesSent is the total number of messages the run put on the platform
func (s GenerationSummary) MessagesSent() int {
	return s.PostsSent + s.RepliesSent
}

// FormattedDuration renders the duration as m:ss
func (s GenerationSummary) FormattedDuration() string {
	total := int(s.Duration / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
