package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Tone of the generated conversation
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
	ToneTechnical    Tone = "technical"
	ToneExecutive    Tone = "executive"
	ToneLegal        Tone = "legal"
)

// ParseTone validates a tone key
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneFormal, ToneCasual, ToneProfessional, ToneTechnical, ToneExecutive, ToneLegal:
		return t, nil
	case "":
		return "", &ValidationError{Field: "tone", Reason: "is required"}
	default:
		return "", &ValidationError{Field: "tone", Reason: fmt.Sprintf("unknown tone %q", s)}
	}
}

// PostLength bucket for generated posts
type PostLength string

const (
	PostLengthShort  PostLength = "short"
	PostLengthMedium PostLength = "medium"
	PostLengthLong   PostLength = "long"
)

// ParsePostLength never fails: unrecognized keys fall back to medium
func ParsePostLength(s string) PostLength {
	switch l := PostLength(strings.ToLower(strings.TrimSpace(s))); l {
	case PostLengthShort, PostLengthMedium, PostLengthLong:
		return l
	default:
		return PostLengthMedium
	}
}

// Sentences is the approximate length hint given to the generation service
func (l PostLength) Sentences() string {
	switch l {
	case PostLengthShort:
		return "1 to 2 sentences"
	case PostLengthLong:
		return "6 to 10 sentences"
	default:
		return "3 to 5 sentences"
	}
}

// EmojiDensity of generated message bodies
type EmojiDensity string

const (
	EmojiFew     EmojiDensity = "few"
	EmojiAverage EmojiDensity = "average"
	EmojiMany    EmojiDensity = "many"
)

// ParseEmojiDensity validates a density key; "lot" is accepted as "many"
func ParseEmojiDensity(s string) (EmojiDensity, error) {
	switch d := strings.ToLower(strings.TrimSpace(s)); d {
	case "few":
		return EmojiFew, nil
	case "average":
		return EmojiAverage, nil
	case "many", "lot":
		return EmojiMany, nil
	case "":
		return "", &ValidationError{Field: "emoji_density", Reason: "is required"}
	default:
		return "", &ValidationError{Field: "emoji_density", Reason: fmt.Sprintf("unknown density %q", s)}
	}
}

// Range is an inclusive-min integer range parsed from "a-b"
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ParseRange parses "a-b" (or a single "a") into a Range. The bounds are
// ordered, so "3-2" and "2-3" are the same range.
func ParseRange(field, s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, &ValidationError{Field: field, Reason: "is required"}
	}

	parts := strings.Split(s, "-")
	if len(parts) > 2 {
		return Range{}, &ValidationError{Field: field, Reason: fmt.Sprintf("malformed range %q", s)}
	}

	ints := make([]int, 0, 2)
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Range{}, &ValidationError{Field: field, Reason: fmt.Sprintf("malformed range %q", s)}
		}
		if n < 0 {
			return Range{}, &ValidationError{Field: field, Reason: "must not be negative"}
		}
		ints = append(ints, n)
	}

	r := Range{Min: ints[0], Max: ints[0]}
	if len(ints) == 2 {
		r.Max = ints[1]
		if r.Min > r.Max {
			r.Min, r.Max = r.Max, r.Min
		}
	}
	return r, nil
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// RawParameters is the loosely-typed form state submitted by a caller
type RawParameters struct {
	Industry       string   `json:"industry,omitempty"`
	CompanyName    string   `json:"company_name,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	CustomPrompt   string   `json:"custom_prompt,omitempty"`
	Participants   string   `json:"participants"`
	Posts          string   `json:"posts"`
	Replies        string   `json:"replies"`
	PostLength     string   `json:"post_length"`
	Tone           string   `json:"tone"`
	EmojiDensity   string   `json:"emoji_density"`
	ChannelPurpose string   `json:"channel_purpose,omitempty"`
	ChannelTopic   string   `json:"channel_topic,omitempty"`
	Canvas         bool     `json:"canvas,omitempty"`
	DefinitionID   *uint    `json:"definition_id,omitempty"`
}

// GenerationParameters is the validated, immutable input of one run
type GenerationParameters struct {
	Industry       string
	CompanyName    string
	Topics         []string
	CustomPrompt   string
	Participants   Range
	Posts          Range
	Replies        Range
	PostLength     PostLength
	Tone           Tone
	EmojiDensity   EmojiDensity
	ChannelPurpose string
	ChannelTopic   string
	Canvas         bool
	DefinitionID   *uint
}

// Validate turns raw form state into GenerationParameters. Missing required
// selections are rejected; only the post length has a documented default.
func (r RawParameters) Validate() (GenerationParameters, error) {
	participants, err := ParseRange("participants", r.Participants)
	if err != nil {
		return GenerationParameters{}, err
	}
	if participants.Min < 1 {
		return GenerationParameters{}, &ValidationError{Field: "participants", Reason: "must include at least one participant"}
	}

	posts, err := ParseRange("posts", r.Posts)
	if err != nil {
		return GenerationParameters{}, err
	}

	replies, err := ParseRange("replies", r.Replies)
	if err != nil {
		return GenerationParameters{}, err
	}

	tone, err := ParseTone(r.Tone)
	if err != nil {
		return GenerationParameters{}, err
	}

	density, err := ParseEmojiDensity(r.EmojiDensity)
	if err != nil {
		return GenerationParameters{}, err
	}

	return GenerationParameters{
		Industry:       strings.TrimSpace(r.Industry),
		CompanyName:    strings.TrimSpace(r.CompanyName),
		Topics:         CleanTopics(r.Topics),
		CustomPrompt:   strings.TrimSpace(r.CustomPrompt),
		Participants:   participants,
		Posts:          posts,
		Replies:        replies,
		PostLength:     ParsePostLength(r.PostLength),
		Tone:           tone,
		EmojiDensity:   density,
		ChannelPurpose: strings.TrimSpace(r.ChannelPurpose),
		ChannelTopic:   strings.TrimSpace(r.ChannelTopic),
		Canvas:         r.Canvas,
		DefinitionID:   r.DefinitionID,
	}, nil
}

// CleanTopics trims topics, splits comma-separated entries and drops blanks
func CleanTopics(topics []string) []string {
	var cleaned []string
	for _, topic := range topics {
		for _, part := range strings.Split(topic, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cleaned = append(cleaned, part)
			}
		}
	}
	return cleaned
}
