package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		input   string
		want    Range
		wantErr bool
	}{
		{input: "2-5", want: Range{Min: 2, Max: 5}},
		{input: "5-2", want: Range{Min: 2, Max: 5}},
		{input: " 3 - 3 ", want: Range{Min: 3, Max: 3}},
		{input: "4", want: Range{Min: 4, Max: 4}},
		{input: "", wantErr: true},
		{input: "a-b", wantErr: true},
		{input: "1-2-3", wantErr: true},
		{input: "-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRange("posts", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostLength_DefaultsToMedium(t *testing.T) {
	assert.Equal(t, PostLengthShort, ParsePostLength("Short"))
	assert.Equal(t, PostLengthLong, ParsePostLength("long"))
	assert.Equal(t, PostLengthMedium, ParsePostLength("gigantic"))
	assert.Equal(t, PostLengthMedium, ParsePostLength(""))
	assert.Equal(t, "3 to 5 sentences", PostLengthMedium.Sentences())
}

func TestParseEmojiDensity(t *testing.T) {
	d, err := ParseEmojiDensity("lot")
	require.NoError(t, err)
	assert.Equal(t, EmojiMany, d)

	_, err = ParseEmojiDensity("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseEmojiDensity("some")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseTone(t *testing.T) {
	tone, err := ParseTone(" Casual ")
	require.NoError(t, err)
	assert.Equal(t, ToneCasual, tone)

	_, err = ParseTone("sarcastic")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tone", verr.Field)
}

func TestRawParameters_Validate(t *testing.T) {
	raw := RawParameters{
		Topics:       []string{"launch, roadmap", " ", "hiring"},
		Participants: "2-4",
		Posts:        "1-3",
		Replies:      "0-2",
		PostLength:   "",
		Tone:         "casual",
		EmojiDensity: "few",
	}

	params, err := raw.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"launch", "roadmap", "hiring"}, params.Topics)
	assert.Equal(t, Range{Min: 2, Max: 4}, params.Participants)
	assert.Equal(t, PostLengthMedium, params.PostLength)

	raw.Participants = "0-3"
	_, err = raw.Validate()
	assert.ErrorIs(t, err, ErrValidation)

	raw.Participants = "2-4"
	raw.Tone = ""
	_, err = raw.Validate()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReactions_UnmarshalJSON(t *testing.T) {
	var post GeneratedPost
	require.NoError(t, json.Unmarshal([]byte(`{"author":"U1","message":"hi","reacjis":":tada:"}`), &post))
	assert.Equal(t, Reactions{":tada:"}, post.Reactions)

	require.NoError(t, json.Unmarshal([]byte(`{"author":"U1","message":"hi","reacjis":["a","b"]}`), &post))
	assert.Equal(t, Reactions{"a", "b"}, post.Reactions)

	post = GeneratedPost{}
	require.NoError(t, json.Unmarshal([]byte(`{"author":"U1","message":"hi","reacjis":""}`), &post))
	assert.Empty(t, post.Reactions)

	assert.Error(t, json.Unmarshal([]byte(`{"reacjis":42}`), &post))
}

func TestGenerationSummary(t *testing.T) {
	s := GenerationSummary{PostsSent: 3, RepliesSent: 4, Duration: 75 * time.Second}
	assert.Equal(t, 7, s.MessagesSent())
	assert.Equal(t, "1:15", s.FormattedDuration())
}

func TestMembershipError(t *testing.T) {
	err := &MembershipError{ChannelID: "C1", Private: true}
	assert.ErrorIs(t, err, ErrMembership)
	assert.Contains(t, err.Error(), "<#C1>")
	assert.Contains(t, err.Error(), "private channel")
}

func TestParticipant_PostingName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Participant{Name: "ada", RealName: "Ada Lovelace"}.PostingName())
	assert.Equal(t, "Ada", Participant{Name: "ada", DisplayName: "Ada"}.PostingName())
	assert.Equal(t, "ada", Participant{Name: "ada"}.PostingName())
}
