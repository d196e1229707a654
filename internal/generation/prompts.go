package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/converse-demo/converse/internal/models"
)

const (
	conversationSystem = "You are a conversation builder for Slack that can simulate conversations between humans."
	architectSystem    = "You are a Slack experience architect."
	designerSystem     = "You are a Slack channel designer."
)

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"mentions": mentions,
}).Parse(promptTemplates))

const promptTemplates = `
{{define "post"}}I am a Solution Engineer at Slack, creating a demo to showcase Slack's features using realistic conversations. Write one new post for a Slack channel.
AUTHOR: <@{{.Author}}>
{{if .Industry}}CONTEXT: {{.Industry}} industry{{if .CompanyName}}, at a company called {{.CompanyName}}{{end}}
{{end}}CHANNEL PURPOSE: {{.ChannelPurpose}}
CHANNEL TOPIC: {{.ChannelTopic}}
POST TOPIC: {{.Topic}}
LIST OF USERS: {{mentions .ParticipantIDs}}
"""
RULES:
The post should be {{.Sentences}} long.
Tone: {{.Tone}}.
Emoji: standard Slack emoji only. Use {{.EmojiDensity}} emoji in the message content. Limit reactions to 0-4 reacjis.
Mention only users from the list provided, using the <@ID> format.
Format messages in simplified markdown. For example, *bold*, _italic_, ` + "`inline code`" + `.
Structure links in the format <link_address|title of link>.
The author field must be the member id of the author, with no other characters.
{{if .CustomPrompt}}{{.CustomPrompt}}
{{end}}"""{{end}}

{{define "replies"}}I am a Solution Engineer at Slack, creating a demo to showcase the value of Slack using realistic conversations. You will read the content of an existing thread along with the channel description and current topic. You will then generate {{if lt .Count 0}}a reasonable number of{{else}}exactly {{.Count}}{{end}} additional replies to extend the conversation.
CHANNEL DESCRIPTION: {{.ChannelPurpose}}
CHANNEL TOPIC: {{.ChannelTopic}}
EXISTING CONVERSATION:
{{range .Thread}}- {{if .AuthorID}}<@{{.AuthorID}}>{{else}}unknown {{.AuthorType}}{{end}}: {{.Text}}
{{end}}LIST OF USERS: {{mentions .ParticipantIDs}}
"""
RULES:
Each message should feel authentic and be unique in structure, format and tone.
Each reply should be between 1 and 5 sentences in length.
{{if .Tone}}Tone: {{.Tone}}.
{{end}}{{if .EmojiDensity}}Use {{.EmojiDensity}} standard Slack emoji.
{{else}}Use applicable standard Slack emoji.
{{end}}Mention only users from the list provided.
Each author field must be one member id from the list, with no other characters.
Format messages in simplified markdown. For example, *bold*, _italic_, ` + "`inline code`" + `.
Structure links in the format <link_address|title of link>.
{{if .CustomPrompt}}{{.CustomPrompt}}
{{end}}"""{{end}}

{{define "canvas"}}Create a canvas for the {{.ChannelName}} channel.
The channel description is: {{.Purpose}}
The current topic is: {{.Topic}}
The following users are members of this channel and may be used in the canvas content as key contacts: {{mentions .ParticipantIDs}}
RULE: do not nest bullet points.
RULE: use rich markdown format.
RULE: make sure the title of the canvas is the first line in the body.
RULE: for bullet points use an *{{end}}

{{define "channels"}}I need to design a series of Slack channels aimed to solve for the following use case(s) for the company called {{.CustomerName}}: {{.UseCase}}. Provide suggested channel names and descriptions. Use a consistent naming pattern and prefix.{{end}}

{{define "design"}}I am a solution engineer at Slack. I need to design a Slack channel for a demonstration.
Based on the details of the channel, determine the variables required to design a simulated conversation.
CHANNEL NAME: {{.Name}}
CURRENT TOPIC: {{.Topic}}
CHANNEL DESCRIPTION: {{.Description}}{{end}}
`

type postPromptData struct {
	PostRequest
	Industry     string
	CompanyName  string
	Sentences    string
	Tone         models.Tone
	EmojiDensity models.EmojiDensity
	CustomPrompt string
}

type channelsPromptData struct {
	CustomerName string
	UseCase      string
}

type designPromptData struct {
	Name        string
	Topic       string
	Description string
}

func renderPrompt(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func mentions(ids []string) string {
	formatted := make([]string, 0, len(ids))
	for _, id := range ids {
		formatted = append(formatted, "<@"+id+">")
	}
	return strings.Join(formatted, ", ")
}
