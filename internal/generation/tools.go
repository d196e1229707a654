package generation

const (
	toolCreatePost     = "create_post"
	toolExtendThread   = "extend_thread"
	toolCreateCanvas   = "create_canvas"
	toolCreateChannels = "create_channels"
	toolDesignChannel  = "design_channel"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func reacjisProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "An optional list of standard Slack emoji used in response to this message.",
	}
}

func messageSchema(authorDescription, messageDescription string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"author":  stringProp(authorDescription),
			"message": stringProp(messageDescription),
			"reacjis": reacjisProp(),
		},
		"required": []string{"author", "message"},
	}
}

var createPostTool = Tool{
	Name:        toolCreatePost,
	Description: "Create a single Slack channel post.",
	Properties: map[string]interface{}{
		"post": messageSchema(
			"The member id of the author posting the message. This is alphanumeric only.",
			"The content of the message. Bold text is enclosed in single *, italic text in _, code in ` and strike through in ~.",
		),
	},
	Required: []string{"post"},
}

var extendThreadTool = Tool{
	Name:        toolExtendThread,
	Description: "Extend an existing Slack thread.",
	Properties: map[string]interface{}{
		"replies": map[string]interface{}{
			"type": "array",
			"items": messageSchema(
				"The member id of the author posting the reply message. This is alphanumeric only.",
				"The reply message",
			),
			"description": "Structured messages sent in reply to the thread, in order.",
		},
	},
	Required: []string{"replies"},
}

var createCanvasTool = Tool{
	Name:        toolCreateCanvas,
	Description: "Creates Slack canvas content and attaches it to a Slack channel.",
	Properties: map[string]interface{}{
		"canvas": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": stringProp("The heading for the canvas. Keep it relatively short."),
				"body":  stringProp("Rich content using Slack markdown format and emoji."),
			},
			"required": []string{"title", "body"},
		},
	},
	Required: []string{"canvas"},
}

var createChannelsTool = Tool{
	Name:        toolCreateChannels,
	Description: "Creates a set of Slack channels for a specific use case.",
	Properties: map[string]interface{}{
		"channels": map[string]interface{}{
			"type":        "array",
			"description": "The parameters to define a new channel in Slack",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        stringProp("The name of the channel in the format supported by Slack channel names"),
					"description": stringProp("A human-friendly description of the channel"),
					"topic":       stringProp("What the topic of the channel is currently about. Slack markdown format supported."),
					"is_private": map[string]interface{}{
						"type":        "integer",
						"description": "Indicates if the channel should be private or public. Use 1 for private or 0 for public.",
					},
				},
				"required": []string{"name", "description", "is_private"},
			},
		},
	},
	Required: []string{"channels"},
}

var designChannelTool = Tool{
	Name:        toolDesignChannel,
	Description: "Design a Slack channel with inputs for conversation simulation.",
	Properties: map[string]interface{}{
		"canvas": stringProp("Should this channel have a generated Slack canvas document attached to it: yes/no"),
		"topics": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "A list of topics to be discussed in the simulated conversation. Minimum 0, maximum 5 values.",
		},
		"custom_prompt":    stringProp("A customised instruction to be sent to the LLM for simulating conversation data"),
		"num_participants": stringProp("The range of people to include in the conversation. Values are: 2-3, 5-10, 10-20"),
		"num_posts":        stringProp("The range of channel posts to include in the conversation. Values are: 5-10, 11-20, 21-30, 31-50"),
		"post_length":      stringProp("The length of each channel post. Values are: short, medium, long"),
		"tone":             stringProp("The tone of the conversation. Values are: formal, casual, professional, technical, executive, legal"),
		"emoji_density":    stringProp("The approximate density of emoji in each post. Values are: few, average, many"),
		"thread_replies":   stringProp("The approximate number of replies to add to each post. Values are: 0-2, 3-5, 6-10, 11-15"),
	},
	Required: []string{"canvas", "num_participants", "num_posts", "post_length", "tone", "emoji_density", "thread_replies"},
}
