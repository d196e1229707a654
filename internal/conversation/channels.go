package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
)

// channel names are limited to 80 lowercase characters
const maxChannelName = 80

// DesignedChannel is one suggested channel and, when requested, the channel
// created for it
type DesignedChannel struct {
	Spec    models.ChannelSpec  `json:"spec"`
	Channel *models.ChannelInfo `json:"channel,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// DesignChannels asks for a set of channels for a customer use case and
// optionally creates them. A channel that cannot be created is reported on
// its entry and does not stop the others.
func (s *Service) DesignChannels(ctx context.Context, customerName, useCase string, create bool) ([]DesignedChannel, error) {
	if strings.TrimSpace(customerName) == "" || strings.TrimSpace(useCase) == "" {
		return nil, &models.ValidationError{Field: "use_case", Reason: "customer name and use case are required"}
	}

	specs, err := s.generator.GenerateChannelSet(ctx, customerName, useCase)
	if err != nil {
		return nil, err
	}

	designed := make([]DesignedChannel, 0, len(specs))
	for _, spec := range specs {
		spec.Name = ChannelName(spec.Name)
		entry := DesignedChannel{Spec: spec}
		if create {
			info, err := s.createChannel(ctx, spec)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logrus.WithField("channel_name", spec.Name).Errorf("Failed to create channel: %v", err)
				entry.Error = err.Error()
			}
			entry.Channel = info
		}
		designed = append(designed, entry)
	}
	return designed, nil
}

func (s *Service) createChannel(ctx context.Context, spec models.ChannelSpec) (*models.ChannelInfo, error) {
	info, err := s.platform.CreateChannel(ctx, spec.Name, spec.Private())
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %s: %w", spec.Name, err)
	}

	if spec.Description != "" {
		if err := s.platform.SetPurpose(ctx, info.ID, spec.Description); err != nil {
			logrus.WithField("channel", info.ID).Warnf("Failed to set channel purpose: %v", err)
		} else {
			info.Purpose = spec.Description
		}
	}
	if spec.Topic != "" {
		if err := s.platform.SetTopic(ctx, info.ID, spec.Topic); err != nil {
			logrus.WithField("channel", info.ID).Warnf("Failed to set channel topic: %v", err)
		} else {
			info.Topic = spec.Topic
		}
	}
	return info, nil
}

// GenerateChannelDesign suggests generation parameters for a channel
func (s *Service) GenerateChannelDesign(ctx context.Context, name, topic, description string) (models.RawParameters, error) {
	if strings.TrimSpace(name) == "" {
		return models.RawParameters{}, &models.ValidationError{Field: "name", Reason: "is required"}
	}

	design, err := s.generator.DesignChannel(ctx, name, topic, description)
	if err != nil {
		return models.RawParameters{}, err
	}

	raw := design.RawParameters()
	raw.ChannelPurpose = description
	raw.ChannelTopic = topic
	return raw, nil
}

// ChannelName folds a suggested name into a valid channel name
func ChannelName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteRune('-')
			lastDash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if runes := []rune(out); len(runes) > maxChannelName {
		out = strings.TrimRight(string(runes[:maxChannelName]), "-")
	}
	return out
}
