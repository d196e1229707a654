package platform

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
)

// EnsureMembership makes sure the bot can post into channelID. Public
// channels are joined automatically; a private channel the bot is not in
// yields a *models.MembershipError.
func EnsureMembership(ctx context.Context, p Platform, channelID string) (*models.ChannelInfo, error) {
	info, err := p.ChannelInfo(ctx, channelID)
	if err != nil {
		return nil, &models.MembershipError{ChannelID: channelID, Err: err}
	}

	botID, err := p.BotUserID(ctx)
	if err != nil {
		return nil, &models.MembershipError{ChannelID: channelID, Err: err}
	}

	members, err := p.ChannelMembers(ctx, channelID)
	if err != nil {
		return nil, &models.MembershipError{ChannelID: channelID, Private: info.IsPrivate, Err: err}
	}
	for _, id := range members {
		if id == botID {
			return info, nil
		}
	}

	if info.IsPrivate {
		return nil, &models.MembershipError{ChannelID: channelID, Private: true}
	}
	if err := p.JoinChannel(ctx, channelID); err != nil {
		return nil, &models.MembershipError{ChannelID: channelID, Err: err}
	}
	return info, nil
}

// HumanParticipants resolves channel members to profiles and drops bots.
// Members whose profile cannot be read are skipped.
func HumanParticipants(ctx context.Context, p Platform, channelID string) ([]models.Participant, error) {
	members, err := p.ChannelMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}

	humans := make([]models.Participant, 0, len(members))
	for _, id := range members {
		user, err := p.UserInfo(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.WithField("channel", channelID).Warnf("Skipping member %s: %v", id, err)
			continue
		}
		if user.IsBot {
			continue
		}
		humans = append(humans, *user)
	}
	return humans, nil
}
