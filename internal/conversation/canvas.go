package conversation

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/identity"
	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/platform"
)

// Canvas step outcomes
const (
	CanvasCreated = "created"
	CanvasUpdated = "updated"
	CanvasFailed  = "failed"
)

// GenerateCanvas writes a canvas for channelID from its purpose, topic and
// a handful of its members, replacing the channel canvas if there is one.
func (s *Service) GenerateCanvas(ctx context.Context, channelID string) (string, error) {
	info, err := platform.EnsureMembership(ctx, s.platform, channelID)
	if err != nil {
		return "", err
	}

	humans, err := platform.HumanParticipants(ctx, s.platform, channelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve participants: %w", err)
	}

	rng := s.newRand()
	pool := sampleParticipants(rng, humans, models.Range{Min: maxCanvasParticipants, Max: maxCanvasParticipants})

	status := s.applyCanvas(ctx, info, info.Purpose, info.Topic, pool, rng)
	if status == CanvasFailed {
		return status, fmt.Errorf("failed to write canvas for channel %s", channelID)
	}
	return status, nil
}

// applyCanvas generates a canvas and edits the existing channel canvas or
// creates one. It never fails the caller; the outcome is returned.
func (s *Service) applyCanvas(ctx context.Context, info *models.ChannelInfo, purpose, topic string, pool []models.Participant, rng *rand.Rand) string {
	log := logrus.WithField("channel", info.ID)

	ids := identity.IDs(pool)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	canvas, err := s.generator.GenerateCanvas(ctx, generation.CanvasRequest{
		ChannelName:    info.Name,
		Purpose:        purpose,
		Topic:          topic,
		ParticipantIDs: ids,
	})
	if err != nil {
		log.Errorf("Failed to generate canvas: %v", err)
		return CanvasFailed
	}

	if info.CanvasID != "" {
		if err := s.platform.EditCanvas(ctx, info.CanvasID, canvas); err != nil {
			log.Errorf("Failed to update canvas %s: %v", info.CanvasID, err)
			return CanvasFailed
		}
		log.Infof("Updated canvas %s", info.CanvasID)
		return CanvasUpdated
	}

	canvasID, err := s.platform.CreateChannelCanvas(ctx, info.ID, canvas)
	if err != nil {
		log.Errorf("Failed to create canvas: %v", err)
		return CanvasFailed
	}
	info.CanvasID = canvasID
	log.Infof("Created canvas %s", canvasID)
	return CanvasCreated
}
