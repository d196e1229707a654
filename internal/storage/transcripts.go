package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/models"
)

// Transcript is the archived record of one completed run
type Transcript struct {
	ArchivedAt time.Time                 `json:"archived_at"`
	Summary    *models.GenerationSummary `json:"summary"`
}

// TranscriptArchive writes run transcripts as JSON blobs named
// <channel>/<yyyy-mm-dd>/<history id>.json
type TranscriptArchive struct {
	store BlobStore
	now   func() time.Time
}

// NewTranscriptArchive creates a new transcript archive
func NewTranscriptArchive(store BlobStore) *TranscriptArchive {
	return &TranscriptArchive{store: store, now: time.Now}
}

// TranscriptName is the blob name of a run's transcript
func TranscriptName(channelID string, historyID uint, at time.Time) string {
	return path.Join(channelID, at.UTC().Format("2006-01-02"), fmt.Sprintf("%d.json", historyID))
}

// ArchiveTranscript stores the summary of a completed run
func (a *TranscriptArchive) ArchiveTranscript(ctx context.Context, summary *models.GenerationSummary) error {
	now := a.now()
	data, err := json.MarshalIndent(Transcript{ArchivedAt: now.UTC(), Summary: summary}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	name := TranscriptName(summary.ChannelID, summary.HistoryID, now)
	if err := a.store.Put(ctx, name, data); err != nil {
		return err
	}

	logrus.WithField("blob", name).Info("Archived transcript")
	return nil
}

// List returns transcript names for a channel, newest day first. An empty
// channelID lists every transcript.
func (a *TranscriptArchive) List(ctx context.Context, channelID string) ([]string, error) {
	prefix := ""
	if channelID != "" {
		prefix = channelID + "/"
	}

	names, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(names)
	return names, nil
}

// Prune deletes the transcripts of channelID archived on days before
// cutoff and returns how many were removed. An empty channelID prunes every
// channel. Blobs that do not follow the transcript naming are left alone.
func (a *TranscriptArchive) Prune(ctx context.Context, channelID string, cutoff time.Time) (int, error) {
	names, err := a.List(ctx, channelID)
	if err != nil {
		return 0, err
	}

	day := cutoff.UTC().Truncate(24 * time.Hour)
	deleted := 0
	for _, name := range names {
		archived, _, ok := parseTranscriptName(name)
		if !ok || !archived.Before(day) {
			continue
		}
		if err := a.store.Delete(ctx, name); err != nil {
			return deleted, fmt.Errorf("failed to prune transcript %s: %w", name, err)
		}
		deleted++
	}

	if deleted > 0 {
		logrus.WithField("channel", channelID).Infof("Pruned %d transcripts archived before %s", deleted, day.Format("2006-01-02"))
	}
	return deleted, nil
}

// parseTranscriptName splits <channel>/<yyyy-mm-dd>/<history id>.json
func parseTranscriptName(name string) (day time.Time, historyID uint64, ok bool) {
	parts := strings.Split(name, "/")
	if len(parts) < 3 {
		return time.Time{}, 0, false
	}
	day, err := time.Parse("2006-01-02", parts[len(parts)-2])
	if err != nil {
		return time.Time{}, 0, false
	}
	historyID, err = strconv.ParseUint(strings.TrimSuffix(parts[len(parts)-1], ".json"), 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return day, historyID, true
}

// sortNewestFirst orders transcripts by day, then history id, both
// descending. Names that do not parse sort last.
func sortNewestFirst(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		di, hi, oki := parseTranscriptName(names[i])
		dj, hj, okj := parseTranscriptName(names[j])
		switch {
		case oki != okj:
			return oki
		case !oki:
			return names[i] > names[j]
		case !di.Equal(dj):
			return di.After(dj)
		case hi != hj:
			return hi > hj
		}
		return names[i] < names[j]
	})
}

// Load reads one transcript
func (a *TranscriptArchive) Load(ctx context.Context, name string) (*Transcript, error) {
	data, err := a.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", name, err)
	}
	return &transcript, nil
}
