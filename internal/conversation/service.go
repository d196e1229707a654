// Package conversation orchestrates generation runs: it resolves the
// participants of a channel, asks the generation service for posts and
// replies, puts them on the platform in thread order and brackets the whole
// run with history bookkeeping.
package conversation

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/pacing"
	"github.com/converse-demo/converse/internal/platform"
	"github.com/converse-demo/converse/internal/posting"
)

// MessagePoster posts one message under a participant's identity
type MessagePoster interface {
	Post(ctx context.Context, channelID, body string, participant models.Participant, threadTS string, historyID uint) posting.Result
}

// ReactionApplier applies reactions to a posted message
type ReactionApplier interface {
	Apply(ctx context.Context, channelID, timestamp string, names []string) posting.ReactionResult
}

// Recorder brackets a run with history bookkeeping
type Recorder interface {
	Open(ctx context.Context, channelID string, userID uint, definitionID *uint) (*history.Run, error)
	Close(ctx context.Context, run *history.Run, messagesSent int) (time.Duration, error)
	Discard(ctx context.Context, run *history.Run) error
}

// UserStore maps platform member ids to internal users
type UserStore interface {
	GetByMemberID(ctx context.Context, memberID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// DefinitionStore loads stored conversation definitions
type DefinitionStore interface {
	GetByID(ctx context.Context, id uint) (*models.ConversationDefinition, error)
}

// Archiver keeps a transcript of each completed run
type Archiver interface {
	ArchiveTranscript(ctx context.Context, summary *models.GenerationSummary) error
}

// Deps are the collaborators of a Service. Definitions and Archive are
// optional. Pacing builds one pacer per run; nil means posts are not spaced.
type Deps struct {
	Platform    platform.Platform
	Generator   generation.Generator
	Poster      MessagePoster
	Reactions   ReactionApplier
	Recorder    Recorder
	Users       UserStore
	Definitions DefinitionStore
	Archive     Archiver
	Pacing      pacing.Factory
	RunTimeout  time.Duration
	Registerer  prometheus.Registerer
}

// Service runs conversation generation
type Service struct {
	platform    platform.Platform
	generator   generation.Generator
	poster      MessagePoster
	reactions   ReactionApplier
	recorder    Recorder
	users       UserStore
	definitions DefinitionStore
	archive     Archiver
	newPacer    pacing.Factory
	runTimeout  time.Duration

	collectors *collectors
	metrics    *Metrics
	mu         sync.RWMutex

	newRand func() *rand.Rand
}

// Metrics holds run metrics
type Metrics struct {
	TotalRuns       int       `json:"total_runs"`
	FailedRuns      int       `json:"failed_runs"`
	MessagesSent    int       `json:"messages_sent"`
	SkippedItems    int       `json:"skipped_items"`
	LastRun         time.Time `json:"last_run"`
	LastRunDuration string    `json:"last_run_duration"`
	ErrorCount      int       `json:"error_count"`
}

// NewService creates a new conversation service
func NewService(deps Deps) *Service {
	newPacer := deps.Pacing
	if newPacer == nil {
		newPacer = func() pacing.Pacer { return pacing.None{} }
	}
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Service{
		platform:    deps.Platform,
		generator:   deps.Generator,
		poster:      deps.Poster,
		reactions:   deps.Reactions,
		recorder:    deps.Recorder,
		users:       deps.Users,
		definitions: deps.Definitions,
		archive:     deps.Archive,
		newPacer:    newPacer,
		runTimeout:  deps.RunTimeout,
		collectors:  newCollectors(reg),
		metrics:     &Metrics{},
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}

func (s *Service) recordRun(summary *models.GenerationSummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalRuns++
	s.metrics.LastRun = time.Now()
	if err != nil {
		s.metrics.FailedRuns++
		s.metrics.ErrorCount++
		s.collectors.runs.WithLabelValues("failed").Inc()
		return
	}

	s.metrics.MessagesSent += summary.MessagesSent()
	s.metrics.LastRunDuration = summary.Duration.String()
	for _, item := range summary.Items {
		if item.Status != models.ItemPosted {
			s.metrics.SkippedItems++
		}
	}
	s.collectors.runs.WithLabelValues("completed").Inc()
	s.collectors.duration.Observe(summary.Duration.Seconds())
}
