package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/datatypes"

	"github.com/converse-demo/converse/internal/generation"
	"github.com/converse-demo/converse/internal/history"
	"github.com/converse-demo/converse/internal/models"
	"github.com/converse-demo/converse/internal/platform"
	"github.com/converse-demo/converse/internal/posting"
)

const botID = "UBOT"

type postedMessage struct {
	ChannelID string
	TS        string
	Msg       platform.OutgoingMessage
}

type reactionCall struct {
	TS   string
	Name string
}

// fakePlatform records every call in order
type fakePlatform struct {
	mu sync.Mutex

	info    models.ChannelInfo
	members []string
	users   map[string]*models.Participant
	thread  []models.ThreadMessage

	joinErr     error
	postErr     map[string]error // keyed by message text
	reactionErr map[string]error // keyed by reaction name
	createErr   map[string]error // keyed by channel name

	joined        bool
	purpose       string
	topic         string
	posts         []postedMessage
	reactions     []reactionCall
	createdCanvas []models.Canvas
	editedCanvas  []string
	created       []string
	nextTS        int
}

func newFakePlatform(humans ...string) *fakePlatform {
	fp := &fakePlatform{
		info:    models.ChannelInfo{ID: "C1", Name: "demo", Purpose: "Demo channel", Topic: "Launch"},
		members: []string{botID},
		users: map[string]*models.Participant{
			botID: {ID: botID, Name: "converse", IsBot: true},
		},
	}
	for _, id := range humans {
		fp.members = append(fp.members, id)
		fp.users[id] = &models.Participant{
			ID:       id,
			Name:     "user-" + id,
			RealName: "User " + id,
			Avatar:   "https://avatars.example.com/" + id + ".png",
			TeamID:   "T1",
		}
	}
	return fp
}

func (f *fakePlatform) BotUserID(ctx context.Context) (string, error) { return botID, nil }

func (f *fakePlatform) ChannelInfo(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	info := f.info
	return &info, nil
}

func (f *fakePlatform) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return append([]string(nil), f.members...), nil
}

func (f *fakePlatform) JoinChannel(ctx context.Context, channelID string) error {
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = true
	f.members = append(f.members, botID)
	return nil
}

func (f *fakePlatform) SetPurpose(ctx context.Context, channelID, purpose string) error {
	f.purpose = purpose
	return nil
}

func (f *fakePlatform) SetTopic(ctx context.Context, channelID, topic string) error {
	f.topic = topic
	return nil
}

func (f *fakePlatform) CreateChannel(ctx context.Context, name string, private bool) (*models.ChannelInfo, error) {
	if err := f.createErr[name]; err != nil {
		return nil, err
	}
	f.created = append(f.created, name)
	return &models.ChannelInfo{ID: fmt.Sprintf("CNEW%d", len(f.created)), Name: name, IsPrivate: private}, nil
}

func (f *fakePlatform) UserInfo(ctx context.Context, userID string) (*models.Participant, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakePlatform) PostMessage(ctx context.Context, channelID string, msg platform.OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.postErr[msg.Text]; err != nil {
		return "", err
	}
	f.nextTS++
	ts := fmt.Sprintf("1700000000.%06d", f.nextTS)
	f.posts = append(f.posts, postedMessage{ChannelID: channelID, TS: ts, Msg: msg})
	return ts, nil
}

func (f *fakePlatform) AddReaction(ctx context.Context, channelID, timestamp, name string) error {
	if err := f.reactionErr[name]; err != nil {
		return err
	}
	f.reactions = append(f.reactions, reactionCall{TS: timestamp, Name: name})
	return nil
}

func (f *fakePlatform) ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.ThreadMessage, error) {
	return f.thread, nil
}

func (f *fakePlatform) ChannelCanvasID(ctx context.Context, channelID string) (string, error) {
	return f.info.CanvasID, nil
}

func (f *fakePlatform) CreateChannelCanvas(ctx context.Context, channelID string, canvas models.Canvas) (string, error) {
	f.createdCanvas = append(f.createdCanvas, canvas)
	return "F_CANVAS", nil
}

func (f *fakePlatform) EditCanvas(ctx context.Context, canvasID string, canvas models.Canvas) error {
	f.editedCanvas = append(f.editedCanvas, canvasID)
	return nil
}

// fakeGenerator replays scripted output. An empty author is replaced with
// the suggested author (posts) or the first participant (replies).
type fakeGenerator struct {
	posts    []models.GeneratedPost
	postErrs map[int]error
	replies  []models.GeneratedReply
	replyErr error
	canvas   models.Canvas
	specs    []models.ChannelSpec
	design   models.ChannelDesign

	onPost func(n int)

	postReqs   []generation.PostRequest
	replyReqs  []generation.ReplyRequest
	canvasReqs []generation.CanvasRequest
}

func (g *fakeGenerator) GeneratePost(ctx context.Context, req generation.PostRequest) (models.GeneratedPost, error) {
	n := len(g.postReqs)
	g.postReqs = append(g.postReqs, req)
	if g.onPost != nil {
		g.onPost(n)
	}
	if err := ctx.Err(); err != nil {
		return models.GeneratedPost{}, err
	}
	if err := g.postErrs[n]; err != nil {
		return models.GeneratedPost{}, err
	}

	post := models.GeneratedPost{Message: fmt.Sprintf("post %d", n)}
	if len(g.posts) > 0 {
		post = g.posts[min(n, len(g.posts)-1)]
	}
	if post.Author == "" {
		post.Author = "<@" + req.Author + ">"
	}
	return post, nil
}

func (g *fakeGenerator) GenerateReplies(ctx context.Context, req generation.ReplyRequest) ([]models.GeneratedReply, error) {
	g.replyReqs = append(g.replyReqs, req)
	if g.replyErr != nil {
		return nil, g.replyErr
	}

	replies := make([]models.GeneratedReply, 0, len(g.replies))
	for _, reply := range g.replies {
		if reply.Author == "" {
			reply.Author = req.ParticipantIDs[0]
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

func (g *fakeGenerator) GenerateCanvas(ctx context.Context, req generation.CanvasRequest) (models.Canvas, error) {
	g.canvasReqs = append(g.canvasReqs, req)
	return g.canvas, nil
}

func (g *fakeGenerator) GenerateChannelSet(ctx context.Context, customerName, useCase string) ([]models.ChannelSpec, error) {
	return g.specs, nil
}

func (g *fakeGenerator) DesignChannel(ctx context.Context, name, topic, description string) (models.ChannelDesign, error) {
	return g.design, nil
}

type historyStore struct {
	rows   map[uint]*models.HistoryRecord
	nextID uint
}

func (s *historyStore) Create(ctx context.Context, record *models.HistoryRecord) error {
	s.nextID++
	record.ID = s.nextID
	s.rows[record.ID] = record
	return nil
}

func (s *historyStore) SetQueryTime(ctx context.Context, id uint, ms int64) error {
	s.rows[id].QueryTime = &ms
	return nil
}

func (s *historyStore) Delete(ctx context.Context, id uint) error {
	delete(s.rows, id)
	return nil
}

type analyticsStore struct {
	rows []*models.AnalyticsRecord
}

func (s *analyticsStore) Create(ctx context.Context, record *models.AnalyticsRecord) error {
	s.rows = append(s.rows, record)
	return nil
}

type messageStore struct {
	rows []*models.MessageRecord
}

func (s *messageStore) Create(ctx context.Context, record *models.MessageRecord) error {
	s.rows = append(s.rows, record)
	return nil
}

type userStore struct {
	byMember map[string]*models.User
	nextID   uint
}

func (s *userStore) GetByMemberID(ctx context.Context, memberID string) (*models.User, error) {
	return s.byMember[memberID], nil
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	s.nextID++
	user.ID = s.nextID
	s.byMember[user.MemberID] = user
	return nil
}

type definitionStore map[uint]*models.ConversationDefinition

func (s definitionStore) GetByID(ctx context.Context, id uint) (*models.ConversationDefinition, error) {
	return s[id], nil
}

type recordingArchive struct {
	summaries []*models.GenerationSummary
}

func (a *recordingArchive) ArchiveTranscript(ctx context.Context, summary *models.GenerationSummary) error {
	a.summaries = append(a.summaries, summary)
	return nil
}

type fixture struct {
	platform  *fakePlatform
	generator *fakeGenerator
	history   *historyStore
	analytics *analyticsStore
	messages  *messageStore
	users     *userStore
	archive   *recordingArchive
	service   *Service
}

func newFixture(t *testing.T, fp *fakePlatform, gen *fakeGenerator) *fixture {
	t.Helper()
	f := &fixture{
		platform:  fp,
		generator: gen,
		history:   &historyStore{rows: map[uint]*models.HistoryRecord{}},
		analytics: &analyticsStore{},
		messages:  &messageStore{},
		users:     &userStore{byMember: map[string]*models.User{}},
		archive:   &recordingArchive{},
	}
	f.service = NewService(Deps{
		Platform:   fp,
		Generator:  gen,
		Poster:     posting.NewPoster(fp, f.messages),
		Reactions:  posting.NewReactionApplier(fp),
		Recorder:   history.NewRecorder(f.history, f.analytics),
		Users:      f.users,
		Archive:    f.archive,
		Registerer: prometheus.NewRegistry(),
	})
	return f
}

func baseParams() models.RawParameters {
	return models.RawParameters{
		Participants: "2-3",
		Posts:        "1-1",
		Replies:      "0-0",
		Tone:         "casual",
		PostLength:   "short",
		EmojiDensity: "few",
	}
}

func datatypesOf(raw models.RawParameters) datatypes.JSONType[models.RawParameters] {
	return datatypes.NewJSONType(raw)
}
