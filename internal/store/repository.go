package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/converse-demo/converse/internal/models"
)

// ErrHistoryNotFound is returned when a history row to update no longer exists
var ErrHistoryNotFound = errors.New("history record not found")

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db.DB}
}

// HistoryRepository provides run bookkeeping operations
type HistoryRepository struct {
	*Repository
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(repo *Repository) *HistoryRepository {
	return &HistoryRepository{Repository: repo}
}

// Create inserts a history row; query_time stays null until the run completes
func (r *HistoryRepository) Create(ctx context.Context, record *models.HistoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByID retrieves a history row by ID
func (r *HistoryRepository) GetByID(ctx context.Context, id uint) (*models.HistoryRecord, error) {
	var record models.HistoryRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// SetQueryTime records the elapsed run time in milliseconds. It returns
// ErrHistoryNotFound if the row was removed while the run was in progress.
func (r *HistoryRepository) SetQueryTime(ctx context.Context, id uint, ms int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.HistoryRecord{}).
		Where("id = ?", id).
		Update("query_time", ms)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

// Delete removes a history row together with its message rows
func (r *HistoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("history_id = ?", id).Delete(&models.MessageRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.HistoryRecord{}, id).Error
	})
}

// DeleteStale removes history rows that never completed and were created
// before cutoff, along with their message rows
func (r *HistoryRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.HistoryRecord{}).
			Where("query_time IS NULL AND created_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("history_id IN ?", ids).Delete(&models.MessageRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.HistoryRecord{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// RunStats aggregates history rows created since a point in time
type RunStats struct {
	Completed      int64
	Abandoned      int64
	AvgQueryTimeMs float64
}

// StatsSince aggregates runs created at or after since
func (r *HistoryRepository) StatsSince(ctx context.Context, since time.Time) (*RunStats, error) {
	var stats RunStats
	err := r.db.WithContext(ctx).
		Model(&models.HistoryRecord{}).
		Select("COUNT(query_time) AS completed, "+
			"COALESCE(SUM(CASE WHEN query_time IS NULL THEN 1 ELSE 0 END), 0) AS abandoned, "+
			"COALESCE(AVG(query_time), 0) AS avg_query_time_ms").
		Where("created_at >= ?", since).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// MessageRepository provides per-message operations
type MessageRepository struct {
	*Repository
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(repo *Repository) *MessageRepository {
	return &MessageRepository{Repository: repo}
}

// Create records one posted message
func (r *MessageRepository) Create(ctx context.Context, record *models.MessageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CountByHistory counts the messages recorded for a run
func (r *MessageRepository) CountByHistory(ctx context.Context, historyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageRecord{}).
		Where("history_id = ?", historyID).
		Count(&count).Error
	return count, err
}

// AnalyticsRepository provides analytics operations
type AnalyticsRepository struct {
	*Repository
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(repo *Repository) *AnalyticsRepository {
	return &AnalyticsRepository{Repository: repo}
}

// Create appends an analytics row
func (r *AnalyticsRepository) Create(ctx context.Context, record *models.AnalyticsRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// UsageTotals sums analytics rows created at or after since
type UsageTotals struct {
	Runs     int64
	Messages int64
}

// TotalsSince sums runs and messages created at or after since
func (r *AnalyticsRepository) TotalsSince(ctx context.Context, since time.Time) (*UsageTotals, error) {
	var totals UsageTotals
	err := r.db.WithContext(ctx).
		Model(&models.AnalyticsRecord{}).
		Select("COUNT(*) AS runs, COALESCE(SUM(messages), 0) AS messages").
		Where("created_at >= ?", since).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// TopUsersSince ranks initiating users by messages generated since a point in time
func (r *AnalyticsRepository) TopUsersSince(ctx context.Context, since time.Time, limit int) ([]models.UserUsage, error) {
	var usage []models.UserUsage
	err := r.db.WithContext(ctx).
		Table("analytics").
		Select("analytics.user_id AS user_id, COALESCE(users.member_id, '') AS member_id, "+
			"COUNT(*) AS runs, COALESCE(SUM(analytics.messages), 0) AS messages").
		Joins("LEFT JOIN users ON users.id = analytics.user_id").
		Where("analytics.created_at >= ?", since).
		Group("analytics.user_id, users.member_id").
		Order("messages DESC").
		Limit(limit).
		Scan(&usage).Error
	return usage, err
}

// UserRepository maps platform member ids to internal ids
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

// GetByMemberID retrieves a user by platform member id
func (r *UserRepository) GetByMemberID(ctx context.Context, memberID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user; a concurrent insert of the same member id is ignored
// and the existing row is loaded instead
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "member_id"}}, DoNothing: true}).
		Create(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.db.WithContext(ctx).Where("member_id = ?", user.MemberID).First(user).Error
	}
	return nil
}

// DefinitionRepository stores reusable conversation definitions
type DefinitionRepository struct {
	*Repository
}

// NewDefinitionRepository creates a new definition repository
func NewDefinitionRepository(repo *Repository) *DefinitionRepository {
	return &DefinitionRepository{Repository: repo}
}

// Create stores a named set of raw parameters
func (r *DefinitionRepository) Create(ctx context.Context, userID uint, name string, params models.RawParameters) (*models.ConversationDefinition, error) {
	def := &models.ConversationDefinition{
		UserID:     userID,
		Name:       name,
		Parameters: datatypes.NewJSONType(params),
	}
	if err := r.db.WithContext(ctx).Create(def).Error; err != nil {
		return nil, err
	}
	return def, nil
}

// GetByID retrieves a definition by ID
func (r *DefinitionRepository) GetByID(ctx context.Context, id uint) (*models.ConversationDefinition, error) {
	var def models.ConversationDefinition
	if err := r.db.WithContext(ctx).First(&def, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

// ListByUser lists a user's definitions, newest first
func (r *DefinitionRepository) ListByUser(ctx context.Context, userID uint) ([]models.ConversationDefinition, error) {
	var defs []models.ConversationDefinition
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&defs).Error
	return defs, err
}

// SelectionRepository persists the last builder form state per user
type SelectionRepository struct {
	*Repository
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(repo *Repository) *SelectionRepository {
	return &SelectionRepository{Repository: repo}
}

// Upsert replaces a user's stored selections
func (r *SelectionRepository) Upsert(ctx context.Context, userID uint, params models.RawParameters) error {
	selection := &models.BuilderSelection{
		UserID:     userID,
		Selections: datatypes.NewJSONType(params),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selections", "date_updated"}),
		}).
		Create(selection).Error
}

// Get retrieves a user's stored selections, or nil when none exist
func (r *SelectionRepository) Get(ctx context.Context, userID uint) (*models.RawParameters, error) {
	var selection models.BuilderSelection
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&selection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	params := selection.Selections.Data()
	return &params, nil
}
