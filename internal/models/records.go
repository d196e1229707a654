package models

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryRecord bounds one generation run
type HistoryRecord struct {
	ID             uint      `gorm:"primaryKey;column:id"`
	ConversationID *uint     `gorm:"column:conversation_id"`
	ChannelID      string    `gorm:"type:varchar(32);not null;column:channel_id"`
	UserID         uint      `gorm:"not null;index;column:user_id"`
	QueryTime      *int64    `gorm:"column:query_time"` // milliseconds
	CreatedAt      time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for HistoryRecord
func (HistoryRecord) TableName() string {
	return "history"
}

// MessageRecord is one platform message posted during a run
type MessageRecord struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	MessageTS string    `gorm:"type:varchar(32);not null;column:message_ts"`
	HistoryID uint      `gorm:"not null;index;column:history_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for MessageRecord
func (MessageRecord) TableName() string {
	return "messages"
}

// AnalyticsRecord is appended once per completed run
type AnalyticsRecord struct {
	ID        uint      `gorm:"primaryKey;column:id"`
	UserID    uint      `gorm:"not null;index;column:user_id"`
	Messages  int       `gorm:"not null;column:messages"`
	CreatedAt time.Time `gorm:"not null;index;column:created_at"`
}

// TableName specifies the table name for AnalyticsRecord
func (AnalyticsRecord) TableName() string {
	return "analytics"
}

// User maps a platform member id to an internal id
type User struct {
	ID           uint      `gorm:"primaryKey;column:id"`
	MemberID     string    `gorm:"type:varchar(32);uniqueIndex;not null;column:member_id"`
	TeamID       string    `gorm:"type:varchar(32);column:team_id"`
	EnterpriseID string    `gorm:"type:varchar(32);column:enterprise_id"`
	DateUpdated  time.Time `gorm:"autoUpdateTime;column:date_updated"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// ConversationDefinition is a reusable set of raw generation parameters
type ConversationDefinition struct {
	ID         uint                              `gorm:"primaryKey;column:id"`
	UserID     uint                              `gorm:"index;column:user_id"`
	Name       string                            `gorm:"type:varchar(255);column:name"`
	Parameters datatypes.JSONType[RawParameters] `gorm:"column:parameters"`
	CreatedAt  time.Time                         `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for ConversationDefinition
func (ConversationDefinition) TableName() string {
	return "conversation_definitions"
}

// BuilderSelection persists a user's last builder form state
type BuilderSelection struct {
	ID          uint                              `gorm:"primaryKey;column:id"`
	UserID      uint                              `gorm:"uniqueIndex;not null;column:user_id"`
	Selections  datatypes.JSONType[RawParameters] `gorm:"column:selections"`
	DateUpdated time.Time                         `gorm:"autoUpdateTime;column:date_updated"`
}

// TableName specifies the table name for BuilderSelection
func (BuilderSelection) TableName() string {
	return "user_builder_selections"
}
