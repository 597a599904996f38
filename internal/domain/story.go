package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Story is the persisted result of one successful pipeline run. Its segments
// are written in the same transaction and only ever removed by cascade.
type Story struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	Title         string `gorm:"column:title;not null" json:"title"`
	ChildName     string `gorm:"column:child_name;not null" json:"child_name"`
	ChildAge      int    `gorm:"column:child_age;not null" json:"child_age"`
	MainCharacter string `gorm:"column:main_character" json:"main_character"`
	Theme         string `gorm:"column:theme;not null;index" json:"theme"`

	// Content is the concatenated narration of all scenes, in order.
	Content   string         `gorm:"column:content;type:text;not null" json:"content"`
	ImageURLs datatypes.JSON `gorm:"column:image_urls;type:jsonb" json:"image_urls"`
	Approved  bool           `gorm:"column:approved;not null;default:false" json:"approved"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Story) TableName() string { return "story" }

// StorySegment is one realized scene. Sequence is 1-based narrative order,
// fixed at outline time. Rows are created once and never updated.
type StorySegment struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"story_id"`
	Story   *Story    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StoryID;references:ID" json:"story,omitempty"`

	Sequence int    `gorm:"column:sequence;not null" json:"sequence"`
	Content  string `gorm:"column:content;type:text;not null" json:"content"`
	ImageURL string `gorm:"column:image_url;not null" json:"image_url"`
	AudioURL string `gorm:"column:audio_url;not null" json:"audio_url"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (StorySegment) TableName() string { return "story_segment" }

// CreditLedgerEntry records every balance movement so debits reconcile
// against persisted stories.
type CreditLedgerEntry struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StoryID *uuid.UUID `gorm:"type:uuid;index" json:"story_id,omitempty"`

	Delta  int    `gorm:"column:delta;not null" json:"delta"`
	Reason string `gorm:"column:reason;not null" json:"reason"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CreditLedgerEntry) TableName() string { return "credit_ledger_entry" }
