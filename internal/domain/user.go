package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email       string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`

	// Credits is the account's story balance. It is only ever changed under a
	// row lock inside the persistence transaction (see CreditRepo.DebitForStory).
	Credits int `gorm:"column:credits;not null;default:0" json:"credits"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }
