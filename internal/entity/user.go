package entity

import (
	"time"
)

// User is the profile directory row consulted when projecting conversations
// and rendering system messages. Identity verification itself is owned by the
// external auth service; this table only resolves display data.
type User struct {
	ID        string `gorm:"primaryKey"` // enrollment number
	Name      string `gorm:"not null"`
	PhotoURL  *string
	Role      string    `gorm:"not null;default:student"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string { return "users" }
