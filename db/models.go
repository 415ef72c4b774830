package db

import "time"

// TeamConnection is the server-side record of a linked workspace.
type TeamConnection struct {
	ID              uint   `gorm:"primaryKey"`
	TeamID          string `gorm:"uniqueIndex;not null"`
	TeamName        string
	Connected       bool `gorm:"not null;index"`
	ConnectedAt     time.Time
	LastValidatedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
