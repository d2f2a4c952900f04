package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Memory struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	MemoryLaneID string    `gorm:"type:varchar(36);not null;index:lane_memory_date,priority:1"`
	CreatedAt    time.Time
	Title        string    `gorm:"type:varchar(400);not null"`
	Content      string    `gorm:"type:text;not null"`
	Date         time.Time `gorm:"not null;index:lane_memory_date,priority:2"`
	Image        string    `gorm:"type:varchar(300);not null;index"` // storage key
}

func (m *Memory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
