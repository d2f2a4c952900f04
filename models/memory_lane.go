package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LaneStatus string

const (
	StatusDraft     LaneStatus = "draft"
	StatusPublished LaneStatus = "published"
	StatusArchived  LaneStatus = "archived"
)

func (s LaneStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// MemoryLane timestamps are stamped by the lanes service, not by gorm
type MemoryLane struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"`
	Name      string     `gorm:"type:varchar(400);not null"`
	Status    LaneStatus `gorm:"type:varchar(16);not null;default:draft;index:status_updated,priority:1"`
	UserID    string     `gorm:"type:varchar(36);not null;index:user_lane_updated,priority:1"`
	User      User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime:false;index:status_updated,priority:2;index:user_lane_updated,priority:2"`
	Memories  []Memory   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (l *MemoryLane) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
