// Package repository is the gorm backed persistence of lanes, memories and
// users. Every method is a single statement and relies on the database for
// atomicity. Deleting a lane also deletes its memories.
package repository

import (
	"context"
	"errors"
	"memorylane/models"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// LaneFilter narrows ListLanes. Empty fields do not filter.
type LaneFilter struct {
	UserID   string
	Statuses []models.LaneStatus
}

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) FindLaneByID(ctx context.Context, id string) (*models.MemoryLane, error) {
	lane := models.MemoryLane{}
	err := r.db.WithContext(ctx).Preload("User").First(&lane, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &lane, nil
}

// FindMemoryByID returns the memory together with its parent lane
func (r *Repository) FindMemoryByID(ctx context.Context, id string) (*models.Memory, *models.MemoryLane, error) {
	memory := models.Memory{}
	tx := r.db.WithContext(ctx)
	if err := tx.First(&memory, "id = ?", id).Error; err != nil {
		return nil, nil, notFound(err)
	}
	lane := models.MemoryLane{}
	if err := tx.First(&lane, "id = ?", memory.MemoryLaneID).Error; err != nil {
		return nil, nil, notFound(err)
	}
	return &memory, &lane, nil
}

func (r *Repository) InsertLane(ctx context.Context, lane *models.MemoryLane) error {
	return r.db.WithContext(ctx).Omit("User", "Memories").Create(lane).Error
}

// UpdateLane writes the given columns only. MySQL reports unchanged rows as
// not affected, so a missing lane is not detected here.
func (r *Repository) UpdateLane(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.MemoryLane{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) DeleteLane(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Select("Memories").Delete(&models.MemoryLane{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) InsertMemory(ctx context.Context, memory *models.Memory) error {
	return r.db.WithContext(ctx).Create(memory).Error
}

func (r *Repository) UpdateMemory(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Memory{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) DeleteMemory(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Memory{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountMemories(ctx context.Context, laneID string) (count int64, err error) {
	err = r.db.WithContext(ctx).Model(&models.Memory{}).Where("memory_lane_id = ?", laneID).Count(&count).Error
	return
}

// ListLanes returns one page of lanes, most recently updated first. Pages start at 1.
func (r *Repository) ListLanes(ctx context.Context, filter LaneFilter, page, limit int) ([]models.MemoryLane, error) {
	tx := r.db.WithContext(ctx).Preload("User")
	if filter.UserID != "" {
		tx = tx.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		tx = tx.Where("status IN ?", filter.Statuses)
	}
	result := []models.MemoryLane{}
	err := tx.Order("updated_at DESC").Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&result).Error
	return result, err
}

// ListMemories returns the memories of a lane by memory date, oldest first
func (r *Repository) ListMemories(ctx context.Context, laneID string) ([]models.Memory, error) {
	result := []models.Memory{}
	err := r.db.WithContext(ctx).
		Where("memory_lane_id = ?", laneID).
		Order("date ASC").Order("created_at ASC").
		Find(&result).Error
	return result, err
}

// MemoryCounts returns the number of memories per lane for the given lanes
func (r *Repository) MemoryCounts(ctx context.Context, laneIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(laneIDs))
	if len(laneIDs) == 0 {
		return counts, nil
	}
	rows, err := r.db.WithContext(ctx).
		Model(&models.Memory{}).
		Select("memory_lane_id, count(*)").
		Where("memory_lane_id IN ?", laneIDs).
		Group("memory_lane_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var laneID string
		var count int64
		if err = rows.Scan(&laneID, &count); err != nil {
			return nil, err
		}
		counts[laneID] = count
	}
	return counts, rows.Err()
}

// ReferencedKeys reports which of the given storage keys are used by a memory
func (r *Repository) ReferencedKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	result := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	found := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.Memory{}).
		Where("image IN ?", keys).
		Pluck("image", &found).Error
	if err != nil {
		return nil, err
	}
	for _, key := range found {
		result[key] = true
	}
	return result, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user := models.User{}
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CreateUser fails with ErrDuplicateEmail when the email is taken
func (r *Repository) CreateUser(ctx context.Context, name, email, password string) (*models.User, error) {
	var taken int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&taken).Error
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrDuplicateEmail
	}
	user, err := models.UserCreate(r.db.WithContext(ctx), name, email, password)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost a race with a concurrent registration
		return nil, ErrDuplicateEmail
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := models.UserLogin(r.db.WithContext(ctx), email, password)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
