package lanes

import (
	"memorylane/models"
	"memorylane/validation"
	"time"
)

// FilesPrefix is the path the served file route is mounted on
const FilesPrefix = "/files/"

// ImageURL turns a storage key into the path it is served from
func ImageURL(key string) string {
	return FilesPrefix + key
}

type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LaneView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      models.LaneStatus `json:"status"`
	UserID      string            `json:"userId"`
	User        *Owner            `json:"user,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	MemoryCount int64             `json:"memoryCount"`
}

// LaneDetails is a lane with all of its memories, oldest first
type LaneDetails struct {
	LaneView
	Subtitle string       `json:"subtitle"`
	Memories []MemoryView `json:"memories"`
}

type MemoryView struct {
	ID           string    `json:"id"`
	MemoryLaneID string    `json:"memoryLaneId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Date         string    `json:"date"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"createdAt"`
}

type LanePage struct {
	Lanes    []LaneView `json:"lanes"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
	NextPage int        `json:"nextPage"` // 0 when this is the last page
}

func newLaneView(lane *models.MemoryLane, memoryCount int64) LaneView {
	view := LaneView{
		ID:          lane.ID,
		Name:        lane.Name,
		Status:      lane.Status,
		UserID:      lane.UserID,
		CreatedAt:   lane.CreatedAt,
		UpdatedAt:   lane.UpdatedAt,
		MemoryCount: memoryCount,
	}
	if lane.User.ID != "" {
		view.User = &Owner{ID: lane.User.ID, Name: lane.User.Name}
	}
	return view
}

func newMemoryView(m *models.Memory) MemoryView {
	return MemoryView{
		ID:           m.ID,
		MemoryLaneID: m.MemoryLaneID,
		Title:        m.Title,
		Content:      m.Content,
		Date:         m.Date.UTC().Format(validation.DateLayout),
		Image:        ImageURL(m.Image),
		CreatedAt:    m.CreatedAt,
	}
}
