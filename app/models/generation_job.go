package models

import (
	"encoding/json"
	"time"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// GenerationJob tracks a slide-deck generation run. A single background
// worker is the only writer; readers poll, so last write wins.
type GenerationJob struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         string    `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Topic        string    `gorm:"type:varchar(255);not null" json:"topic" validate:"required,max=255"`
	SlideCount   int       `gorm:"default:5" json:"slide_count" validate:"min=1,max=20"`
	Status       string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Progress     int       `gorm:"default:0" json:"progress"`
	SlidesJSON   string    `gorm:"type:longtext" json:"-"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Slide is one generated deck slide.
type Slide struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Slides decodes the stored slide list. An empty column yields an empty slice.
func (j *GenerationJob) Slides() ([]Slide, error) {
	if j.SlidesJSON == "" {
		return []Slide{}, nil
	}
	var slides []Slide
	if err := json.Unmarshal([]byte(j.SlidesJSON), &slides); err != nil {
		return nil, err
	}
	return slides, nil
}

// SetSlides encodes and stores the slide list.
func (j *GenerationJob) SetSlides(slides []Slide) error {
	data, err := json.Marshal(slides)
	if err != nil {
		return err
	}
	j.SlidesJSON = string(data)
	return nil
}

// IsTerminal reports whether the job reached a final status.
func (j *GenerationJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
