package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minds-hub/backend/pkg/timerange"
)

// Activity is a scheduled, capacity-bounded session.
type Activity struct {
	ID                   uuid.UUID           `json:"id"`
	Title                string              `json:"title"`
	Description          string              `json:"description"`
	Date                 time.Time           `json:"date"`
	StartTime            timerange.TimeOfDay `json:"start_time"`
	EndTime              timerange.TimeOfDay `json:"end_time"`
	Location             string              `json:"location"`
	MaxCapacity          int                 `json:"max_capacity"`
	CurrentParticipants  int                 `json:"current_participants"`
	ProgramType          string              `json:"program_type"`
	WheelchairAccessible bool                `json:"wheelchair_accessible"`
	PaymentRequired      bool                `json:"payment_required"`
	CreatedByStaffID     *uuid.UUID          `json:"created_by_staff_id,omitempty"`
	Translations         Translations        `json:"translations"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// Translations holds pre-translated title and description text.
type Translations struct {
	TitleZh       *string `json:"title_zh,omitempty"`
	TitleMs       *string `json:"title_ms,omitempty"`
	TitleTa       *string `json:"title_ta,omitempty"`
	DescriptionZh *string `json:"description_zh,omitempty"`
	DescriptionMs *string `json:"description_ms,omitempty"`
	DescriptionTa *string `json:"description_ta,omitempty"`
}

// TimeRange returns the activity slot.
func (a *Activity) TimeRange() timerange.Range {
	return timerange.Range{Start: a.StartTime, End: a.EndTime}
}

// IsFull reports whether no spots remain.
func (a *Activity) IsFull() bool {
	return a.CurrentParticipants >= a.MaxCapacity
}

// AvailableSpots returns remaining capacity, never negative.
func (a *Activity) AvailableSpots() int {
	if n := a.MaxCapacity - a.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

// LocalizedTitle returns the title in lang, falling back to the base title.
func (a *Activity) LocalizedTitle(lang string) string {
	var v *string
	switch lang {
	case LanguageMandarin:
		v = a.Translations.TitleZh
	case LanguageMalay:
		v = a.Translations.TitleMs
	case LanguageTamil:
		v = a.Translations.TitleTa
	}
	if v != nil && *v != "" {
		return *v
	}
	return a.Title
}
