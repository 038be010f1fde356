package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleVolunteer   Role = "volunteer"
	RoleStaff       Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleVolunteer, RoleStaff:
		return true
	}
	return false
}

// MembershipType is a participant's quota tier. The empty value means no tier.
type MembershipType string

const (
	MembershipAdHoc       MembershipType = "ad_hoc"
	MembershipOnceWeekly  MembershipType = "once_weekly"
	MembershipTwiceWeekly MembershipType = "twice_weekly"
	MembershipThreePlus   MembershipType = "3_plus"
)

// Valid reports whether m is empty or a known tier.
func (m MembershipType) Valid() bool {
	switch m {
	case "", MembershipAdHoc, MembershipOnceWeekly, MembershipTwiceWeekly, MembershipThreePlus:
		return true
	}
	return false
}

// WeeklyLimit returns the maximum confirmed registrations per Monday-Sunday week.
// ok is false for tiers without a quota.
func (m MembershipType) WeeklyLimit() (limit int, ok bool) {
	switch m {
	case MembershipOnceWeekly:
		return 1, true
	case MembershipTwiceWeekly:
		return 2, true
	case MembershipThreePlus:
		return 3, true
	}
	return 0, false
}

// Languages supported for activity text and notifications.
const (
	LanguageEnglish  = "en"
	LanguageMandarin = "zh"
	LanguageMalay    = "ms"
	LanguageTamil    = "ta"
)

// User represents a platform user.
type User struct {
	ID                 uuid.UUID      `json:"id"`
	Email              string         `json:"email"`
	Password           string         `json:"-"`
	FullName           string         `json:"full_name"`
	Role               Role           `json:"role"`
	MembershipType     MembershipType `json:"membership_type,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	CaregiverPhone     string         `json:"caregiver_phone,omitempty"`
	PreferredLanguage  string         `json:"preferred_language"`
	WheelchairRequired bool           `json:"wheelchair_required"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID                 uuid.UUID      `json:"id"`
	Email              string         `json:"email"`
	FullName           string         `json:"full_name"`
	Role               Role           `json:"role"`
	MembershipType     MembershipType `json:"membership_type,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	PreferredLanguage  string         `json:"preferred_language"`
	WheelchairRequired bool           `json:"wheelchair_required"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		Role:               u.Role,
		MembershipType:     u.MembershipType,
		Phone:              u.Phone,
		PreferredLanguage:  u.PreferredLanguage,
		WheelchairRequired: u.WheelchairRequired,
		CreatedAt:          u.CreatedAt,
	}
}

// DisplayName returns the full name, or fallback when none is set.
func (u *User) DisplayName(fallback string) string {
	if u.FullName != "" {
		return u.FullName
	}
	return fallback
}
