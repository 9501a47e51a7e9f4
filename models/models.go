package models

import (
	"strings"
	"time"
)

// DateLayout is the wire format of event dates (HTML date inputs).
const DateLayout = "2006-01-02"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Invitation struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"user_id"`
	EventName   string    `json:"event_name"`
	EventDate   time.Time `json:"event_date"`
	ImagePath   string    `json:"image_path,omitempty"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Theme       string    `json:"theme"`
	CreatedAt   time.Time `json:"created_at"`
}

// InvitationFields is the mutable part of an Invitation as submitted by its owner.
// EventDate is kept as text so parsing errors surface as ErrInvalidDateFormat.
type InvitationFields struct {
	EventName   string
	EventDate   string
	Description string
	Location    string
	Theme       string
	// ImagePath is only applied when non-empty.
	ImagePath string
}

// Normalize trims the free-text fields.
func (f InvitationFields) Normalize() InvitationFields {
	f.EventName = strings.TrimSpace(f.EventName)
	f.EventDate = strings.TrimSpace(f.EventDate)
	f.Location = strings.TrimSpace(f.Location)
	f.Theme = strings.TrimSpace(f.Theme)
	return f
}

// Validate checks required fields and returns the parsed event date.
func (f InvitationFields) Validate() (time.Time, error) {
	date, err := time.Parse(DateLayout, f.EventDate)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	if f.EventName == "" || f.Location == "" {
		return time.Time{}, ErrMissingFields
	}
	return date, nil
}

type Guest struct {
	ID           int64      `json:"id"`
	InvitationID int64      `json:"invitation_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	RSVP         RSVPStatus `json:"rsvp"`
	RSVPDate     *time.Time `json:"rsvp_date,omitempty"`
}

// Answered reports whether the guest has accepted or declined.
func (g Guest) Answered() bool {
	return g.RSVP != RSVPPending
}

// RSVPStatus is the tri-state attendance answer of a guest.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPDeclined RSVPStatus = "declined"
)

// StatusForResponse maps a submitted RSVP form value to a status. Only
// "accept" and "decline" are recognised.
func StatusForResponse(response string) (RSVPStatus, bool) {
	switch response {
	case "accept":
		return RSVPAccepted, true
	case "decline":
		return RSVPDeclined, true
	}
	return "", false
}
