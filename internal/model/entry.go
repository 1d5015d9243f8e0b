package model

import (
	"fmt"
	"math"
	"time"
)

// Hall identifies one of the two venue halls.
type Hall string

// Role identifies a crew section.
type Role string

// Status is the lifecycle state of an attendance entry.
type Status string

const (
	HallA Hall = "HallA"
	HallB Hall = "HallB"

	RoleAudio    Role = "AUDIO"
	RoleLighting Role = "LIGHTING"
	RoleVideo    Role = "VIDEO"

	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Halls and Roles enumerate the closed sets in display order.
var (
	Halls = []Hall{HallA, HallB}
	Roles = []Role{RoleAudio, RoleLighting, RoleVideo}
)

// ParseHall validates a hall identifier from the wire.
func ParseHall(s string) (Hall, error) {
	switch Hall(s) {
	case HallA, HallB:
		return Hall(s), nil
	}
	return "", fmt.Errorf("unknown hall: %q", s)
}

// ParseRole validates a role identifier from the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAudio, RoleLighting, RoleVideo:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Label returns the display name used on the kiosk and in exports.
func (h Hall) Label() string {
	if h == HallB {
		return "ホールB"
	}
	return "ホールA"
}

// Label returns the display name used on the kiosk and in exports.
func (r Role) Label() string {
	switch r {
	case RoleAudio:
		return "音響"
	case RoleLighting:
		return "照明"
	case RoleVideo:
		return "映像"
	}
	return string(r)
}

// Label returns the display name used in the admin table and exports.
func (s Status) Label() string {
	if s == StatusDone {
		return "退勤済"
	}
	return "出勤中"
}

// Entry is one shift record for a (hall, role, shift-date) slot.
type Entry struct {
	ID          string     `json:"id"`
	Hall        Hall       `json:"hall"`
	Role        Role       `json:"role"`
	MemberNames []string   `json:"memberNames"`
	Date        string     `json:"date"` // shift date, YYYY-MM-DD, immutable
	CheckIn     time.Time  `json:"checkIn"`
	CheckOut    *time.Time `json:"checkOut,omitempty"`
	Minutes     *int       `json:"minutes,omitempty"`
	Status      Status     `json:"status"`
	Memo        string     `json:"memo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Open reports whether the entry is still in progress.
func (e *Entry) Open() bool {
	return e.Status == StatusInProgress
}

// Headcount is the number of members on the entry.
func (e *Entry) Headcount() int {
	return len(e.MemberNames)
}

// ElapsedMinutes computes worked minutes between check-in and check-out.
// A negative raw difference means the stored check-in wall clock is later
// than the check-out (a shift that crossed midnight, or a correction moved
// the check-in past it); a single full day is added before rounding.
// Shifts left open for more than 24 hours are not representable.
func ElapsedMinutes(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn).Minutes()
	if diff < 0 {
		diff += 24 * 60
	}
	return int(math.Round(diff))
}
