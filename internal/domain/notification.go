package domain

import (
	"errors"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen = 65
	MaxBodyLen  = 240
)

type NotificationType string

const (
	TypePromo        NotificationType = "promo"
	TypeReminder     NotificationType = "reminder"
	TypeAnnouncement NotificationType = "announcement"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypePromo, TypeReminder, TypeAnnouncement:
		return true
	}
	return false
}

// Category gates delivery against per-user preference toggles. Empty means
// the notification belongs to no category and only the global toggles apply.
type Category string

const (
	CategoryAdvertising Category = "advertising"
	CategorySecurity    Category = "security"
	CategoryMaintenance Category = "maintenance"
)

func (c Category) Valid() bool {
	switch c {
	case "", CategoryAdvertising, CategorySecurity, CategoryMaintenance:
		return true
	}
	return false
}

type Role string

const (
	RoleSuperadmin Role = "SUPERADMIN"
	RoleMotelAdmin Role = "MOTEL_ADMIN"
	RoleUser       Role = "USER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleMotelAdmin, RoleUser:
		return true
	}
	return false
}

// ScheduledNotification is the unit of work. A record starts pending
// (Sent=false) and transitions to sent exactly once; the outcome counters
// are filled in by the same dispatch that claimed it.
type ScheduledNotification struct {
	ID              string
	Title           string
	Body            string
	Category        Category
	Type            NotificationType
	Data            map[string]string
	Target          Target
	RelatedEntityID string
	ScheduledFor    time.Time
	Sent            bool
	SentAt          *time.Time
	TotalSent       int
	TotalFailed     int
	TotalSkipped    int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateNotification struct {
	Title           string
	Body            string
	Category        Category
	Type            NotificationType
	Data            map[string]string
	Target          Target
	RelatedEntityID string
	ScheduledFor    time.Time
	SendNow         bool
}

// Validate enforces the content and schedule rules shared by every
// submission path. Future sends must land on a half-hour boundary so the
// dispatch sweep only ever has a bounded set of distinct ticks to serve.
func (c *CreateNotification) Validate(now time.Time) error {
	if utf8.RuneCountInString(c.Title) > MaxTitleLen {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(c.Body) > MaxBodyLen {
		return ErrBodyTooLong
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if !c.Category.Valid() {
		return ErrInvalidCategory
	}
	if c.Target.Kind == TargetRole && !c.Target.Role.Valid() {
		return ErrInvalidRole
	}
	if c.SendNow {
		return nil
	}
	if c.ScheduledFor.IsZero() {
		return ErrMissingSchedule
	}
	if c.ScheduledFor.Before(now) {
		return ErrScheduleInPast
	}
	if m := c.ScheduledFor.Minute(); m != 0 && m != 30 {
		return ErrInvalidScheduleGranularity
	}
	return nil
}

type SentState string

const (
	SentStatePending SentState = "pending"
	SentStateSent    SentState = "sent"
	SentStateAll     SentState = "all"
)

type ListFilter struct {
	SentState SentState
	Type      NotificationType
	Limit     int
}

// DispatchResult is the outcome ledger of one completed dispatch.
type DispatchResult struct {
	Sent    int
	Failed  int
	Skipped int
}

func (r DispatchResult) Total() int {
	return r.Sent + r.Failed + r.Skipped
}

// PromoBlast is the ephemeral favorites-of-a-motel send: same fan-out
// semantics as a dispatch, but nothing is persisted.
type PromoBlast struct {
	MotelID string
	Title   string
	Body    string
	PromoID string
	Data    map[string]string
}

var (
	ErrTitleTooLong               = errors.New("title exceeds 65 characters")
	ErrBodyTooLong                = errors.New("body exceeds 240 characters")
	ErrInvalidType                = errors.New("unknown notification type")
	ErrInvalidCategory            = errors.New("unknown notification category")
	ErrInvalidRole                = errors.New("unknown target role")
	ErrMissingSchedule            = errors.New("either send_now or scheduled_for is required")
	ErrScheduleInPast             = errors.New("scheduled_for must be in the future")
	ErrInvalidScheduleGranularity = errors.New("scheduled_for minute must be :00 or :30")
	ErrNotFound                   = errors.New("notification not found")
)

var validationErrs = []error{
	ErrTitleTooLong, ErrBodyTooLong, ErrInvalidType, ErrInvalidCategory,
	ErrInvalidRole, ErrMissingSchedule, ErrScheduleInPast, ErrInvalidScheduleGranularity,
}

// IsValidationError reports whether err is client-caused and should map to a
// 400 rather than a 500.
func IsValidationError(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
