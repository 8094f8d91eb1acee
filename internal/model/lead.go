package model

import (
	"strings"
	"time"
)

// Status is the disposition of a lead. Wire values match the spreadsheet feeds.
type Status string

const (
	StatusUnassigned Status = "default"
	StatusBooked     Status = "booked"
	StatusDeclined   Status = "declined"
	StatusFollowUp   Status = "follow up"
	StatusBusy       Status = "busy"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusUnassigned, StatusBooked, StatusDeclined, StatusFollowUp, StatusBusy}

// ParseStatus maps free-form status text onto a Status. Unknown or empty
// input yields StatusUnassigned and ok=false.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "booked":
		return StatusBooked, true
	case "declined":
		return StatusDeclined, true
	case "follow up", "followup", "follow-up", "follow_up":
		return StatusFollowUp, true
	case "busy":
		return StatusBusy, true
	case "default", "unassigned", "":
		return StatusUnassigned, true
	default:
		return StatusUnassigned, false
	}
}

// IsTerminal reports whether the status files a lead into the analytics archive.
func (s Status) IsTerminal() bool {
	return s == StatusBooked || s == StatusDeclined
}

// IsQueued reports whether the status files a lead into the shared task queue.
func (s Status) IsQueued() bool {
	return s == StatusFollowUp || s == StatusBusy
}

// Default values used when a source row lacks the attribute.
const (
	DefaultCompany  = "Unknown Entity"
	DefaultPhone    = "N/A"
	DefaultRating   = "0.0"
	DefaultWebsite  = "NONE"
	DefaultCategory = "N/A"
	SystemOwner     = "SYSTEM"
)

// Lead is the canonical unit of sales work.
type Lead struct {
	ID             string    `json:"id"`
	SequenceNumber string    `json:"sno,omitempty"`
	Company        string    `json:"company"`
	Phone          string    `json:"phone"`
	PhoneE164      string    `json:"phone_e164,omitempty"`
	Rating         string    `json:"rating"`
	Website        string    `json:"website"`
	Category       string    `json:"category"`
	Email          string    `json:"email,omitempty"`
	Instagram      string    `json:"instagram,omitempty"`
	Location       string    `json:"location,omitempty"`
	Status         Status    `json:"status"`
	Summary        string    `json:"summary"`
	Checked        bool      `json:"checked"`
	OwnerUsername  string    `json:"owner"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
	DateTime       string    `json:"date_time,omitempty"` // source timestamp, set on commit
}

// timestampLayouts are the date formats seen in sheet exports, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"2/1/2006 15:04:05",
}

// ParseTimestamp parses a sheet timestamp in any of the known layouts.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// TimestampLayout is the layout DateTime is written in: UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Timestamp returns the moment the lead was actioned: the source DateTime
// when it parses, otherwise LastUpdatedAt. When both name the same second,
// LastUpdatedAt wins since DateTime may have been written without fractions.
func (l Lead) Timestamp() time.Time {
	t, ok := ParseTimestamp(l.DateTime)
	if !ok {
		return l.LastUpdatedAt
	}
	if !l.LastUpdatedAt.IsZero() && l.LastUpdatedAt.UTC().Truncate(time.Second).Equal(t.Truncate(time.Second)) {
		return l.LastUpdatedAt.UTC()
	}
	return t
}

// Touch stamps the lead with the given commit time.
func (l *Lead) Touch(now time.Time) {
	l.LastUpdatedAt = now.UTC()
	l.DateTime = FormatTimestamp(l.LastUpdatedAt)
}
