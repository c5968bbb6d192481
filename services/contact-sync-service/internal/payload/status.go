package payload

import "strings"

// Status is the canonical purchase status recorded on the CRM contact.
// Unrecognized sender values pass through lowercased.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusRefunded   Status = "refunded"
	StatusChargeback Status = "chargeback"
	StatusPending    Status = "pending"
)

const otherStatusLabel = "other"

var statusAliases = map[string]Status{
	"approved":            StatusApproved,
	"purchase_approved":   StatusApproved,
	"refunded":            StatusRefunded,
	"refund":              StatusRefunded,
	"purchase_refunded":   StatusRefunded,
	"chargeback":          StatusChargeback,
	"purchase_chargeback": StatusChargeback,
}

// NormalizeStatus maps a raw status or event name to its canonical form.
// An empty value means the sender did not say, which is treated as pending.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusPending
	}
	if canonical, ok := statusAliases[s]; ok {
		return canonical
	}
	return Status(s)
}

// MetricLabel returns the status for canonical values and "other" for
// anything passed through from the sender, so metric labels stay bounded.
func (s Status) MetricLabel() string {
	switch s {
	case StatusApproved, StatusRefunded, StatusChargeback, StatusPending:
		return string(s)
	}
	return otherStatusLabel
}
