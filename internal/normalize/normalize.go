package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/leadledger/internal/model"
)

// DefaultRegion is used to interpret phone numbers without a country prefix.
const DefaultRegion = "IN"

// Normalizer converts sheet rows into canonical leads.
type Normalizer struct {
	SourceTag string           // id prefix, e.g. "csv"
	Region    string           // phone region for E.164 formatting
	Now       func() time.Time // clock for rows without a timestamp
}

// New returns a Normalizer with defaults filled in.
func New(sourceTag, region string) *Normalizer {
	if sourceTag == "" {
		sourceTag = "csv"
	}
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{SourceTag: sourceTag, Region: region, Now: time.Now}
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now().UTC()
	}
	return n.Now().UTC()
}

// Normalize maps one sheet row, found at positionalIndex within its batch,
// to a lead attributed to owner. The status always starts Unassigned.
func (n *Normalizer) Normalize(row map[string]string, positionalIndex int, owner string) model.Lead {
	sno := Get(row, FieldSno)
	idPart := sno
	if idPart == "" {
		idPart = strconv.Itoa(positionalIndex)
		sno = strconv.Itoa(positionalIndex + 1)
	}

	phone := or(Get(row, FieldPhone), model.DefaultPhone)

	lead := model.Lead{
		ID:             fmt.Sprintf("%s-%s-%s", n.SourceTag, owner, idPart),
		SequenceNumber: sno,
		Company:        or(Get(row, FieldCompany), model.DefaultCompany),
		Phone:          phone,
		PhoneE164:      n.formatE164(phone),
		Rating:         or(Get(row, FieldRating), model.DefaultRating),
		Website:        or(Get(row, FieldWebsite), model.DefaultWebsite),
		Category:       or(Get(row, FieldCategory), model.DefaultCategory),
		Instagram:      Get(row, FieldInstagram),
		Email:          Get(row, FieldEmail),
		Location:       Get(row, FieldLocation),
		Summary:        Get(row, FieldSummary),
		Status:         model.StatusUnassigned,
		OwnerUsername:  owner,
		LastUpdatedAt:  n.now(),
	}

	if raw := Get(row, FieldDateTime); raw != "" {
		lead.DateTime = raw
		if ts, ok := model.ParseTimestamp(raw); ok {
			lead.LastUpdatedAt = ts
		}
	}
	return lead
}

// NormalizeMaster maps a row of the consolidated master feed. The owner comes
// from the row itself (or SYSTEM) and the status is Booked when the feed's
// status mentions "booked", Declined otherwise; master rows are never Unassigned.
func (n *Normalizer) NormalizeMaster(row map[string]string, positionalIndex int) model.Lead {
	owner := or(Get(row, FieldOwner), model.SystemOwner)
	lead := n.Normalize(row, positionalIndex, owner)
	if strings.Contains(strings.ToLower(Get(row, FieldStatus)), "booked") {
		lead.Status = model.StatusBooked
	} else {
		lead.Status = model.StatusDeclined
	}
	return lead
}

// NormalizeAll maps a batch of rows for one owner.
func (n *Normalizer) NormalizeAll(rows []map[string]string, owner string) []model.Lead {
	leads := make([]model.Lead, 0, len(rows))
	for i, row := range rows {
		leads = append(leads, n.Normalize(row, i, owner))
	}
	return leads
}

// NormalizeMasterAll maps a batch of master feed rows.
func (n *Normalizer) NormalizeMasterAll(rows []map[string]string) []model.Lead {
	leads := make([]model.Lead, 0, len(rows))
	for i, row := range rows {
		leads = append(leads, n.NormalizeMaster(row, i))
	}
	return leads
}

// formatE164 returns the E.164 form of phone, or "" when it does not parse
// as a valid number.
func (n *Normalizer) formatE164(phone string) string {
	if phone == model.DefaultPhone {
		return ""
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), n.Region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return ""
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
