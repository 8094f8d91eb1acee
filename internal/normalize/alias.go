// Package normalize maps loosely structured sheet rows onto canonical leads and
// derives the keys used to detect the same lead across sources.
package normalize

import "strings"

// Field names a canonical lead attribute.
type Field string

const (
	FieldCompany   Field = "company"
	FieldPhone     Field = "phone"
	FieldSno       Field = "sno"
	FieldRating    Field = "rating"
	FieldWebsite   Field = "website"
	FieldCategory  Field = "category"
	FieldInstagram Field = "instagram"
	FieldEmail     Field = "email"
	FieldLocation  Field = "location"
	FieldSummary   Field = "summary"
	FieldDateTime  Field = "datetime"
	FieldOwner     Field = "owner"
	FieldStatus    Field = "status"
)

// Aliases lists, per canonical field, the accepted sheet headers in priority order.
var Aliases = map[Field][]string{
	FieldCompany:   {"company", "company name", "name", "business", "lead", "entity", "client"},
	FieldPhone:     {"number", "phone", "contact", "mobile", "tel"},
	FieldSno:       {"sno", "s.no", "id", "serial"},
	FieldRating:    {"ratings", "rating", "stars"},
	FieldWebsite:   {"website", "web", "url", "link"},
	FieldCategory:  {"type", "category", "industry", "niche"},
	FieldInstagram: {"instagram", "insta", "ig"},
	FieldEmail:     {"gmail", "email", "mail"},
	FieldLocation:  {"location", "area", "address", "city"},
	FieldSummary:   {"summary", "notes", "remarks", "intel"},
	FieldDateTime:  {"date&time", "datetime", "date time", "timestamp"},
	FieldOwner:     {"username", "user", "specialist", "owner"},
	FieldStatus:    {"availability", "status", "state"},
}

// FirstMatch returns the first non-empty value among aliases, matching
// header names case-insensitively.
func FirstMatch(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		key := strings.ToLower(alias)
		if v, ok := row[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		for k, v := range row {
			if strings.ToLower(strings.TrimSpace(k)) == key && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// Get resolves a canonical field from a row.
func Get(row map[string]string, f Field) string {
	return FirstMatch(row, Aliases[f])
}
