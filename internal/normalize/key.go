package normalize

import (
	"strings"

	"github.com/sells-group/leadledger/internal/model"
)

// DedupKey is the normalized (company, phone) pair identifying one real-world lead.
type DedupKey struct {
	Company string
	Phone   string
}

// CompanyKey lowercases name and strips everything outside [a-z0-9].
func CompanyKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneKey keeps the last 10 digits of phone.
func PhoneKey(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// KeyOf derives the dedup pair for a lead. Default sentinel company names
// produce an empty company component.
func KeyOf(l model.Lead) DedupKey {
	company := CompanyKey(l.Company)
	if company == CompanyKey(model.DefaultCompany) {
		company = ""
	}
	return DedupKey{Company: company, Phone: PhoneKey(l.Phone)}
}

// Lookups returns the lookup keys the pair contributes: "p:<phone>" and
// "c:<company>", omitting empty components.
func (k DedupKey) Lookups() []string {
	keys := make([]string, 0, 2)
	if k.Phone != "" {
		keys = append(keys, "p:"+k.Phone)
	}
	if k.Company != "" {
		keys = append(keys, "c:"+k.Company)
	}
	return keys
}

// Keys returns the lookup keys for a lead. Two leads are the same lead when
// any of their keys match, so a shared phone OR a shared company name counts.
func Keys(l model.Lead) []string {
	return KeyOf(l).Lookups()
}

// KeySet indexes lookup keys for membership tests.
type KeySet map[string]struct{}

// NewKeySet indexes every key of every lead.
func NewKeySet(leads ...[]model.Lead) KeySet {
	s := make(KeySet)
	for _, group := range leads {
		for _, l := range group {
			s.Add(l)
		}
	}
	return s
}

// Add records all keys of l.
func (s KeySet) Add(l model.Lead) {
	for _, k := range Keys(l) {
		s[k] = struct{}{}
	}
}

// Contains reports whether any key of l is already present.
func (s KeySet) Contains(l model.Lead) bool {
	for _, k := range Keys(l) {
		if _, ok := s[k]; ok {
			return true
		}
	}
	return false
}

// SameLead reports whether a and b refer to the same real-world lead. Leads
// without any key fall back to comparing IDs.
func SameLead(a, b model.Lead) bool {
	ak, bk := Keys(a), Keys(b)
	if len(ak) == 0 || len(bk) == 0 {
		return a.ID != "" && a.ID == b.ID
	}
	for _, x := range ak {
		for _, y := range bk {
			if x == y {
				return true
			}
		}
	}
	return false
}
