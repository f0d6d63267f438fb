package country

import (
	"errors"
	"strings"
)

var (
	ErrUnknown   = errors.New("country: unknown country")
	ErrAmbiguous = errors.New("country: country ambiguously defined")
)

// Country is a normalized reference-data entry. The calling code is used to
// qualify stored mobile numbers, which are kept without a country prefix.
type Country struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	CallingCode string `json:"calling_code"`
}

type entry struct {
	Country
	aliases []string
}

// The reference set is embedded rather than fetched: it changes on the order
// of years and the onboarding path must not depend on an external lookup.
var countries = []entry{
	{Country{"Australia", "AU", "+61"}, nil},
	{Country{"Austria", "AT", "+43"}, nil},
	{Country{"Belgium", "BE", "+32"}, nil},
	{Country{"Brazil", "BR", "+55"}, nil},
	{Country{"Canada", "CA", "+1"}, nil},
	{Country{"China", "CN", "+86"}, nil},
	{Country{"Congo (Brazzaville)", "CG", "+242"}, []string{"congo"}},
	{Country{"Congo (Kinshasa)", "CD", "+243"}, []string{"congo", "drc"}},
	{Country{"Denmark", "DK", "+45"}, nil},
	{Country{"Finland", "FI", "+358"}, nil},
	{Country{"France", "FR", "+33"}, nil},
	{Country{"Germany", "DE", "+49"}, nil},
	{Country{"India", "IN", "+91"}, nil},
	{Country{"Indonesia", "ID", "+62"}, nil},
	{Country{"Ireland", "IE", "+353"}, nil},
	{Country{"Italy", "IT", "+39"}, nil},
	{Country{"Japan", "JP", "+81"}, nil},
	{Country{"Kenya", "KE", "+254"}, nil},
	{Country{"Korea (North)", "KP", "+850"}, []string{"korea"}},
	{Country{"Korea (South)", "KR", "+82"}, []string{"korea", "south korea"}},
	{Country{"Mexico", "MX", "+52"}, nil},
	{Country{"Netherlands", "NL", "+31"}, []string{"holland"}},
	{Country{"New Zealand", "NZ", "+64"}, nil},
	{Country{"Nigeria", "NG", "+234"}, nil},
	{Country{"Norway", "NO", "+47"}, nil},
	{Country{"Poland", "PL", "+48"}, nil},
	{Country{"Portugal", "PT", "+351"}, nil},
	{Country{"Singapore", "SG", "+65"}, nil},
	{Country{"South Africa", "ZA", "+27"}, nil},
	{Country{"Spain", "ES", "+34"}, nil},
	{Country{"Sweden", "SE", "+46"}, nil},
	{Country{"Switzerland", "CH", "+41"}, nil},
	{Country{"United Arab Emirates", "AE", "+971"}, []string{"uae"}},
	{Country{"United Kingdom", "GB", "+44"}, []string{"uk", "great britain"}},
	{Country{"United States", "US", "+1"}, []string{"usa", "united states of america"}},
}

// All returns the full reference list, ordered by name.
func All() []Country {
	out := make([]Country, len(countries))
	for i, e := range countries {
		out[i] = e.Country
	}
	return out
}

// Validate resolves a submitted country name (or ISO code, or a known alias)
// to exactly one normalized entry. Zero matches and multiple matches are
// distinct failures; both abort the caller before any write happens.
func Validate(name string) (Country, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Country{}, ErrUnknown
	}

	var matches []Country
	for _, e := range countries {
		if strings.ToLower(e.Name) == needle || strings.ToLower(e.Code) == needle {
			matches = append(matches, e.Country)
			continue
		}
		for _, alias := range e.aliases {
			if alias == needle {
				matches = append(matches, e.Country)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return Country{}, ErrUnknown
	case 1:
		return matches[0], nil
	default:
		return Country{}, ErrAmbiguous
	}
}
