package support

import (
	"strings"

	"github.com/xaenox/heybro-bot/internal/location"
)

// CrisisResource is a hotline or service shown to someone in a dark moment.
type CrisisResource struct {
	Name        string
	Contact     string
	Description string
	Action      string
	URL         string
	// CountryScope limits the resource to these countries (ISO codes or
	// names). Empty means it is shown everywhere.
	CountryScope []string
}

func DefaultCrisisResources() []CrisisResource {
	return []CrisisResource{
		{
			Name:        "National Suicide Prevention Lifeline",
			Contact:     "988",
			Description: "24/7, free and confidential support for people in distress",
			Action:      "Call",
			URL:         "tel:988",
		},
		{
			Name:        "Crisis Text Line",
			Contact:     "Text HOME to 741741",
			Description: "Free 24/7 support with a trained crisis counselor",
			Action:      "Text",
			URL:         "sms:741741&body=HOME",
		},
		{
			Name:        "Veterans Crisis Line",
			Contact:     "Call 988, then press 1",
			Description: "Support for veterans and their loved ones",
			Action:      "Call",
			URL:         "tel:988",
		},
		{
			Name:         "SAMHSA Treatment Locator",
			Contact:      "findtreatment.samhsa.gov",
			Description:  "Find treatment facilities and programs in the United States.",
			Action:       "Visit",
			URL:          "https://findtreatment.samhsa.gov/",
			CountryScope: []string{"US", "United States"},
		},
	}
}

// EmergencyNote is appended to every resource list.
const EmergencyNote = "If you're in immediate danger, please call your local emergency services (e.g., 911 in the US) or go to the nearest emergency room."

// FilterResources keeps the resources relevant to region. Without a known
// country only unscoped resources are kept.
func FilterResources(resources []CrisisResource, region *location.Region) []CrisisResource {
	var keys []string
	if region != nil {
		for _, k := range []string{region.CountryCode, region.Country} {
			if k != "" {
				keys = append(keys, k)
			}
		}
	}

	out := make([]CrisisResource, 0, len(resources))
	for _, r := range resources {
		if len(r.CountryScope) == 0 || inScope(r.CountryScope, keys) {
			out = append(out, r)
		}
	}
	return out
}

func inScope(scope, keys []string) bool {
	for _, s := range scope {
		for _, k := range keys {
			if strings.EqualFold(s, k) {
				return true
			}
		}
	}
	return false
}
