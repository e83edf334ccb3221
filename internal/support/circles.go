package support

import (
	"strings"

	"github.com/xaenox/heybro-bot/internal/location"
)

type CircleLocation struct {
	City     string
	State    string
	Country  string
	Online   bool
	Platform string
	Address  string
}

// Circle is a peer support group, in person or online.
type Circle struct {
	ID           string
	Name         string
	Description  string
	Organizer    string
	Location     CircleLocation
	MeetingTime  string
	Topics       []string
	ContactEmail string
	Website      string
}

func DefaultCircles() []Circle {
	return []Circle{
		{
			ID:          "1",
			Name:        "Austin Men's Development Network",
			Description: "A supportive group for men in Austin focusing on personal growth, emotional intelligence, and building strong community bonds. We meet weekly.",
			Organizer:   "John Doe",
			Location: CircleLocation{
				City:    "Austin",
				State:   "TX",
				Country: "United States",
				Address: "123 Main St, Austin, TX",
			},
			MeetingTime:  "Wednesdays at 7:00 PM CST",
			Topics:       []string{"Personal Growth", "Emotional Intelligence", "Community"},
			ContactEmail: "john.doe@example.com",
			Website:      "https://example.com/austinmenscircle",
		},
		{
			ID:          "2",
			Name:        "The Digital Brotherhood - Online Circle",
			Description: "An online men's circle for those who prefer to connect digitally. We discuss topics ranging from mental health to career development.",
			Organizer:   "Mike Smith",
			Location: CircleLocation{
				City:     "Online",
				Country:  "Global",
				Online:   true,
				Platform: "Zoom & Discord",
			},
			MeetingTime:  "First Monday of each month, 8:00 PM GMT",
			Topics:       []string{"Mental Health", "Career", "Digital Connection"},
			ContactEmail: "mike.smith@example.com",
		},
		{
			ID:          "3",
			Name:        "Vancouver Men's Sharing Circle",
			Description: "A safe space for men in Vancouver, BC, to share experiences, offer support, and foster genuine connections. All are welcome.",
			Organizer:   "David Lee",
			Location: CircleLocation{
				City:    "Vancouver",
				State:   "BC",
				Country: "Canada",
			},
			MeetingTime: "Bi-weekly on Saturdays, 2:00 PM PST",
			Topics:      []string{"Vulnerability", "Storytelling", "Support"},
			Website:     "https://example.com/vancouvercircle",
		},
	}
}

type CircleQuery struct {
	// Term matches name or description.
	Term string
	// Place matches the city of in-person circles or the platform of online ones.
	Place string
	// LocalOnly restricts in-person circles to the user's resolved city.
	LocalOnly bool
}

// SearchCircles filters circles by query, using loc for local-only searches.
func SearchCircles(circles []Circle, q CircleQuery, loc location.State) []Circle {
	term := strings.ToLower(strings.TrimSpace(q.Term))
	place := strings.ToLower(strings.TrimSpace(q.Place))

	out := make([]Circle, 0, len(circles))
	for _, c := range circles {
		if term != "" &&
			!strings.Contains(strings.ToLower(c.Name), term) &&
			!strings.Contains(strings.ToLower(c.Description), term) {
			continue
		}
		if place != "" && !matchesPlace(c, place) {
			continue
		}
		if q.LocalOnly && !isLocal(c, loc) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesPlace(c Circle, place string) bool {
	if c.Location.Online {
		return strings.Contains(strings.ToLower(c.Location.Platform), place)
	}
	return strings.Contains(strings.ToLower(c.Location.City), place)
}

func isLocal(c Circle, loc location.State) bool {
	if loc.Status != location.StatusGranted {
		return false
	}
	city := loc.City()
	if city == "" {
		// nothing to compare against yet
		return true
	}
	if c.Location.Online {
		return true
	}
	if !strings.EqualFold(c.Location.City, city) {
		return false
	}
	if country := loc.Region.Country; country != "" && c.Location.Country != "" {
		return strings.EqualFold(c.Location.Country, country)
	}
	return true
}
