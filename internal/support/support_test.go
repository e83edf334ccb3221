package support

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/heybro-bot/internal/location"
)

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, name(it))
	}
	return out
}

func resourceName(r CrisisResource) string { return r.Name }
func circleName(c Circle) string           { return c.Name }

func TestFilterResourcesWithoutCountry(t *testing.T) {
	got := FilterResources(DefaultCrisisResources(), nil)
	assert.Len(t, got, 3)
	assert.NotContains(t, names(got, resourceName), "SAMHSA Treatment Locator")

	got = FilterResources(DefaultCrisisResources(), &location.Region{City: "Somewhere"})
	assert.Len(t, got, 3)
}

func TestFilterResourcesByCountry(t *testing.T) {
	us := FilterResources(DefaultCrisisResources(), &location.Region{Country: "United States", CountryCode: "US"})
	assert.Len(t, us, 4)

	byName := FilterResources(DefaultCrisisResources(), &location.Region{Country: "united states"})
	assert.Contains(t, names(byName, resourceName), "SAMHSA Treatment Locator")

	ca := FilterResources(DefaultCrisisResources(), &location.Region{Country: "Canada", CountryCode: "CA"})
	assert.Len(t, ca, 3)
}

func granted(city, country string) location.State {
	return location.State{
		Status:      location.StatusGranted,
		Coordinates: &location.Coordinates{Latitude: 1, Longitude: 2},
		Region:      &location.Region{City: city, Country: country},
	}
}

func TestSearchCirclesByTerm(t *testing.T) {
	got := SearchCircles(DefaultCircles(), CircleQuery{Term: "ONLINE"}, location.State{})
	assert.Equal(t, []string{"The Digital Brotherhood - Online Circle"}, names(got, circleName))

	got = SearchCircles(DefaultCircles(), CircleQuery{Term: "safe space"}, location.State{})
	assert.Equal(t, []string{"Vancouver Men's Sharing Circle"}, names(got, circleName))

	assert.Len(t, SearchCircles(DefaultCircles(), CircleQuery{}, location.State{}), 3)
}

func TestSearchCirclesByPlace(t *testing.T) {
	got := SearchCircles(DefaultCircles(), CircleQuery{Place: "zoom"}, location.State{})
	assert.Equal(t, []string{"The Digital Brotherhood - Online Circle"}, names(got, circleName))

	got = SearchCircles(DefaultCircles(), CircleQuery{Place: "austin"}, location.State{})
	assert.Equal(t, []string{"Austin Men's Development Network"}, names(got, circleName))
}

func TestSearchCirclesLocalOnly(t *testing.T) {
	q := CircleQuery{LocalOnly: true}

	got := SearchCircles(DefaultCircles(), q, granted("Austin", "United States"))
	assert.Equal(t, []string{"Austin Men's Development Network", "The Digital Brotherhood - Online Circle"}, names(got, circleName))

	got = SearchCircles(DefaultCircles(), q, granted("Austin", "Australia"))
	assert.Equal(t, []string{"The Digital Brotherhood - Online Circle"}, names(got, circleName))

	got = SearchCircles(DefaultCircles(), q, granted("vancouver", ""))
	assert.Contains(t, names(got, circleName), "Vancouver Men's Sharing Circle")
}

func TestSearchCirclesLocalOnlyNeedsPermission(t *testing.T) {
	q := CircleQuery{LocalOnly: true}
	for _, status := range []location.PermissionStatus{location.StatusPrompt, location.StatusDenied, location.StatusUnavailable} {
		assert.Empty(t, SearchCircles(DefaultCircles(), q, location.State{Status: status}))
	}

	// granted but the city is not known yet
	assert.Len(t, SearchCircles(DefaultCircles(), q, location.State{Status: location.StatusGranted}), 3)
}

func TestRandomPepTalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	talk := RandomPepTalk(rng)
	assert.Contains(t, PepTalks(), talk)
	assert.Contains(t, PepTalks(), RandomPepTalk(nil))

	again := RandomPepTalk(rand.New(rand.NewSource(42)))
	assert.Equal(t, talk, again)
}

func TestResetExercises(t *testing.T) {
	require.Len(t, GroundingSteps(), 5)
	assert.Len(t, JournalPrompts(), 5)

	total := 0
	for _, s := range BreathworkSteps() {
		total += s.Seconds
	}
	assert.Equal(t, 16, total)
}
