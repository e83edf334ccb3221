package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/heybro-bot/internal/location"
	"github.com/xaenox/heybro-bot/internal/models"
	"github.com/xaenox/heybro-bot/internal/support"
)

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func formatResources(resources []support.CrisisResource, loc location.State) string {
	var sb strings.Builder
	sb.WriteString("*Crisis Support*\n")
	sb.WriteString(escapeMarkdown("If you're experiencing a crisis or having thoughts of harming yourself, please reach out for immediate support:"))
	sb.WriteString("\n\n")

	for _, r := range resources {
		fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(r.Name))
		fmt.Fprintf(&sb, "%s\n", escapeMarkdown(r.Description))
		fmt.Fprintf(&sb, "%s: %s\n\n", escapeMarkdown(r.Action), escapeMarkdown(r.Contact))
	}

	if note := locationNote(loc); note != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", escapeMarkdown(note))
	}
	sb.WriteString(escapeMarkdown(support.EmergencyNote))
	return sb.String()
}

// locationNote explains why the list may not be localized.
func locationNote(loc location.State) string {
	switch loc.Status {
	case location.StatusPrompt:
		return "Use /locate to share your location and see local resources."
	case location.StatusDenied:
		return "Location permission was denied. We will show general support resources. Use /locate to try again."
	case location.StatusUnavailable:
		return "Location is not available here, so these are general support resources."
	}
	if loc.Region == nil || loc.Region.Country == "" {
		return "We couldn't work out your country, so these are general support resources."
	}
	return ""
}

func formatCircles(circles []support.Circle) string {
	if len(circles) == 0 {
		return "No circles match your search yet."
	}

	var sb strings.Builder
	sb.WriteString("*Men's Circles*\n\n")
	for _, c := range circles {
		fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(c.Name))
		fmt.Fprintf(&sb, "%s\n", escapeMarkdown(c.Description))
		where := c.Location.City
		if c.Location.Online {
			where = "Online via " + c.Location.Platform
		} else if c.Location.State != "" {
			where += ", " + c.Location.State
		}
		fmt.Fprintf(&sb, "📍 %s\n", escapeMarkdown(where))
		if c.MeetingTime != "" {
			fmt.Fprintf(&sb, "🕒 %s\n", escapeMarkdown(c.MeetingTime))
		}
		if len(c.Topics) > 0 {
			fmt.Fprintf(&sb, "Topics: %s\n", escapeMarkdown(strings.Join(c.Topics, ", ")))
		}
		if c.Website != "" {
			fmt.Fprintf(&sb, "%s\n", escapeMarkdown(c.Website))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatHistory(messages []models.Message) string {
	var sb strings.Builder
	sb.WriteString("*Your recent messages:*\n\n")
	for _, m := range messages {
		who := "You"
		if m.Role == models.RoleAssistant {
			who = "HeyBro"
		}
		fmt.Fprintf(&sb, "*%s* _%s_\n", escapeMarkdown(who), escapeMarkdown(m.Timestamp.Format("Jan 2 15:04")))
		fmt.Fprintf(&sb, "%s\n\n", escapeMarkdown(m.Content))
	}
	return sb.String()
}

func formatLocationResult(loc location.State) string {
	switch loc.Status {
	case location.StatusUnavailable:
		return "Location isn't available on this platform. I'll show general resources instead."
	case location.StatusDenied:
		return "Location permission denied. That's fine, I'll stick to general resources. Send /locate if you change your mind."
	}
	if !loc.HasCoordinates() {
		if loc.LastError != nil {
			return loc.LastError.Message() + " Send /locate to try again."
		}
		return "I don't have your location yet. Send /locate to share it."
	}
	if loc.Region == nil {
		return "Got your location, but I couldn't work out the city. I'll show general resources."
	}
	place := strings.Trim(strings.Join([]string{loc.Region.City, loc.Region.Country}, ", "), ", ")
	if place == "" {
		return "Got your location."
	}
	return fmt.Sprintf("Got it, you're around %s.", place)
}

func formatVents(entries []models.VentEntry) string {
	if len(entries) == 0 {
		return "You don't have any saved vents."
	}
	var sb strings.Builder
	sb.WriteString("Your private vents (only you can see these):\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] %s\n%s\n\n", shortID(e.ID), e.CreatedAt.Format("Jan 2, 3:04 PM"), e.Preview())
	}
	sb.WriteString("Delete one with /unvent <id>.")
	return sb.String()
}

func formatReset() string {
	var sb strings.Builder
	sb.WriteString("Quick mental reset.\n\nBreathwork:\n")
	for _, s := range support.BreathworkSteps() {
		fmt.Fprintf(&sb, "• %s (%ds)\n", s.Instruction, s.Seconds)
	}
	sb.WriteString("\nGrounding, 5-4-3-2-1:\n")
	for _, s := range support.GroundingSteps() {
		fmt.Fprintf(&sb, "• %s\n", s)
	}
	prompts := support.JournalPrompts()
	fmt.Fprintf(&sb, "\nIf you want to write: %s Use /vent to get it out.", prompts[0])
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseCircleArgs splits "/circles <term> in <place>" arguments.
func parseCircleArgs(args string) (term, place string) {
	args = strings.TrimSpace(args)
	lower := strings.ToLower(args)
	if len(lower) != len(args) {
		return args, ""
	}
	if strings.HasPrefix(lower, "in ") {
		return "", strings.TrimSpace(args[3:])
	}
	if i := strings.LastIndex(lower, " in "); i >= 0 {
		return strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+4:])
	}
	return args, ""
}

// parseIndex turns a 1-based number from the user into a slice index.
func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func formatGoals(goals []string) string {
	var sb strings.Builder
	if len(goals) == 0 {
		sb.WriteString("You haven't set any goals yet. Goals are optional and help me support you better.\n\nSuggested goals:\n")
		for i, g := range support.SuggestedGoals() {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, g)
		}
		sb.WriteString("\nAdd one with /goal <number> or /goal <your own goal>.")
		return sb.String()
	}

	sb.WriteString("Your goals:\n")
	for i, g := range goals {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, g)
	}
	if len(goals) < support.MaxGoals {
		sb.WriteString("\nAdd another with /goal <text>. ")
	} else {
		sb.WriteString("\n")
	}
	sb.WriteString("Remove one with /ungoal <number>.")
	return sb.String()
}

func formatMoods(s support.MoodSummary) string {
	if len(s.Entries) == 0 {
		return fmt.Sprintf("No check-ins this %s yet. Log one with /checkin <mood>.", s.Frame)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your moods this %s:\n\n", s.Frame)
	for _, c := range s.Entries {
		fmt.Fprintf(&sb, "%s  %s", c.CreatedAt.Format("Jan 2"), c.Mood)
		if c.Note != "" {
			fmt.Fprintf(&sb, " (%s)", c.Note)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nCheck-ins: %d, average %.1f out of 5.", len(s.Entries), s.Average)
	if m, ok := s.Dominant(); ok {
		fmt.Fprintf(&sb, " Mostly %s.", m)
	}
	return sb.String()
}

func formatDashboard(user *models.User, week support.MoodSummary, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("Welcome, Bro.\n\n")

	if !user.LastCheckInAt.IsZero() && user.LastCheckInAt.In(now.Location()).Format(time.DateOnly) == now.Format(time.DateOnly) {
		sb.WriteString("Daily check-in: done today. Nice.\n")
	} else {
		sb.WriteString("Daily check-in: how are you feeling today? Use /checkin <mood>.\n")
	}

	if len(week.Entries) == 0 {
		sb.WriteString("This week: no check-ins yet.\n")
	} else {
		fmt.Fprintf(&sb, "This week: %d check-ins, average %.1f out of 5", len(week.Entries), week.Average)
		if m, ok := week.Dominant(); ok {
			fmt.Fprintf(&sb, ", mostly %s", m)
		}
		sb.WriteString(". See /moods.\n")
	}

	if len(user.Goals) == 0 {
		sb.WriteString("Goals: none yet. See /goals.\n")
	} else {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(user.Goals, "; "))
	}

	sb.WriteString("\nQuick support: /reset for a 2 minute mental reset, /pep for a pep talk, /vent to get it off your chest, or just talk to me.")
	return sb.String()
}
