package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/models"
)

func formatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

func formatTime(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}

// when renders " on <date> at <time>" with whichever parts are known
func when(e models.EventRecord) string {
	var b strings.Builder
	if e.Date != "" {
		b.WriteString(" on " + formatDate(e.Date))
	}
	if e.Time != "" {
		b.WriteString(" at " + formatTime(e.Time))
	}
	return b.String()
}

func numberedList(events []models.EventRecord) string {
	lines := make([]string, 0, len(events))
	for i, e := range events {
		lines = append(lines, fmt.Sprintf("%d. %s%s.", i+1, e.Title, when(e)))
	}
	return strings.Join(lines, " ")
}

func joinTitles(events []models.EventRecord, conj string) string {
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	switch len(titles) {
	case 0:
		return ""
	case 1:
		return titles[0]
	}
	return strings.Join(titles[:len(titles)-1], ", ") + " " + conj + " " + titles[len(titles)-1]
}

func summary(e models.EventRecord) string {
	var b strings.Builder
	b.WriteString(e.Title + ".")
	if e.Date != "" {
		b.WriteString(" Date: " + formatDate(e.Date) + ".")
	}
	if e.Time != "" {
		b.WriteString(" Time: " + formatTime(e.Time) + ".")
	}
	if e.Location != "" {
		b.WriteString(" Location: " + e.Location + ".")
	}
	if d := strings.TrimSpace(e.Description); d != "" {
		b.WriteString(" " + strings.TrimSuffix(d, ".") + ".")
	}
	if e.MaxParticipants != nil {
		fmt.Fprintf(&b, " Capacity: %d participants.", *e.MaxParticipants)
	}
	return b.String()
}
