package response

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/models"
)

const (
	DefaultHeadline     = "Emergency SOS activated."
	AddressPlaceholder  = "location unavailable"
	LandmarkPlaceholder = "nearest landmark unknown"
	NoLandmarkNearby    = "no known landmark nearby"
	timestampLayout     = "2006-01-02 15:04"
)

// Parts are the server-side components of an alert message
type Parts struct {
	Headline  string
	Geo       models.GeoContext
	Timestamp time.Time
}

// Compose returns the message handed to the speech and telephony channel.
// A caller supplied message wins over the server template; either way the
// result is escaped.
func Compose(preformatted string, parts Parts) string {
	if msg := strings.TrimSpace(preformatted); msg != "" {
		return Escape(msg)
	}
	return Escape(Template(parts))
}

// Template renders parts without escaping
func Template(parts Parts) string {
	headline := parts.Headline
	if headline == "" {
		headline = DefaultHeadline
	}

	address := parts.Geo.Address
	if address == "" {
		address = AddressPlaceholder
	}

	var landmark string
	switch {
	case parts.Geo.NearestLandmark != "":
		landmark = "near " + parts.Geo.NearestLandmark
	case parts.Geo.LandmarkSearched:
		landmark = NoLandmarkNearby
	default:
		landmark = LandmarkPlaceholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Location: %s, %s", headline, address, landmark)
	if parts.Geo.Coordinates != nil {
		fmt.Fprintf(&b, " (%s)", parts.Geo.Coordinates.String())
	}
	b.WriteString(".")
	if !parts.Timestamp.IsZero() {
		fmt.Fprintf(&b, " Time: %s.", parts.Timestamp.Format(timestampLayout))
	}
	return b.String()
}

// Escape makes text safe to embed in TwiML and HTML bodies
func Escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
