package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avvvet/community-intent/internal/models"
)

func TestCompose(t *testing.T) {
	coords := &models.Coordinates{Latitude: 1.410576, Longitude: 103.893386}
	ts := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		preformatted string
		parts        Parts
		expected     string
	}{
		{
			name: "full template",
			parts: Parts{
				Geo:       models.GeoContext{Coordinates: coords, Address: "1 Punggol Field, Punggol", NearestLandmark: "Punggol MRT"},
				Timestamp: ts,
			},
			expected: "Emergency SOS activated. Location: 1 Punggol Field, Punggol, near Punggol MRT (Lat: 1.410576, Lng: 103.893386). Time: 2026-10-15 14:30.",
		},
		{
			name:     "geocoding failed",
			parts:    Parts{Geo: models.GeoContext{Coordinates: coords, NearestLandmark: "Punggol MRT"}},
			expected: "Emergency SOS activated. Location: location unavailable, near Punggol MRT (Lat: 1.410576, Lng: 103.893386).",
		},
		{
			name:     "landmark lookup unavailable",
			parts:    Parts{Geo: models.GeoContext{Coordinates: coords, Address: "Punggol Field"}},
			expected: "Emergency SOS activated. Location: Punggol Field, nearest landmark unknown (Lat: 1.410576, Lng: 103.893386).",
		},
		{
			name:     "no landmark within radius",
			parts:    Parts{Geo: models.GeoContext{Coordinates: coords, Address: "Punggol Field", LandmarkSearched: true}},
			expected: "Emergency SOS activated. Location: Punggol Field, no known landmark nearby (Lat: 1.410576, Lng: 103.893386).",
		},
		{
			name:     "nothing known",
			parts:    Parts{Headline: "Help requested."},
			expected: "Help requested. Location: location unavailable, nearest landmark unknown.",
		},
		{
			name:         "preformatted wins",
			preformatted: "  Emergency SOS activated. Location: Blk 123 near Punggol Coast MRT  ",
			parts:        Parts{Geo: models.GeoContext{Address: "server address"}},
			expected:     "Emergency SOS activated. Location: Blk 123 near Punggol Coast MRT",
		},
		{
			name:         "preformatted is escaped",
			preformatted: `Fall at <Block 5> & "lift" lobby`,
			expected:     "Fall at &lt;Block 5&gt; &amp; &#34;lift&#34; lobby",
		},
		{
			name:     "template is escaped",
			parts:    Parts{Geo: models.GeoContext{Address: "Tom & Jerry Lane"}},
			expected: "Emergency SOS activated. Location: Tom &amp; Jerry Lane, nearest landmark unknown.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compose(tt.preformatted, tt.parts))
		})
	}
}
