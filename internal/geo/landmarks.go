package geo

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avvvet/community-intent/internal/models"
)

const earthRadiusKm = 6371.0

// DefaultRadiusKm bounds how far a landmark may be and still be reported
const DefaultRadiusKm = 5.0

type Landmark struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

func (l Landmark) Coordinates() models.Coordinates {
	return models.Coordinates{Latitude: l.Latitude, Longitude: l.Longitude}
}

type landmarkFile struct {
	Landmarks []Landmark `yaml:"landmarks"`
}

// DefaultLandmarks is a table of MRT stations used when no file is configured
func DefaultLandmarks() []Landmark {
	return []Landmark{
		{Name: "Punggol Coast MRT", Latitude: 1.4155, Longitude: 103.9104},
		{Name: "Punggol MRT", Latitude: 1.4052, Longitude: 103.9024},
		{Name: "Sengkang MRT", Latitude: 1.3916, Longitude: 103.8954},
		{Name: "Buangkok MRT", Latitude: 1.3830, Longitude: 103.8930},
		{Name: "Hougang MRT", Latitude: 1.3712, Longitude: 103.8924},
		{Name: "Serangoon MRT", Latitude: 1.3497, Longitude: 103.8737},
		{Name: "Pasir Ris MRT", Latitude: 1.3731, Longitude: 103.9493},
		{Name: "Tampines MRT", Latitude: 1.3533, Longitude: 103.9452},
		{Name: "Bedok MRT", Latitude: 1.3240, Longitude: 103.9300},
		{Name: "Ang Mo Kio MRT", Latitude: 1.3700, Longitude: 103.8496},
		{Name: "Bishan MRT", Latitude: 1.3510, Longitude: 103.8485},
		{Name: "Toa Payoh MRT", Latitude: 1.3327, Longitude: 103.8474},
		{Name: "Yishun MRT", Latitude: 1.4295, Longitude: 103.8350},
		{Name: "Sembawang MRT", Latitude: 1.4491, Longitude: 103.8201},
		{Name: "Woodlands MRT", Latitude: 1.4370, Longitude: 103.7865},
		{Name: "Jurong East MRT", Latitude: 1.3331, Longitude: 103.7422},
		{Name: "Dhoby Ghaut MRT", Latitude: 1.2990, Longitude: 103.8456},
		{Name: "Raffles Place MRT", Latitude: 1.2840, Longitude: 103.8515},
	}
}

// LoadLandmarks reads a YAML landmark table. An empty path yields the defaults.
func LoadLandmarks(path string) ([]Landmark, error) {
	if path == "" {
		return DefaultLandmarks(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read landmarks file: %w", err)
	}

	var file landmarkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse landmarks file: %w", err)
	}

	for i, l := range file.Landmarks {
		if l.Name == "" {
			return nil, fmt.Errorf("landmark %d has no name", i)
		}
		if !l.Coordinates().Valid() {
			return nil, fmt.Errorf("landmark %q has invalid coordinates", l.Name)
		}
	}
	return file.Landmarks, nil
}

// Haversine returns the great-circle distance in kilometres
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// NearestLandmark returns the closest landmark within radiusKm. A nearest
// landmark beyond the radius is not reported.
func NearestLandmark(point models.Coordinates, landmarks []Landmark, radiusKm float64) (Landmark, float64, bool) {
	best := -1
	bestDistance := math.Inf(1)
	for i, l := range landmarks {
		if d := Haversine(point, l.Coordinates()); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	if best == -1 || bestDistance > radiusKm {
		return Landmark{}, 0, false
	}
	return landmarks[best], bestDistance, true
}
