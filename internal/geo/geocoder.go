package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/models"
)

// ErrNoAddress is returned when the geocoder knows nothing about a point
var ErrNoAddress = errors.New("no address for coordinates")

// Geocoder resolves coordinates to a human readable address
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coords models.Coordinates) (string, error)
}

// NominatimGeocoder talks to an OpenStreetMap Nominatim reverse endpoint
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatimGeocoder(baseURL, userAgent string, timeout time.Duration) *NominatimGeocoder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NominatimGeocoder{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimResponse struct {
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, coords models.Coordinates) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("zoom", "18")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("geocoder returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNoAddress, result.Error)
	}

	if address := shortAddress(result.Address); address != "" {
		return address, nil
	}
	if result.DisplayName != "" {
		return result.DisplayName, nil
	}
	return "", ErrNoAddress
}

// shortAddress keeps the street and the area, which reads better aloud than
// the full display name
func shortAddress(address map[string]string) string {
	var parts []string

	street := address["road"]
	if street != "" && address["house_number"] != "" {
		street = address["house_number"] + " " + street
	}
	if street != "" {
		parts = append(parts, street)
	}

	for _, key := range []string{"suburb", "neighbourhood", "quarter", "city_district", "town", "city"} {
		if area := address[key]; area != "" && area != street {
			parts = append(parts, area)
			break
		}
	}

	return strings.Join(parts, ", ")
}
