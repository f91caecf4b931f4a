package geo

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
)

// Locator builds the GeoContext for an emergency. Geocoding and landmark
// lookup run side by side and fail independently.
type Locator struct {
	geocoder  Geocoder
	landmarks []Landmark
	radiusKm  float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewLocator(geocoder Geocoder, landmarks []Landmark, radiusKm float64, logger *zap.Logger, m *metrics.Metrics) *Locator {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		geocoder:  geocoder,
		landmarks: landmarks,
		radiusKm:  radiusKm,
		logger:    logger,
		metrics:   m,
	}
}

func (l *Locator) Locate(ctx context.Context, coords models.Coordinates) models.GeoContext {
	geoCtx := models.GeoContext{Coordinates: &coords}
	if !coords.Valid() {
		l.logger.Warn("coordinates out of range, skipping location lookup",
			zap.Float64("lat", coords.Latitude),
			zap.Float64("lng", coords.Longitude),
		)
		return geoCtx
	}

	var (
		address  string
		landmark Landmark
		distance float64
		found    bool
	)

	// Neither goroutine returns an error so one failing never cancels the other
	var g errgroup.Group
	g.Go(func() error {
		if l.geocoder == nil {
			return nil
		}
		start := time.Now()
		addr, err := l.geocoder.ReverseGeocode(ctx, coords)
		l.metrics.ObserveCall("geocoder", start, err)
		if err != nil {
			l.logger.Warn("reverse geocoding degraded", zap.Error(err))
			return nil
		}
		address = addr
		return nil
	})
	g.Go(func() error {
		landmark, distance, found = NearestLandmark(coords, l.landmarks, l.radiusKm)
		if !found {
			l.logger.Info("no known landmark nearby", zap.Float64("radius_km", l.radiusKm))
		}
		return nil
	})
	_ = g.Wait()

	geoCtx.Address = address
	geoCtx.LandmarkSearched = len(l.landmarks) > 0
	if found {
		geoCtx.NearestLandmark = landmark.Name
		geoCtx.LandmarkDistanceKm = distance
	}
	return geoCtx
}
