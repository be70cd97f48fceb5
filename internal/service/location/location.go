package location

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/emergency"
	"github.com/oshokin/sos-button/internal/service/hooks"
)

// ErrPositionUnavailable is returned when no position is known.
var ErrPositionUnavailable = errors.New("no location available to share")

// Position is a point on the map at a moment in time.
type Position struct {
	Latitude  float64
	Longitude float64
	// Accuracy is the radius of uncertainty in meters.
	Accuracy float64
	// Address is a human-readable street address.
	Address string
	// Timestamp is when the position was taken.
	Timestamp time.Time
}

// MapsURL returns a shareable map link for the position.
func (p Position) MapsURL() string {
	return fmt.Sprintf("https://maps.google.com/maps?q=%.6f,%.6f", p.Latitude, p.Longitude)
}

// FormatAccuracy renders the accuracy as ±12m or ±1.5km.
func (p Position) FormatAccuracy() string {
	if p.Accuracy < 1000 {
		return fmt.Sprintf("±%dm", int(math.Round(p.Accuracy)))
	}

	return fmt.Sprintf("±%.1fkm", p.Accuracy/1000)
}

// Provider returns the current position.
type Provider interface {
	Current(ctx context.Context) (Position, error)
}

// StaticProvider reports a configured position.
type StaticProvider struct {
	location config.Location
	now      func() time.Time
}

// NewStaticProvider creates a provider for a fixed configured position.
func NewStaticProvider(location config.Location) *StaticProvider {
	return &StaticProvider{
		location: location,
		now:      time.Now,
	}
}

// Current returns the configured position stamped with the current time.
func (p *StaticProvider) Current(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}

	if !p.location.IsSet() {
		return Position{}, ErrPositionUnavailable
	}

	address := p.location.Address
	if address == "" {
		address = MockAddress(p.location.Latitude, p.location.Longitude)
	}

	return Position{
		Latitude:  p.location.Latitude,
		Longitude: p.location.Longitude,
		Accuracy:  p.location.Accuracy,
		Address:   address,
		Timestamp: p.now(),
	}, nil
}

var (
	//nolint:gochecknoglobals // Lookup tables.
	mockStreets = []string{"Main St", "Oak Ave", "Park Blvd", "First St", "Market St", "Union Ave"}
	//nolint:gochecknoglobals // Lookup tables.
	mockAreas = []string{"Downtown", "Midtown", "Uptown", "Westside", "Eastside", "Northside"}
)

// maxStreetNumber bounds generated street numbers.
const maxStreetNumber = 9999

// MockAddress derives a stable street address from coordinates, standing in
// for reverse geocoding.
func MockAddress(lat, lng float64) string {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%.4f,%.4f", lat, lng)
	sum := h.Sum64()

	number := sum%maxStreetNumber + 1
	street := mockStreets[(sum>>16)%uint64(len(mockStreets))]
	area := mockAreas[(sum>>32)%uint64(len(mockAreas))]

	return fmt.Sprintf("%d %s, %s", number, street, area)
}

// Sharer delivers a position to the emergency contacts.
type Sharer interface {
	ShareLocation(ctx context.Context, incident *domain.Incident, position Position) error
}

// ShareHook is the location-share activation hook.
type ShareHook struct {
	provider Provider
	sharer   Sharer
}

// NewShareHook creates the hook reading from provider and delivering through sharer.
func NewShareHook(provider Provider, sharer Sharer) *ShareHook {
	return &ShareHook{
		provider: provider,
		sharer:   sharer,
	}
}

// Name implements hooks.Hook.
func (h *ShareHook) Name() string {
	return hooks.NameLocationShare
}

// Run takes the current position and shares it.
func (h *ShareHook) Run(ctx context.Context, incident *domain.Incident) error {
	position, err := h.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("current position: %w", err)
	}

	if err = h.sharer.ShareLocation(ctx, incident, position); err != nil {
		return fmt.Errorf("share position: %w", err)
	}

	return nil
}
