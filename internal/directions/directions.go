// Package directions resolves travel durations between two places and
// builds the Maps Embed URLs clients show for an activity. Nothing here is
// on the save path of an activity: a failed lookup only means the user
// types the duration themselves.
package directions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/viewmodel"
)

// Request describes one route lookup. Mode defaults to transit; the
// transit fields are ignored for other modes.
type Request struct {
	Origin       string
	Destination  string
	Mode         domain.TravelMode
	TransitModes []domain.TransitMode
	Routing      domain.RoutingPreference
}

// Validate checks that both ends are present and the enums are known.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Origin) == "" || strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: origin and destination are required", domain.ErrValidation)
	}
	return domain.TransportDetails{
		TravelMode:        r.Mode,
		TransitModes:      r.TransitModes,
		RoutingPreference: r.Routing,
	}.Validate()
}

// Result is the first leg of the best route.
type Result struct {
	DurationMinutes int    `json:"durationMinutes"`
	DurationText    string `json:"durationText"`
	DistanceText    string `json:"distanceText"`
}

// Resolver is the narrow collaborator the rest of the service depends on.
type Resolver interface {
	ResolveTravelDuration(ctx context.Context, req Request) (Result, error)
}

// routeFinder is the part of *maps.Client the resolver uses.
type routeFinder interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// GoogleResolver resolves durations with the Google Directions API.
type GoogleResolver struct {
	client routeFinder
}

var _ Resolver = (*GoogleResolver)(nil)

// NewGoogleResolver builds a resolver authenticated with apiKey.
func NewGoogleResolver(apiKey string) (*GoogleResolver, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("directions.NewGoogleResolver: %w", err)
	}
	return &GoogleResolver{client: c}, nil
}

var travelModes = map[domain.TravelMode]maps.Mode{
	domain.TravelTransit:   maps.TravelModeTransit,
	domain.TravelDriving:   maps.TravelModeDriving,
	domain.TravelWalking:   maps.TravelModeWalking,
	domain.TravelBicycling: maps.TravelModeBicycling,
}

var transitModes = map[domain.TransitMode]maps.TransitMode{
	domain.TransitSubway: maps.TransitModeSubway,
	domain.TransitBus:    maps.TransitModeBus,
	domain.TransitTrain:  maps.TransitModeTrain,
	domain.TransitTram:   maps.TransitModeTram,
	domain.TransitRail:   maps.TransitModeRail,
}

var routingPreferences = map[domain.RoutingPreference]maps.TransitRoutingPreference{
	domain.RoutingLessWalking:    maps.TransitRoutingPreferenceLessWalking,
	domain.RoutingFewerTransfers: maps.TransitRoutingPreferenceFewerTransfers,
}

func (r Request) mode() domain.TravelMode {
	if r.Mode == "" {
		return domain.TravelTransit
	}
	return r.Mode
}

func toMapsRequest(r Request) *maps.DirectionsRequest {
	req := &maps.DirectionsRequest{
		Origin:      r.Origin,
		Destination: r.Destination,
		Mode:        travelModes[r.mode()],
	}
	if r.mode() != domain.TravelTransit {
		return req
	}
	for _, m := range r.TransitModes {
		req.TransitMode = append(req.TransitMode, transitModes[m])
	}
	if p, ok := routingPreferences[r.Routing]; ok {
		req.TransitRoutingPreference = p
	}
	return req
}

// ResolveTravelDuration returns the first leg of the first route. Every
// failure, including "no route", is reported as domain.ErrDirections.
func (g *GoogleResolver) ResolveTravelDuration(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("directions.ResolveTravelDuration: %w", err)
	}
	routes, _, err := g.client.Directions(ctx, toMapsRequest(req))
	if err != nil {
		return Result{}, fmt.Errorf("directions.ResolveTravelDuration: %w: %w", domain.ErrDirections, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Result{}, fmt.Errorf("directions.ResolveTravelDuration: %w", errNoRoute)
	}
	leg := routes[0].Legs[0]
	minutes := int(math.Round(leg.Duration.Minutes()))
	return Result{
		DurationMinutes: minutes,
		DurationText:    viewmodel.DurationText(minutes),
		DistanceText:    leg.Distance.HumanReadable,
	}, nil
}

var errNoRoute = fmt.Errorf("%w: no route found", domain.ErrDirections)

// IsUnavailable reports whether err came from a failed lookup rather than
// a bad request.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrDirections)
}

const embedBase = "https://www.google.com/maps/embed/v1/"

// Embedder builds Maps Embed API URLs for the map iframe.
type Embedder struct {
	apiKey string
}

// NewEmbedder returns an Embedder that signs URLs with apiKey.
func NewEmbedder(apiKey string) Embedder {
	return Embedder{apiKey: apiKey}
}

// RouteURL renders the route between two places.
func (e Embedder) RouteURL(origin, destination string, mode domain.TravelMode) string {
	if mode == "" {
		mode = domain.TravelTransit
	}
	q := url.Values{}
	q.Set("key", e.apiKey)
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", string(mode))
	return embedBase + "directions?" + q.Encode()
}

// PlaceURL renders a single place.
func (e Embedder) PlaceURL(location string) string {
	q := url.Values{}
	q.Set("key", e.apiKey)
	q.Set("q", location)
	return embedBase + "place?" + q.Encode()
}

// ActivityURL picks the route map for a transport activity with both ends
// known, the place map when there is a location, and "" otherwise.
func (e Embedder) ActivityURL(a domain.Activity) string {
	if t, ok := a.Transport(); ok {
		if t.DepartureLocation != "" && t.ArrivalLocation != "" {
			return e.RouteURL(t.DepartureLocation, t.ArrivalLocation, t.TravelMode)
		}
		if t.ArrivalLocation != "" {
			return e.PlaceURL(t.ArrivalLocation)
		}
		return ""
	}
	if p, ok := a.Place(); ok && p.Location != "" {
		return e.PlaceURL(p.Location)
	}
	return ""
}
