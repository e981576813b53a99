package handler

import (
	"net/http"
	"strings"

	"github.com/cychmps426211/travelplan/internal/directions"
	"github.com/cychmps426211/travelplan/internal/domain"
)

// DurationRequest is the body of POST /directions/duration.
type DurationRequest struct {
	Origin            string                   `json:"origin"`
	Destination       string                   `json:"destination"`
	TravelMode        domain.TravelMode        `json:"travelMode"`
	TransitModes      []domain.TransitMode     `json:"transitModes"`
	RoutingPreference domain.RoutingPreference `json:"routingPreference"`
}

// EmbedResponse is the body of GET /directions/embed.
type EmbedResponse struct {
	URL string `json:"url"`
}

// ResolveDuration handles POST /directions/duration. A failed lookup is a
// 502 the client shows as "enter the duration manually".
func (s *Server) ResolveDuration(w http.ResponseWriter, r *http.Request) {
	if s.Directions == nil {
		notImplemented(w, "directions")
		return
	}
	var body DurationRequest
	if !decode(w, r, &body) {
		return
	}

	res, err := s.Directions.ResolveTravelDuration(r.Context(), directions.Request{
		Origin:       body.Origin,
		Destination:  body.Destination,
		Mode:         body.TravelMode,
		TransitModes: body.TransitModes,
		Routing:      body.RoutingPreference,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetEmbedURL handles GET /directions/embed. With origin and destination
// it returns a route map, with location a place map.
func (s *Server) GetEmbedURL(w http.ResponseWriter, r *http.Request) {
	if s.Maps == nil {
		notImplemented(w, "maps")
		return
	}
	q := r.URL.Query()
	origin := strings.TrimSpace(q.Get("origin"))
	destination := strings.TrimSpace(q.Get("destination"))
	location := strings.TrimSpace(q.Get("location"))

	switch {
	case origin != "" && destination != "":
		mode := domain.TravelMode(q.Get("mode"))
		if mode != "" && !mode.Valid() {
			writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "unknown travel mode "+string(mode))
			return
		}
		writeJSON(w, http.StatusOK, EmbedResponse{URL: s.Maps.RouteURL(origin, destination, mode)})
	case location != "":
		writeJSON(w, http.StatusOK, EmbedResponse{URL: s.Maps.PlaceURL(location)})
	default:
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "origin and destination, or location, are required")
	}
}
