package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/viewmodel"
)

// TripResponse is the JSON shape of a trip.
type TripResponse struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Destination    string             `json:"destination"`
	StartDate      openapi_types.Date `json:"startDate"`
	EndDate        openapi_types.Date `json:"endDate"`
	CreatedBy      string             `json:"createdBy"`
	Members        []string           `json:"members"`
	CreatedAt      time.Time          `json:"createdAt"`
	OutboundFlight *domain.FlightInfo `json:"outboundFlight,omitempty"`
	ReturnFlight   *domain.FlightInfo `json:"returnFlight,omitempty"`
	CoverColor     string             `json:"coverColor,omitempty"`
	CoverImageURL  string             `json:"coverImageUrl,omitempty"`
}

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	Title          string             `json:"title"`
	Destination    string             `json:"destination"`
	StartDate      openapi_types.Date `json:"startDate"`
	EndDate        openapi_types.Date `json:"endDate"`
	OutboundFlight *domain.FlightInfo `json:"outboundFlight"`
	ReturnFlight   *domain.FlightInfo `json:"returnFlight"`
	CoverColor     string             `json:"coverColor"`
	CoverImageURL  string             `json:"coverImageUrl"`
}

// UpdateTripRequest is the body of PATCH /trips/{tripID}. An absent key
// leaves the field alone, null clears it.
type UpdateTripRequest struct {
	Title          domain.Field[string]             `json:"title"`
	Destination    domain.Field[string]             `json:"destination"`
	StartDate      domain.Field[openapi_types.Date] `json:"startDate"`
	EndDate        domain.Field[openapi_types.Date] `json:"endDate"`
	OutboundFlight domain.Field[domain.FlightInfo]  `json:"outboundFlight"`
	ReturnFlight   domain.Field[domain.FlightInfo]  `json:"returnFlight"`
	CoverColor     domain.Field[string]             `json:"coverColor"`
	CoverImageURL  domain.Field[string]             `json:"coverImageUrl"`
}

// CoverUploadRequest is the body of POST /trips/{tripID}/cover-upload.
type CoverUploadRequest struct {
	ContentType string `json:"contentType"`
}

// ListTrips handles GET /trips.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.Trips.List(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsToResponse(trips))
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body CreateTripRequest
	if !decode(w, r, &body) {
		return
	}

	created, err := s.Trips.Create(writeContext(r), principal(r).UserID, body.toDomain())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// GetTrip handles GET /trips/{tripID}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.Trips.GetByID(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PATCH /trips/{tripID}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var body UpdateTripRequest
	if !decode(w, r, &body) {
		return
	}

	updated, err := s.Trips.Update(writeContext(r), chi.URLParam(r, "tripID"), body.toPatch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{tripID}. Activities are not deleted.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.Trips.Delete(writeContext(r), chi.URLParam(r, "tripID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCoverUpload handles POST /trips/{tripID}/cover-upload. The client
// PUTs the image to uploadUrl, then sets coverImageUrl with PATCH.
func (s *Server) CreateCoverUpload(w http.ResponseWriter, r *http.Request) {
	if s.Covers == nil {
		notImplemented(w, "cover upload")
		return
	}
	var body CoverUploadRequest
	if !decode(w, r, &body) {
		return
	}

	tripID := chi.URLParam(r, "tripID")
	if _, err := s.Trips.GetByID(r.Context(), tripID); err != nil {
		s.fail(w, r, err)
		return
	}
	up, err := s.Covers.PresignCover(r.Context(), tripID, body.ContentType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// ---- itinerary -------------------------------------------------------------

// ItineraryResponse is a trip with every derived value the detail screen
// shows, computed at request time.
type ItineraryResponse struct {
	Trip TripResponse `json:"trip"`
	viewmodel.Itinerary
	Days []DayResponse `json:"days"`
}

// DayResponse is one calendar day of the itinerary.
type DayResponse struct {
	Index      int                         `json:"index"`
	Date       openapi_types.Date          `json:"date"`
	Activities []ItineraryActivityResponse `json:"activities"`
}

// ItineraryActivityResponse is an activity with its display strings.
type ItineraryActivityResponse struct {
	Activity ActivityResponse `json:"activity"`
	viewmodel.ActivityView
	MapURL string `json:"mapUrl,omitempty"`
}

// GetItinerary handles GET /trips/{tripID}/itinerary.
func (s *Server) GetItinerary(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	trip, err := s.Trips.GetByID(r.Context(), tripID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	activities, err := s.Activities.List(r.Context(), tripID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	it := viewmodel.Build(trip, activities, s.now(), s.Location)
	resp := ItineraryResponse{
		Trip:      tripToResponse(trip),
		Itinerary: it,
		Days:      make([]DayResponse, len(it.Days)),
	}
	for i, d := range it.Days {
		day := DayResponse{
			Index:      d.Index,
			Date:       openapi_types.Date{Time: d.Date},
			Activities: make([]ItineraryActivityResponse, len(d.Activities)),
		}
		for j, v := range d.Activities {
			day.Activities[j] = ItineraryActivityResponse{
				Activity:     activityToResponse(v.Activity),
				ActivityView: v,
			}
			if s.Maps != nil {
				day.Activities[j].MapURL = s.Maps.ActivityURL(v.Activity)
			}
		}
		resp.Days[i] = day
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- mapping helpers -------------------------------------------------------

func (b CreateTripRequest) toDomain() domain.NewTrip {
	return domain.NewTrip{
		Title:          b.Title,
		Destination:    b.Destination,
		StartDate:      b.StartDate.Time,
		EndDate:        b.EndDate.Time,
		OutboundFlight: b.OutboundFlight,
		ReturnFlight:   b.ReturnFlight,
		CoverColor:     b.CoverColor,
		CoverImageURL:  b.CoverImageURL,
	}
}

func dateTime(d openapi_types.Date) time.Time { return d.Time }

func (b UpdateTripRequest) toPatch() domain.TripPatch {
	return domain.TripPatch{
		Title:          b.Title,
		Destination:    b.Destination,
		StartDate:      domain.MapField(b.StartDate, dateTime),
		EndDate:        domain.MapField(b.EndDate, dateTime),
		OutboundFlight: b.OutboundFlight,
		ReturnFlight:   b.ReturnFlight,
		CoverColor:     b.CoverColor,
		CoverImageURL:  b.CoverImageURL,
	}
}

func tripToResponse(t domain.Trip) TripResponse {
	members := t.Members
	if members == nil {
		members = []string{}
	}
	return TripResponse{
		ID:             t.ID,
		Title:          t.Title,
		Destination:    t.Destination,
		StartDate:      openapi_types.Date{Time: t.StartDate},
		EndDate:        openapi_types.Date{Time: t.EndDate},
		CreatedBy:      t.CreatedBy,
		Members:        members,
		CreatedAt:      t.CreatedAt,
		OutboundFlight: t.OutboundFlight,
		ReturnFlight:   t.ReturnFlight,
		CoverColor:     t.CoverColor,
		CoverImageURL:  t.CoverImageURL,
	}
}

func tripsToResponse(trips []domain.Trip) []TripResponse {
	out := make([]TripResponse, len(trips))
	for i, t := range trips {
		out[i] = tripToResponse(t)
	}
	return out
}
