package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// ActivityResponse is the JSON shape of an activity. The variant fields are
// flattened: location for place activities, the departure/arrival group for
// transport.
type ActivityResponse struct {
	ID        string              `json:"id"`
	TripID    string              `json:"tripId"`
	Title     string              `json:"title"`
	Type      domain.ActivityType `json:"type"`
	StartTime time.Time           `json:"startTime"`
	EndTime   *time.Time          `json:"endTime,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Checklist domain.Checklist    `json:"checklist"`

	Location string `json:"location,omitempty"`

	DepartureLocation string                   `json:"departureLocation,omitempty"`
	ArrivalLocation   string                   `json:"arrivalLocation,omitempty"`
	TravelMode        domain.TravelMode        `json:"travelMode,omitempty"`
	TransitModes      []domain.TransitMode     `json:"transitModes,omitempty"`
	RoutingPreference domain.RoutingPreference `json:"routingPreference,omitempty"`
	EstimatedDuration *int                     `json:"estimatedDuration,omitempty"`
}

// CreateActivityRequest is the body of POST /trips/{tripID}/activities.
type CreateActivityRequest struct {
	Title     string              `json:"title"`
	Type      domain.ActivityType `json:"type"`
	StartTime time.Time           `json:"startTime"`
	EndTime   *time.Time          `json:"endTime"`
	Notes     string              `json:"notes"`
	Checklist domain.Checklist    `json:"checklist"`

	Location string `json:"location"`

	DepartureLocation string                   `json:"departureLocation"`
	ArrivalLocation   string                   `json:"arrivalLocation"`
	TravelMode        domain.TravelMode        `json:"travelMode"`
	TransitModes      []domain.TransitMode     `json:"transitModes"`
	RoutingPreference domain.RoutingPreference `json:"routingPreference"`
	EstimatedDuration *int                     `json:"estimatedDuration"`
}

// UpdateActivityRequest is the body of PATCH .../activities/{activityID}.
type UpdateActivityRequest struct {
	Title     domain.Field[string]              `json:"title"`
	Type      domain.Field[domain.ActivityType] `json:"type"`
	StartTime domain.Field[time.Time]           `json:"startTime"`
	EndTime   domain.Field[time.Time]           `json:"endTime"`
	Notes     domain.Field[string]              `json:"notes"`
	Checklist domain.Field[domain.Checklist]    `json:"checklist"`

	Location domain.Field[string] `json:"location"`

	DepartureLocation domain.Field[string]                   `json:"departureLocation"`
	ArrivalLocation   domain.Field[string]                   `json:"arrivalLocation"`
	TravelMode        domain.Field[domain.TravelMode]        `json:"travelMode"`
	TransitModes      domain.Field[[]domain.TransitMode]     `json:"transitModes"`
	RoutingPreference domain.Field[domain.RoutingPreference] `json:"routingPreference"`
	EstimatedDuration domain.Field[int]                      `json:"estimatedDuration"`
}

// ChecklistItemRequest is the body of the checklist routes. On PATCH,
// toggle flips the item and text renames it; both may be sent together.
type ChecklistItemRequest struct {
	Text   *string `json:"text"`
	Toggle bool    `json:"toggle"`
}

// ListActivities handles GET /trips/{tripID}/activities.
func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.Activities.List(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activitiesToResponse(activities))
}

// CreateActivity handles POST /trips/{tripID}/activities.
func (s *Server) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var body CreateActivityRequest
	if !decode(w, r, &body) {
		return
	}

	created, err := s.Activities.Add(writeContext(r), chi.URLParam(r, "tripID"), body.toDomain())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, activityToResponse(created))
}

// UpdateActivity handles PATCH /trips/{tripID}/activities/{activityID}.
func (s *Server) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var body UpdateActivityRequest
	if !decode(w, r, &body) {
		return
	}

	updated, err := s.Activities.Update(writeContext(r),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "activityID"), body.toPatch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityToResponse(updated))
}

// DeleteActivity handles DELETE /trips/{tripID}/activities/{activityID}.
func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	err := s.Activities.Delete(writeContext(r), chi.URLParam(r, "tripID"), chi.URLParam(r, "activityID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- checklist -------------------------------------------------------------

// AddChecklistItem handles POST .../activities/{activityID}/checklist.
func (s *Server) AddChecklistItem(w http.ResponseWriter, r *http.Request) {
	var body ChecklistItemRequest
	if !decode(w, r, &body) {
		return
	}
	var text string
	if body.Text != nil {
		text = *body.Text
	}

	updated, err := s.Activities.AddChecklistItem(writeContext(r),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "activityID"), text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, activityToResponse(updated))
}

// UpdateChecklistItem handles PATCH .../checklist/{itemID}.
func (s *Server) UpdateChecklistItem(w http.ResponseWriter, r *http.Request) {
	var body ChecklistItemRequest
	if !decode(w, r, &body) {
		return
	}
	if body.Text == nil && !body.Toggle {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "text or toggle is required")
		return
	}

	updated, err := s.Activities.UpdateChecklistItem(writeContext(r),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "activityID"), chi.URLParam(r, "itemID"),
		body.Text, body.Toggle)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityToResponse(updated))
}

// DeleteChecklistItem handles DELETE .../checklist/{itemID}.
func (s *Server) DeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
	updated, err := s.Activities.RemoveChecklistItem(writeContext(r),
		chi.URLParam(r, "tripID"), chi.URLParam(r, "activityID"), chi.URLParam(r, "itemID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activityToResponse(updated))
}

// ---- mapping helpers -------------------------------------------------------

func (b CreateActivityRequest) toDomain() domain.Activity {
	a := domain.Activity{
		Title:     b.Title,
		Type:      b.Type,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Notes:     b.Notes,
		Checklist: b.Checklist,
	}
	if b.Type == domain.ActivityTransport {
		a.Details = domain.TransportDetails{
			DepartureLocation: b.DepartureLocation,
			ArrivalLocation:   b.ArrivalLocation,
			TravelMode:        b.TravelMode,
			TransitModes:      b.TransitModes,
			RoutingPreference: b.RoutingPreference,
			EstimatedDuration: b.EstimatedDuration,
		}
	} else {
		a.Details = domain.PlaceDetails{Location: b.Location}
	}
	return a
}

func (b UpdateActivityRequest) toPatch() domain.ActivityPatch {
	return domain.ActivityPatch{
		Title:             b.Title,
		Type:              b.Type,
		StartTime:         b.StartTime,
		EndTime:           b.EndTime,
		Location:          b.Location,
		DepartureLocation: b.DepartureLocation,
		ArrivalLocation:   b.ArrivalLocation,
		TravelMode:        b.TravelMode,
		TransitModes:      b.TransitModes,
		RoutingPreference: b.RoutingPreference,
		EstimatedDuration: b.EstimatedDuration,
		Notes:             b.Notes,
		Checklist:         b.Checklist,
	}
}

func activityToResponse(a domain.Activity) ActivityResponse {
	checklist := a.Checklist
	if checklist == nil {
		checklist = domain.Checklist{}
	}
	resp := ActivityResponse{
		ID:        a.ID,
		TripID:    a.TripID,
		Title:     a.Title,
		Type:      a.Type,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Notes:     a.Notes,
		Checklist: checklist,
	}
	switch d := a.Details.(type) {
	case domain.PlaceDetails:
		resp.Location = d.Location
	case domain.TransportDetails:
		resp.DepartureLocation = d.DepartureLocation
		resp.ArrivalLocation = d.ArrivalLocation
		resp.TravelMode = d.TravelMode
		resp.TransitModes = d.TransitModes
		resp.RoutingPreference = d.RoutingPreference
		resp.EstimatedDuration = d.EstimatedDuration
	}
	return resp
}

func activitiesToResponse(activities []domain.Activity) []ActivityResponse {
	out := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		out[i] = activityToResponse(a)
	}
	return out
}
