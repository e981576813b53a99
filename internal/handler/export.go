package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_title", "destination", "trip_start_date", "trip_end_date",
	"day", "activity_title", "activity_type", "start_time", "end_time",
	"where", "notes", "checklist",
}

// ExportRowResponse is one row of the JSON export.
type ExportRowResponse struct {
	TripID        string              `json:"tripId"`
	TripTitle     string              `json:"tripTitle"`
	Destination   string              `json:"destination"`
	TripStartDate string              `json:"tripStartDate"`
	TripEndDate   string              `json:"tripEndDate"`
	Day           string              `json:"day,omitempty"`
	ActivityTitle string              `json:"activityTitle,omitempty"`
	ActivityType  domain.ActivityType `json:"activityType,omitempty"`
	StartTime     *time.Time          `json:"startTime,omitempty"`
	EndTime       *time.Time          `json:"endTime,omitempty"`
	Where         string              `json:"where,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Checklist     string              `json:"checklist,omitempty"`
}

// GetExport handles GET /export.
// It returns one row per activity across every trip of the caller.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Export.Export(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		out := make([]ExportRowResponse, len(rows))
		for i, row := range rows {
			out[i] = ExportRowResponse(row)
		}
		writeJSON(w, http.StatusOK, out)
	case "csv":
		body := buildCSV(rows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="itinerary.csv"`)
		w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = body.WriteTo(w)
	default:
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "format must be json or csv")
	}
}

// buildCSV encodes rows as CSV with a header line.
func buildCSV(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(rowToCSVRecord(r))
	}
	w.Flush()
	return &buf
}

// rowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Nil time pointers are encoded as empty strings.
func rowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TripID,
		r.TripTitle,
		r.Destination,
		r.TripStartDate,
		r.TripEndDate,
		r.Day,
		r.ActivityTitle,
		string(r.ActivityType),
		formatOptionalTime(r.StartTime),
		formatOptionalTime(r.EndTime),
		r.Where,
		r.Notes,
		r.Checklist,
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
