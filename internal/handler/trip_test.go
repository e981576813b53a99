package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cychmps426211/travelplan/internal/covers"
	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/handler"
)

func tripsHandler(svc handler.TripServicer) http.Handler {
	return newHTTPHandler(handler.Deps{Trips: svc})
}

// ---- POST /trips -----------------------------------------------------------

func TestCreateTrip_201(t *testing.T) {
	fixture := tripFixture()
	var gotUser string
	var got domain.NewTrip
	svc := &mockTripServicer{
		create: func(_ context.Context, userID string, n domain.NewTrip) (domain.Trip, error) {
			gotUser, got = userID, n
			return fixture, nil
		},
	}

	body := jsonBody(t, map[string]any{
		"title":       "Tokyo Spring",
		"destination": "Tokyo, Japan",
		"startDate":   "2025-03-20",
		"endDate":     "2025-03-25",
		"coverColor":  "blue",
	})

	req := httptest.NewRequest(http.MethodPost, "/trips", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, testUserID, gotUser)
	assert.Equal(t, date(2025, 3, 20), got.StartDate)
	assert.Equal(t, date(2025, 3, 25), got.EndDate)

	var resp handler.TripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.ID)
	assert.Equal(t, []string{testUserID}, resp.Members)
	assert.Equal(t, "2025-03-20", resp.StartDate.String())
}

func TestCreateTrip_422_ValidationError(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, _ string, _ domain.NewTrip) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: title is required", domain.ErrValidation)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", jsonBody(t, map[string]any{"title": ""}))
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail := decodeError(t, rec.Body)
	assert.Equal(t, "validation_error", detail.Code)
	assert.Equal(t, "title is required", detail.Message)
}

func TestCreateTrip_422_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"startDate":"not a date"}`))
	rec := httptest.NewRecorder()

	tripsHandler(&mockTripServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTrip_502_WriteError(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, _ string, _ domain.NewTrip) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: %w", domain.ErrWrite, context.DeadlineExceeded)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", jsonBody(t, map[string]any{"title": "x"}))
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "write_failed", decodeError(t, rec.Body).Code)
}

func TestCreateTrip_writeOutlivesRequest(t *testing.T) {
	var writeCtx context.Context
	svc := &mockTripServicer{
		create: func(ctx context.Context, _ string, _ domain.NewTrip) (domain.Trip, error) {
			writeCtx = ctx
			return tripFixture(), nil
		},
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/trips", jsonBody(t, map[string]any{"title": "x"})).WithContext(reqCtx)
	tripsHandler(svc).ServeHTTP(httptest.NewRecorder(), req)
	cancel()

	require.NotNil(t, writeCtx)
	assert.NoError(t, writeCtx.Err())
}

// ---- GET /trips ------------------------------------------------------------

func TestListTrips_200(t *testing.T) {
	svc := &mockTripServicer{
		list: func(_ context.Context, userID string) ([]domain.Trip, error) {
			require.Equal(t, testUserID, userID)
			return []domain.Trip{tripFixture(), tripFixture()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []handler.TripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 2)
}

func TestListTrips_200_Empty(t *testing.T) {
	svc := &mockTripServicer{
		list: func(_ context.Context, _ string) ([]domain.Trip, error) { return []domain.Trip{}, nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	// Must be a JSON array, not null.
	assert.JSONEq(t, "[]", rec.Body.String())
}

// ---- GET /trips/{id} -------------------------------------------------------

func TestGetTrip_200(t *testing.T) {
	fixture := tripFixture()
	svc := &mockTripServicer{
		getByID: func(_ context.Context, id string) (domain.Trip, error) {
			require.Equal(t, fixture.ID, id)
			return fixture, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/"+fixture.ID, nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handler.TripResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.Title, resp.Title)
	assert.Equal(t, "2025-03-25", resp.EndDate.String())
}

func TestGetTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		getByID: func(_ context.Context, _ string) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", domain.ErrNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/missing", nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec.Body).Code)
}

// ---- PATCH /trips/{id} -----------------------------------------------------

func TestUpdateTrip_omitVersusClear(t *testing.T) {
	var got domain.TripPatch
	svc := &mockTripServicer{
		update: func(_ context.Context, id string, p domain.TripPatch) (domain.Trip, error) {
			require.Equal(t, "trip-1", id)
			got = p
			return tripFixture(), nil
		},
	}

	body := strings.NewReader(`{"title":"Osaka","returnFlight":null,"startDate":"2025-04-01"}`)
	req := httptest.NewRequest(http.MethodPatch, "/trips/trip-1", body)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	title, ok := got.Title.Value()
	assert.True(t, ok)
	assert.Equal(t, "Osaka", title)
	start, ok := got.StartDate.Value()
	assert.True(t, ok)
	assert.Equal(t, date(2025, 4, 1), start)
	assert.True(t, got.ReturnFlight.IsClear())
	assert.True(t, got.OutboundFlight.IsUnchanged())
	assert.True(t, got.Destination.IsUnchanged())
	assert.True(t, got.EndDate.IsUnchanged())
}

func TestUpdateTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		update: func(_ context.Context, _ string, _ domain.TripPatch) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("%w", domain.ErrNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/trips/missing", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- DELETE /trips/{id} ----------------------------------------------------

func TestDeleteTrip_204(t *testing.T) {
	var deleted string
	svc := &mockTripServicer{
		delete: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/trip-1", nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "trip-1", deleted)
}

func TestDeleteTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ string) error { return domain.ErrNotFound },
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/missing", nil)
	rec := httptest.NewRecorder()

	tripsHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- POST /trips/{id}/cover-upload -----------------------------------------

func TestCreateCoverUpload_201(t *testing.T) {
	trips := &mockTripServicer{
		getByID: func(_ context.Context, _ string) (domain.Trip, error) { return tripFixture(), nil },
	}
	presigner := &mockPresigner{
		presign: func(_ context.Context, tripID, contentType string) (covers.Upload, error) {
			require.Equal(t, "trip-1", tripID)
			require.Equal(t, "image/png", contentType)
			return covers.Upload{Key: "trips/trip-1/cover/x.png", UploadURL: "https://s3/put", PublicURL: "https://cdn/x.png"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips/trip-1/cover-upload", strings.NewReader(`{"contentType":"image/png"}`))
	rec := httptest.NewRecorder()

	newHTTPHandler(handler.Deps{Trips: trips, Covers: presigner}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp covers.Upload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://cdn/x.png", resp.PublicURL)
}

func TestCreateCoverUpload_501_WhenNotConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/trips/trip-1/cover-upload", strings.NewReader(`{"contentType":"image/png"}`))
	rec := httptest.NewRecorder()

	tripsHandler(&mockTripServicer{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "not_configured", decodeError(t, rec.Body).Code)
}

// ---- GET /trips/{id}/itinerary ---------------------------------------------

type stubEmbedder struct{}

func (stubEmbedder) RouteURL(o, d string, m domain.TravelMode) string {
	return "route:" + o + ">" + d + ":" + string(m)
}
func (stubEmbedder) PlaceURL(loc string) string { return "place:" + loc }
func (e stubEmbedder) ActivityURL(a domain.Activity) string {
	if t, ok := a.Transport(); ok {
		return e.RouteURL(t.DepartureLocation, t.ArrivalLocation, t.TravelMode)
	}
	p, _ := a.Place()
	return e.PlaceURL(p.Location)
}

func TestGetItinerary_200(t *testing.T) {
	trips := &mockTripServicer{
		getByID: func(_ context.Context, _ string) (domain.Trip, error) { return tripFixture(), nil },
	}
	activities := &mockActivityServicer{
		list: func(_ context.Context, tripID string) ([]domain.Activity, error) {
			require.Equal(t, "trip-1", tripID)
			return []domain.Activity{placeFixture(), transportFixture()}, nil
		},
	}
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	srv := handler.NewServer(handler.Deps{Trips: trips, Activities: activities, Maps: stubEmbedder{}, Location: tokyo})
	req := httptest.NewRequest(http.MethodGet, "/trips/trip-1/itinerary", nil)
	rec := httptest.NewRecorder()

	srv.Routes(asUser).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Trip         handler.TripResponse `json:"trip"`
		DurationDays int                  `json:"durationDays"`
		CoverColor   string               `json:"coverColor"`
		Days         []struct {
			Index      int    `json:"index"`
			Date       string `json:"date"`
			Activities []struct {
				Activity  handler.ActivityResponse `json:"activity"`
				Checklist string                   `json:"checklist"`
				Route     string                   `json:"route"`
				Mode      string                   `json:"mode"`
				Duration  string                   `json:"duration"`
				MapURL    string                   `json:"mapUrl"`
			} `json:"activities"`
		} `json:"days"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, 6, resp.DurationDays)
	assert.Equal(t, "blue", resp.CoverColor)
	require.Len(t, resp.Days, 6)
	assert.Equal(t, "2025-03-21", resp.Days[1].Date)
	assert.Empty(t, resp.Days[0].Activities)

	day2 := resp.Days[1].Activities
	require.Len(t, day2, 2)
	assert.Equal(t, "Senso-ji", day2[0].Activity.Title)
	assert.Equal(t, "0/1", day2[0].Checklist)
	assert.Equal(t, "place:Asakusa", day2[0].MapURL)
	assert.Equal(t, "Asakusa → Shibuya", day2[1].Route)
	assert.Equal(t, "route:Asakusa>Shibuya:transit", day2[1].MapURL)
}
