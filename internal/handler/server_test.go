package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cychmps426211/travelplan/internal/covers"
	"github.com/cychmps426211/travelplan/internal/directions"
	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/handler"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/live"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// ---- mock TripServicer -----------------------------------------------------

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	subscribe     func(ctx context.Context, userID string, fn func([]domain.Trip)) *live.Subscription
	subscribeTrip func(ctx context.Context, tripID string, fn func(repo.TripSnapshot)) *live.Subscription
	list          func(ctx context.Context, userID string) ([]domain.Trip, error)
	getByID       func(ctx context.Context, id string) (domain.Trip, error)
	create        func(ctx context.Context, userID string, n domain.NewTrip) (domain.Trip, error)
	update        func(ctx context.Context, id string, patch domain.TripPatch) (domain.Trip, error)
	delete        func(ctx context.Context, id string) error
}

func (m *mockTripServicer) Subscribe(ctx context.Context, userID string, fn func([]domain.Trip), _ ...live.Option) *live.Subscription {
	return m.subscribe(ctx, userID, fn)
}
func (m *mockTripServicer) SubscribeTrip(ctx context.Context, tripID string, fn func(repo.TripSnapshot), _ ...live.Option) *live.Subscription {
	return m.subscribeTrip(ctx, tripID, fn)
}
func (m *mockTripServicer) List(ctx context.Context, userID string) ([]domain.Trip, error) {
	return m.list(ctx, userID)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripServicer) Create(ctx context.Context, userID string, n domain.NewTrip) (domain.Trip, error) {
	return m.create(ctx, userID, n)
}
func (m *mockTripServicer) Update(ctx context.Context, id string, p domain.TripPatch) (domain.Trip, error) {
	return m.update(ctx, id, p)
}
func (m *mockTripServicer) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripServicer must satisfy handler.TripServicer.
var _ handler.TripServicer = (*mockTripServicer)(nil)

// ---- mock ActivityServicer -------------------------------------------------

type mockActivityServicer struct {
	subscribe func(ctx context.Context, tripID string, fn func([]domain.Activity)) *live.Subscription
	list      func(ctx context.Context, tripID string) ([]domain.Activity, error)
	add       func(ctx context.Context, tripID string, a domain.Activity) (domain.Activity, error)
	update    func(ctx context.Context, tripID, activityID string, p domain.ActivityPatch) (domain.Activity, error)
	delete    func(ctx context.Context, tripID, activityID string) error

	addItem    func(ctx context.Context, tripID, activityID, text string) (domain.Activity, error)
	updateItem func(ctx context.Context, tripID, activityID, itemID string, text *string, toggle bool) (domain.Activity, error)
	removeItem func(ctx context.Context, tripID, activityID, itemID string) (domain.Activity, error)
}

func (m *mockActivityServicer) Subscribe(ctx context.Context, tripID string, fn func([]domain.Activity), _ ...live.Option) *live.Subscription {
	return m.subscribe(ctx, tripID, fn)
}
func (m *mockActivityServicer) List(ctx context.Context, tripID string) ([]domain.Activity, error) {
	return m.list(ctx, tripID)
}
func (m *mockActivityServicer) Add(ctx context.Context, tripID string, a domain.Activity) (domain.Activity, error) {
	return m.add(ctx, tripID, a)
}
func (m *mockActivityServicer) Update(ctx context.Context, tripID, activityID string, p domain.ActivityPatch) (domain.Activity, error) {
	return m.update(ctx, tripID, activityID, p)
}
func (m *mockActivityServicer) Delete(ctx context.Context, tripID, activityID string) error {
	return m.delete(ctx, tripID, activityID)
}
func (m *mockActivityServicer) AddChecklistItem(ctx context.Context, tripID, activityID, text string) (domain.Activity, error) {
	return m.addItem(ctx, tripID, activityID, text)
}
func (m *mockActivityServicer) UpdateChecklistItem(ctx context.Context, tripID, activityID, itemID string, text *string, toggle bool) (domain.Activity, error) {
	return m.updateItem(ctx, tripID, activityID, itemID, text, toggle)
}
func (m *mockActivityServicer) RemoveChecklistItem(ctx context.Context, tripID, activityID, itemID string) (domain.Activity, error) {
	return m.removeItem(ctx, tripID, activityID, itemID)
}

var _ handler.ActivityServicer = (*mockActivityServicer)(nil)

// ---- mock SessionGate ------------------------------------------------------

type mockGate struct {
	authenticate   func(ctx context.Context, id domain.Identity) (identity.SignedIn, error)
	currentSession func(ctx context.Context, token string) (identity.SessionState, error)
	endSession     func(ctx context.Context, token string) error
}

func (m *mockGate) Authenticate(ctx context.Context, id domain.Identity) (identity.SignedIn, error) {
	return m.authenticate(ctx, id)
}
func (m *mockGate) CurrentSession(ctx context.Context, token string) (identity.SessionState, error) {
	return m.currentSession(ctx, token)
}
func (m *mockGate) EndSession(ctx context.Context, token string) error {
	return m.endSession(ctx, token)
}

var _ handler.SessionGate = (*mockGate)(nil)

// ---- small collaborators ---------------------------------------------------

type mockResolver struct {
	resolve func(ctx context.Context, req directions.Request) (directions.Result, error)
}

func (m *mockResolver) ResolveTravelDuration(ctx context.Context, req directions.Request) (directions.Result, error) {
	return m.resolve(ctx, req)
}

var _ directions.Resolver = (*mockResolver)(nil)

type mockPresigner struct {
	presign func(ctx context.Context, tripID, contentType string) (covers.Upload, error)
}

func (m *mockPresigner) PresignCover(ctx context.Context, tripID, contentType string) (covers.Upload, error) {
	return m.presign(ctx, tripID, contentType)
}

var _ handler.CoverPresigner = (*mockPresigner)(nil)

// ---- helpers ---------------------------------------------------------------

const testUserID = "user-1"

// asUser stands in for the session middleware: every request is signed in
// as testUserID.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := identity.WithPrincipal(r.Context(), identity.Principal{UserID: testUserID, Email: "alice@example.com"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newHTTPHandler wires a Server with the given deps into the router.
// This mirrors how main.go wires it in production, minus the session store.
func newHTTPHandler(d handler.Deps) http.Handler {
	return handler.NewServer(d).Routes(asUser)
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body *bytes.Buffer) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:          "trip-1",
		Title:       "Tokyo Spring",
		Destination: "Tokyo, Japan",
		StartDate:   date(2025, 3, 20),
		EndDate:     date(2025, 3, 25),
		CreatedBy:   testUserID,
		Members:     []string{testUserID},
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		CoverColor:  "blue",
	}
}

func placeFixture() domain.Activity {
	return domain.Activity{
		ID:        "act-1",
		TripID:    "trip-1",
		Title:     "Senso-ji",
		Type:      domain.ActivitySightseeing,
		StartTime: time.Date(2025, 3, 21, 1, 0, 0, 0, time.UTC),
		Details:   domain.PlaceDetails{Location: "Asakusa"},
		Checklist: domain.Checklist{{ID: "c1", Text: "Camera"}},
	}
}

func transportFixture() domain.Activity {
	mins := 35
	return domain.Activity{
		ID:        "act-2",
		TripID:    "trip-1",
		Title:     "To Shibuya",
		Type:      domain.ActivityTransport,
		StartTime: time.Date(2025, 3, 21, 4, 0, 0, 0, time.UTC),
		Details: domain.TransportDetails{
			DepartureLocation: "Asakusa",
			ArrivalLocation:   "Shibuya",
			TravelMode:        domain.TravelTransit,
			EstimatedDuration: &mins,
		},
	}
}
