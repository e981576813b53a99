package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
	"github.com/cychmps426211/travelplan/internal/service"
	"github.com/cychmps426211/travelplan/internal/viewmodel"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	create       func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID      func(ctx context.Context, id string) (domain.Trip, error)
	listByMember func(ctx context.Context, userID string) ([]domain.Trip, error)
	update       func(ctx context.Context, id string, p domain.TripPatch) (domain.Trip, error)
	delete       func(ctx context.Context, id string) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) ListByMember(ctx context.Context, userID string) ([]domain.Trip, error) {
	return m.listByMember(ctx, userID)
}
func (m *mockTripRepo) Update(ctx context.Context, id string, p domain.TripPatch) (domain.Trip, error) {
	return m.update(ctx, id, p)
}
func (m *mockTripRepo) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}

var _ repo.TripRepo = (*mockTripRepo)(nil)

type mockTripWatcher struct {
	watchByMember func(ctx context.Context, userID string, emit func([]domain.Trip)) error
	watchOne      func(ctx context.Context, tripID string, emit func(repo.TripSnapshot)) error
}

func (m *mockTripWatcher) WatchByMember(ctx context.Context, userID string, emit func([]domain.Trip)) error {
	return m.watchByMember(ctx, userID, emit)
}
func (m *mockTripWatcher) WatchOne(ctx context.Context, tripID string, emit func(repo.TripSnapshot)) error {
	return m.watchOne(ctx, tripID, emit)
}

var _ repo.TripWatcher = (*mockTripWatcher)(nil)

// ---- helpers ---------------------------------------------------------------

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTrip() domain.NewTrip {
	return domain.NewTrip{
		Title:       "Tokyo",
		Destination: "Japan",
		StartDate:   date(2025, 6, 1),
		EndDate:     date(2025, 6, 6),
	}
}

func echoTripRepo() *mockTripRepo {
	return &mockTripRepo{
		create: func(_ context.Context, t domain.Trip) (domain.Trip, error) {
			t.ID = "trip-1"
			return t, nil
		},
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
	}
	var zero T
	return zero
}

// ---- Create ----------------------------------------------------------------

func TestTripService_Create_StampsOwnership(t *testing.T) {
	svc := service.NewTripService(echoTripRepo(), nil, nil)

	got, err := svc.Create(context.Background(), "user-1", newTrip())

	require.NoError(t, err)
	assert.Equal(t, "trip-1", got.ID)
	assert.Equal(t, "user-1", got.CreatedBy)
	assert.Equal(t, []string{"user-1"}, got.Members)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, 6, viewmodel.DurationDays(got.StartDate, got.EndDate))
}

func TestTripService_Create_TruncatesDates(t *testing.T) {
	svc := service.NewTripService(echoTripRepo(), nil, nil)

	n := newTrip()
	n.StartDate = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

	got, err := svc.Create(context.Background(), "user-1", n)

	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 1), got.StartDate)
}

func TestTripService_Create_StartAfterEndIsAllowed(t *testing.T) {
	svc := service.NewTripService(echoTripRepo(), nil, nil)

	n := newTrip()
	n.StartDate, n.EndDate = n.EndDate, n.StartDate

	_, err := svc.Create(context.Background(), "user-1", n)

	assert.NoError(t, err)
}

func TestTripService_Create_MissingDates(t *testing.T) {
	svc := service.NewTripService(echoTripRepo(), nil, nil)

	n := newTrip()
	n.EndDate = time.Time{}

	_, err := svc.Create(context.Background(), "user-1", n)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Create_UnknownCoverColor(t *testing.T) {
	svc := service.NewTripService(echoTripRepo(), nil, nil)

	n := newTrip()
	n.CoverColor = "mauve"

	_, err := svc.Create(context.Background(), "user-1", n)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Create_RepoErrorIsWriteError(t *testing.T) {
	repoErr := errors.New("permission denied")
	svc := service.NewTripService(&mockTripRepo{
		create: func(context.Context, domain.Trip) (domain.Trip, error) { return domain.Trip{}, repoErr },
	}, nil, nil)

	_, err := svc.Create(context.Background(), "user-1", newTrip())

	assert.ErrorIs(t, err, domain.ErrWrite)
	assert.ErrorIs(t, err, repoErr)
}

// ---- List / Get ------------------------------------------------------------

func TestTripService_List_SortedByStart(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		listByMember: func(_ context.Context, userID string) ([]domain.Trip, error) {
			assert.Equal(t, "user-1", userID)
			return []domain.Trip{
				{ID: "late", StartDate: date(2025, 9, 1)},
				{ID: "early", StartDate: date(2025, 3, 1)},
			}, nil
		},
	}, nil, nil)

	got, err := svc.List(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestTripService_List_Empty(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		listByMember: func(context.Context, string) ([]domain.Trip, error) { return nil, nil },
	}, nil, nil)

	got, err := svc.List(context.Background(), "user-1")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTripService_GetByID_NotFound(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		getByID: func(context.Context, string) (domain.Trip, error) { return domain.Trip{}, domain.ErrNotFound },
	}, nil, nil)

	_, err := svc.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Update ----------------------------------------------------------------

func TestTripService_Update_PassesPatchThrough(t *testing.T) {
	var got domain.TripPatch
	svc := service.NewTripService(&mockTripRepo{
		update: func(_ context.Context, id string, p domain.TripPatch) (domain.Trip, error) {
			assert.Equal(t, "trip-1", id)
			got = p
			return domain.Trip{ID: id}, nil
		},
	}, nil, nil)

	_, err := svc.Update(context.Background(), "trip-1", domain.TripPatch{
		Title:          domain.Set("Osaka"),
		OutboundFlight: domain.Clear[domain.FlightInfo](),
	})

	require.NoError(t, err)
	assert.True(t, got.Title.IsSet())
	assert.True(t, got.OutboundFlight.IsClear())
	assert.True(t, got.ReturnFlight.IsUnchanged())
}

func TestTripService_Update_CannotClearTitle(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{}, nil, nil)

	_, err := svc.Update(context.Background(), "trip-1", domain.TripPatch{Title: domain.Clear[string]()})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Update_EmptyPatchReads(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		getByID: func(_ context.Context, id string) (domain.Trip, error) { return domain.Trip{ID: id}, nil },
	}, nil, nil)

	got, err := svc.Update(context.Background(), "trip-1", domain.TripPatch{})

	require.NoError(t, err)
	assert.Equal(t, "trip-1", got.ID)
}

func TestTripService_Update_NotFoundIsNotWriteError(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		update: func(context.Context, string, domain.TripPatch) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}, nil, nil)

	_, err := svc.Update(context.Background(), "trip-1", domain.TripPatch{Title: domain.Set("x")})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrWrite)
}

// ---- Delete ----------------------------------------------------------------

func TestTripService_Delete(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		delete: func(context.Context, string) error { return nil },
	}, nil, nil)

	assert.NoError(t, svc.Delete(context.Background(), "trip-1"))
}

func TestTripService_Delete_Failure(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{
		delete: func(context.Context, string) error { return errors.New("unavailable") },
	}, nil, nil)

	assert.ErrorIs(t, svc.Delete(context.Background(), "trip-1"), domain.ErrWrite)
}

// ---- Subscribe -------------------------------------------------------------

func TestTripService_Subscribe_SortsEachEmission(t *testing.T) {
	w := &mockTripWatcher{
		watchByMember: func(ctx context.Context, userID string, emit func([]domain.Trip)) error {
			assert.Equal(t, "user-1", userID)
			emit([]domain.Trip{
				{ID: "b", StartDate: date(2025, 8, 1)},
				{ID: "a", StartDate: date(2025, 7, 1)},
			})
			<-ctx.Done()
			return nil
		},
	}
	svc := service.NewTripService(nil, w, nil)

	ch := make(chan []domain.Trip, 1)
	sub := svc.Subscribe(context.Background(), "user-1", func(ts []domain.Trip) { ch <- ts })
	defer sub.Stop()

	got := recv(t, ch)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestTripService_SubscribeTrip_ReportsDeletion(t *testing.T) {
	w := &mockTripWatcher{
		watchOne: func(ctx context.Context, tripID string, emit func(repo.TripSnapshot)) error {
			emit(repo.TripSnapshot{Trip: domain.Trip{ID: tripID}, Exists: true})
			emit(repo.TripSnapshot{Exists: false})
			<-ctx.Done()
			return nil
		},
	}
	svc := service.NewTripService(nil, w, nil)

	ch := make(chan repo.TripSnapshot, 2)
	sub := svc.SubscribeTrip(context.Background(), "trip-1", func(s repo.TripSnapshot) { ch <- s })
	defer sub.Stop()

	first := recv(t, ch)
	assert.True(t, first.Exists)
	assert.Equal(t, "trip-1", first.Trip.ID)
	assert.False(t, recv(t, ch).Exists)
}

func TestTripService_Subscribe_StopImmediately(t *testing.T) {
	release := make(chan struct{})
	w := &mockTripWatcher{
		watchByMember: func(ctx context.Context, _ string, emit func([]domain.Trip)) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			emit([]domain.Trip{{ID: "late"}})
			return nil
		},
	}
	svc := service.NewTripService(nil, w, nil)

	called := make(chan struct{}, 1)
	sub := svc.Subscribe(context.Background(), "user-1", func([]domain.Trip) { called <- struct{}{} })
	sub.Stop()
	close(release)

	select {
	case <-called:
		t.Fatal("callback ran after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
