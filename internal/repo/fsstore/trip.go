package fsstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// tripDoc is the stored shape of a trip document.
type tripDoc struct {
	Title          string             `firestore:"title"`
	Destination    string             `firestore:"destination"`
	StartDate      time.Time          `firestore:"startDate"`
	EndDate        time.Time          `firestore:"endDate"`
	CreatedBy      string             `firestore:"createdBy"`
	Members        []string           `firestore:"members"`
	CreatedAt      time.Time          `firestore:"createdAt"`
	OutboundFlight *domain.FlightInfo `firestore:"outboundFlight,omitempty"`
	ReturnFlight   *domain.FlightInfo `firestore:"returnFlight,omitempty"`
	CoverColor     string             `firestore:"coverColor,omitempty"`
	CoverImageURL  string             `firestore:"coverImageUrl,omitempty"`
}

func toTripDoc(t domain.Trip) tripDoc {
	return tripDoc{
		Title:          t.Title,
		Destination:    t.Destination,
		StartDate:      domain.DateOnly(t.StartDate),
		EndDate:        domain.DateOnly(t.EndDate),
		CreatedBy:      t.CreatedBy,
		Members:        t.Members,
		CreatedAt:      t.CreatedAt,
		OutboundFlight: t.OutboundFlight,
		ReturnFlight:   t.ReturnFlight,
		CoverColor:     t.CoverColor,
		CoverImageURL:  t.CoverImageURL,
	}
}

func (d tripDoc) trip(id string) domain.Trip {
	return domain.Trip{
		ID:             id,
		Title:          d.Title,
		Destination:    d.Destination,
		StartDate:      domain.DateOnly(d.StartDate.UTC()),
		EndDate:        domain.DateOnly(d.EndDate.UTC()),
		CreatedBy:      d.CreatedBy,
		Members:        d.Members,
		CreatedAt:      d.CreatedAt,
		OutboundFlight: d.OutboundFlight,
		ReturnFlight:   d.ReturnFlight,
		CoverColor:     d.CoverColor,
		CoverImageURL:  d.CoverImageURL,
	}
}

// tripUpdates converts a patch into Firestore field updates.
func tripUpdates(p domain.TripPatch) updates {
	var u updates
	dateOnly := func(t time.Time) any { return domain.DateOnly(t) }
	addUpdate(&u, "title", p.Title, nil)
	addUpdate(&u, "destination", p.Destination, nil)
	addUpdate(&u, "startDate", p.StartDate, dateOnly)
	addUpdate(&u, "endDate", p.EndDate, dateOnly)
	addUpdate(&u, "outboundFlight", p.OutboundFlight, nil)
	addUpdate(&u, "returnFlight", p.ReturnFlight, nil)
	addUpdate(&u, "coverColor", p.CoverColor, nil)
	addUpdate(&u, "coverImageUrl", p.CoverImageURL, nil)
	return u
}

type tripStore struct {
	client *firestore.Client
}

var (
	_ repo.TripRepo    = (*tripStore)(nil)
	_ repo.TripWatcher = (*tripStore)(nil)
)

func (s *tripStore) col() *firestore.CollectionRef {
	return s.client.Collection(tripsCollection)
}

func (s *tripStore) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	ref := s.col().NewDoc()
	doc := toTripDoc(trip)
	if _, err := ref.Create(ctx, doc); err != nil {
		return domain.Trip{}, wrap("TripRepo.Create", err)
	}
	return doc.trip(ref.ID), nil
}

func (s *tripStore) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	ref, err := docRef(s.col(), id)
	if err != nil {
		return domain.Trip{}, wrap("TripRepo.GetByID", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Trip{}, wrap("TripRepo.GetByID", err)
	}
	trip, err := decodeTrip(snap)
	if err != nil {
		return domain.Trip{}, wrap("TripRepo.GetByID", err)
	}
	return trip, nil
}

func (s *tripStore) ListByMember(ctx context.Context, userID string) ([]domain.Trip, error) {
	trips, err := decodeTrips(s.byMember(userID).Documents(ctx))
	if err != nil {
		return nil, wrap("TripRepo.ListByMember", err)
	}
	return trips, nil
}

func (s *tripStore) Update(ctx context.Context, id string, patch domain.TripPatch) (domain.Trip, error) {
	ref, err := docRef(s.col(), id)
	if err != nil {
		return domain.Trip{}, wrap("TripRepo.Update", err)
	}
	u := tripUpdates(patch)
	if len(u) == 0 {
		return s.GetByID(ctx, id)
	}
	if _, err := ref.Update(ctx, u); err != nil {
		return domain.Trip{}, wrap("TripRepo.Update", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the trip document only. Firestore leaves the activities
// subcollection in place, which matches the Postgres behaviour.
func (s *tripStore) Delete(ctx context.Context, id string) error {
	ref, err := docRef(s.col(), id)
	if err != nil {
		return wrap("TripRepo.Delete", err)
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return wrap("TripRepo.Delete", err)
	}
	return nil
}

func (s *tripStore) byMember(userID string) firestore.Query {
	return s.col().Where("members", "array-contains", userID)
}

func (s *tripStore) WatchByMember(ctx context.Context, userID string, emit func([]domain.Trip)) error {
	it := s.byMember(userID).Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			if cancelled(ctx, err) {
				return nil
			}
			return wrap("TripWatcher.WatchByMember", err)
		}
		trips, err := decodeTrips(snap.Documents)
		if err != nil {
			return wrap("TripWatcher.WatchByMember", err)
		}
		emit(trips)
	}
}

func (s *tripStore) WatchOne(ctx context.Context, tripID string, emit func(repo.TripSnapshot)) error {
	ref, err := docRef(s.col(), tripID)
	if err != nil {
		// No document can ever have this id.
		emit(repo.TripSnapshot{})
		<-ctx.Done()
		return nil
	}
	it := ref.Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			if cancelled(ctx, err) {
				return nil
			}
			return wrap("TripWatcher.WatchOne", err)
		}
		if !snap.Exists() {
			emit(repo.TripSnapshot{})
			continue
		}
		trip, err := decodeTrip(snap)
		if err != nil {
			return wrap("TripWatcher.WatchOne", err)
		}
		emit(repo.TripSnapshot{Trip: trip, Exists: true})
	}
}

func decodeTrip(snap *firestore.DocumentSnapshot) (domain.Trip, error) {
	var d tripDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Trip{}, err
	}
	return d.trip(snap.Ref.ID), nil
}

func decodeTrips(it *firestore.DocumentIterator) ([]domain.Trip, error) {
	defer it.Stop()
	trips := []domain.Trip{}
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return trips, nil
		}
		if err != nil {
			return nil, err
		}
		trip, err := decodeTrip(snap)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
}
