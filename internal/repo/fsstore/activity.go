package fsstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// activityDoc is the stored shape of an activity. The variant fields are
// flat; only the ones belonging to the activity's type are written.
type activityDoc struct {
	TripID    string     `firestore:"tripId"`
	Title     string     `firestore:"title"`
	Type      string     `firestore:"type"`
	StartTime time.Time  `firestore:"startTime"`
	EndTime   *time.Time `firestore:"endTime,omitempty"`

	Location          string   `firestore:"location,omitempty"`
	DepartureLocation string   `firestore:"departureLocation,omitempty"`
	ArrivalLocation   string   `firestore:"arrivalLocation,omitempty"`
	TravelMode        string   `firestore:"travelMode,omitempty"`
	TransitModes      []string `firestore:"transitModes,omitempty"`
	RoutingPreference string   `firestore:"routingPreference,omitempty"`
	EstimatedDuration *int64   `firestore:"estimatedDuration,omitempty"`

	Notes     string                 `firestore:"notes,omitempty"`
	Checklist []domain.ChecklistItem `firestore:"checklist,omitempty"`
	CreatedAt time.Time              `firestore:"createdAt"`
}

func toActivityDoc(a domain.Activity, now time.Time) activityDoc {
	d := activityDoc{
		TripID:    a.TripID,
		Title:     a.Title,
		Type:      string(a.Type),
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Notes:     a.Notes,
		Checklist: a.Checklist,
		CreatedAt: now,
	}
	switch v := a.Details.(type) {
	case domain.PlaceDetails:
		d.Location = v.Location
	case domain.TransportDetails:
		d.DepartureLocation = v.DepartureLocation
		d.ArrivalLocation = v.ArrivalLocation
		d.TravelMode = string(v.TravelMode)
		d.TransitModes = transitStrings(v.TransitModes)
		d.RoutingPreference = string(v.RoutingPreference)
		if v.EstimatedDuration != nil {
			n := int64(*v.EstimatedDuration)
			d.EstimatedDuration = &n
		}
	}
	return d
}

func (d activityDoc) activity(id string) domain.Activity {
	a := domain.Activity{
		ID:        id,
		TripID:    d.TripID,
		Title:     d.Title,
		Type:      domain.ActivityType(d.Type),
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Notes:     d.Notes,
		Checklist: d.Checklist,
	}
	if a.Type != domain.ActivityTransport {
		a.Details = domain.PlaceDetails{Location: d.Location}
		return a
	}
	t := domain.TransportDetails{
		DepartureLocation: d.DepartureLocation,
		ArrivalLocation:   d.ArrivalLocation,
		TravelMode:        domain.TravelMode(d.TravelMode),
		RoutingPreference: domain.RoutingPreference(d.RoutingPreference),
	}
	for _, m := range d.TransitModes {
		t.TransitModes = append(t.TransitModes, domain.TransitMode(m))
	}
	if d.EstimatedDuration != nil {
		n := int(*d.EstimatedDuration)
		t.EstimatedDuration = &n
	}
	a.Details = t
	return a
}

// activityUpdates converts a patch into Firestore field updates.
func activityUpdates(p domain.ActivityPatch) updates {
	p = p.WithVariantCleared()
	var u updates
	addUpdate(&u, "title", p.Title, nil)
	addUpdate(&u, "type", p.Type, func(t domain.ActivityType) any { return string(t) })
	addUpdate(&u, "startTime", p.StartTime, nil)
	addUpdate(&u, "endTime", p.EndTime, nil)
	addUpdate(&u, "location", p.Location, nil)
	addUpdate(&u, "departureLocation", p.DepartureLocation, nil)
	addUpdate(&u, "arrivalLocation", p.ArrivalLocation, nil)
	addUpdate(&u, "travelMode", p.TravelMode, func(m domain.TravelMode) any { return string(m) })
	addUpdate(&u, "transitModes", p.TransitModes, func(m []domain.TransitMode) any { return transitStrings(m) })
	addUpdate(&u, "routingPreference", p.RoutingPreference, func(r domain.RoutingPreference) any { return string(r) })
	addUpdate(&u, "estimatedDuration", p.EstimatedDuration, func(n int) any { return int64(n) })
	addUpdate(&u, "notes", p.Notes, nil)
	addUpdate(&u, "checklist", p.Checklist, func(c domain.Checklist) any {
		if len(c) == 0 {
			return firestore.Delete
		}
		return []domain.ChecklistItem(c)
	})
	return u
}

func transitStrings(modes []domain.TransitMode) []string {
	if len(modes) == 0 {
		return nil
	}
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

type activityStore struct {
	client *firestore.Client
	now    func() time.Time
}

var (
	_ repo.ActivityRepo    = (*activityStore)(nil)
	_ repo.ActivityWatcher = (*activityStore)(nil)
)

// col returns the activities subcollection of a trip.
func (s *activityStore) col(tripID string) (*firestore.CollectionRef, error) {
	trip, err := docRef(s.client.Collection(tripsCollection), tripID)
	if err != nil {
		return nil, err
	}
	return trip.Collection(activitiesCollection), nil
}

func (s *activityStore) ref(tripID, activityID string) (*firestore.DocumentRef, error) {
	col, err := s.col(tripID)
	if err != nil {
		return nil, err
	}
	return docRef(col, activityID)
}

func (s *activityStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *activityStore) Create(ctx context.Context, a domain.Activity) (domain.Activity, error) {
	col, err := s.col(a.TripID)
	if err != nil {
		return domain.Activity{}, wrap("ActivityRepo.Create", err)
	}
	ref := col.NewDoc()
	doc := toActivityDoc(a.Normalize(), s.clock())
	if _, err := ref.Create(ctx, doc); err != nil {
		return domain.Activity{}, wrap("ActivityRepo.Create", err)
	}
	return doc.activity(ref.ID), nil
}

func (s *activityStore) GetByID(ctx context.Context, tripID, activityID string) (domain.Activity, error) {
	ref, err := s.ref(tripID, activityID)
	if err != nil {
		return domain.Activity{}, wrap("ActivityRepo.GetByID", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return domain.Activity{}, wrap("ActivityRepo.GetByID", err)
	}
	a, err := decodeActivity(snap)
	if err != nil {
		return domain.Activity{}, wrap("ActivityRepo.GetByID", err)
	}
	return a, nil
}

func (s *activityStore) ListByTrip(ctx context.Context, tripID string) ([]domain.Activity, error) {
	q, err := s.byTrip(tripID)
	if err != nil {
		return []domain.Activity{}, nil
	}
	activities, err := decodeActivities(q.Documents(ctx))
	if err != nil {
		return nil, wrap("ActivityRepo.ListByTrip", err)
	}
	return activities, nil
}

func (s *activityStore) Update(ctx context.Context, tripID, activityID string, p domain.ActivityPatch) (domain.Activity, error) {
	ref, err := s.ref(tripID, activityID)
	if err != nil {
		return domain.Activity{}, wrap("ActivityRepo.Update", err)
	}
	u := activityUpdates(p)
	if len(u) == 0 {
		return s.GetByID(ctx, tripID, activityID)
	}
	if _, err := ref.Update(ctx, u); err != nil {
		return domain.Activity{}, wrap("ActivityRepo.Update", err)
	}
	return s.GetByID(ctx, tripID, activityID)
}

func (s *activityStore) Delete(ctx context.Context, tripID, activityID string) error {
	ref, err := s.ref(tripID, activityID)
	if err != nil {
		return wrap("ActivityRepo.Delete", err)
	}
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		return wrap("ActivityRepo.Delete", err)
	}
	return nil
}

func (s *activityStore) byTrip(tripID string) (firestore.Query, error) {
	col, err := s.col(tripID)
	if err != nil {
		return firestore.Query{}, err
	}
	return col.OrderBy("startTime", firestore.Asc), nil
}

func (s *activityStore) WatchByTrip(ctx context.Context, tripID string, emit func([]domain.Activity)) error {
	q, err := s.byTrip(tripID)
	if err != nil {
		emit([]domain.Activity{})
		<-ctx.Done()
		return nil
	}
	it := q.Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			if cancelled(ctx, err) {
				return nil
			}
			return wrap("ActivityWatcher.WatchByTrip", err)
		}
		activities, err := decodeActivities(snap.Documents)
		if err != nil {
			return wrap("ActivityWatcher.WatchByTrip", err)
		}
		emit(activities)
	}
}

func decodeActivity(snap *firestore.DocumentSnapshot) (domain.Activity, error) {
	var d activityDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Activity{}, err
	}
	return d.activity(snap.Ref.ID), nil
}

func decodeActivities(it *firestore.DocumentIterator) ([]domain.Activity, error) {
	defer it.Stop()
	activities := []domain.Activity{}
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return activities, nil
		}
		if err != nil {
			return nil, err
		}
		a, err := decodeActivity(snap)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
}
