package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/repo"
	"github.com/cychmps426211/travelplan/internal/viewmodel"
)

// ExportService assembles a flat itinerary export of a user's trips.
type ExportService struct {
	trips      repo.TripRepo
	activities repo.ActivityRepo
	loc        *time.Location
}

// NewExportService constructs an ExportService. Activity days are computed
// in loc.
func NewExportService(trips repo.TripRepo, activities repo.ActivityRepo, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExportService{trips: trips, activities: activities, loc: loc}
}

// Export returns one ExportRow per activity across every trip userID is a
// member of, trips sorted by start date and activities by start time.
// Trips with no activities contribute one row with empty activity fields.
func (s *ExportService) Export(ctx context.Context, userID string) ([]domain.ExportRow, error) {
	trips, err := s.trips.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := []domain.ExportRow{}
	for _, t := range SortByStart(trips) {
		activities, err := s.activities.ListByTrip(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("service.ExportService.Export: trip %s: %w", t.ID, err)
		}
		activities = slices.Clone(activities)
		slices.SortStableFunc(activities, func(a, b domain.Activity) int {
			return a.StartTime.Compare(b.StartTime)
		})

		base := domain.ExportRow{
			TripID:        t.ID,
			TripTitle:     t.Title,
			Destination:   t.Destination,
			TripStartDate: t.StartDate.Format(time.DateOnly),
			TripEndDate:   t.EndDate.Format(time.DateOnly),
		}
		if len(activities) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, a := range activities {
			rows = append(rows, s.activityRow(base, a))
		}
	}
	return rows, nil
}

func (s *ExportService) activityRow(base domain.ExportRow, a domain.Activity) domain.ExportRow {
	start := a.StartTime
	row := base
	row.Day = start.In(s.loc).Format(time.DateOnly)
	row.ActivityTitle = a.Title
	row.ActivityType = a.Type
	row.StartTime = &start
	row.EndTime = a.EndTime
	row.Notes = a.Notes
	row.Checklist = viewmodel.ChecklistRatio(a.Checklist)
	if d, ok := a.Transport(); ok {
		row.Where = viewmodel.RouteLabel(d)
	} else if p, ok := a.Place(); ok {
		row.Where = p.Location
	}
	return row
}
