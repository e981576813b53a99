package viewmodel

import (
	"fmt"
	"strings"
	"time"

	"github.com/cychmps426211/travelplan/internal/domain"
)

// Day is one calendar day of a trip with the activities that start on it.
type Day struct {
	Index      int            `json:"index"`
	Date       time.Time      `json:"-"`
	Activities []ActivityView `json:"activities"`
}

// GroupByDay partitions activities over the inclusive date range of the
// trip. Every day in the range is present even when empty; an activity
// whose start falls outside the range lands in no bucket. Activities keep
// their input order within a day.
func GroupByDay(start, end time.Time, activities []domain.Activity, loc *time.Location) []Day {
	if loc == nil {
		loc = time.UTC
	}
	n := DurationDays(start, end)
	if n <= 0 {
		return []Day{}
	}
	first := domain.DateOnly(start)
	days := make([]Day, n)
	for i := range days {
		days[i] = Day{Index: i + 1, Date: first.AddDate(0, 0, i), Activities: []ActivityView{}}
	}
	for _, a := range activities {
		i := calendarDays(first, domain.DateOnly(a.StartTime.In(loc)))
		if i < 0 || i >= n {
			continue
		}
		days[i].Activities = append(days[i].Activities, Activity(a))
	}
	return days
}

// ChecklistRatio renders completed/total, or "" for an empty checklist.
func ChecklistRatio(c domain.Checklist) string {
	if len(c) == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", c.Completed(), len(c))
}

// DurationText renders a minute count the way activity cards show it:
// "45 min", "2 hr" or "1 hr 30 min".
func DurationText(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%d hr", h)
	}
	return fmt.Sprintf("%d hr %d min", h, m)
}

var travelModeLabels = map[domain.TravelMode]string{
	domain.TravelTransit:   "Transit",
	domain.TravelDriving:   "Driving",
	domain.TravelWalking:   "Walking",
	domain.TravelBicycling: "Bicycling",
}

var transitModeLabels = map[domain.TransitMode]string{
	domain.TransitSubway: "Subway",
	domain.TransitBus:    "Bus",
	domain.TransitTrain:  "Train",
	domain.TransitTram:   "Tram",
	domain.TransitRail:   "Rail",
}

var routingLabels = map[domain.RoutingPreference]string{
	domain.RoutingLessWalking:    "Less walking",
	domain.RoutingFewerTransfers: "Fewer transfers",
}

// TravelModeLabel renders a transport activity's mode, including transit
// preferences when there are any: "Transit (Train, Bus; Fewer transfers)".
func TravelModeLabel(d domain.TransportDetails) string {
	label, ok := travelModeLabels[d.TravelMode]
	if !ok {
		return ""
	}
	if d.TravelMode != domain.TravelTransit {
		return label
	}
	var prefs []string
	if len(d.TransitModes) > 0 {
		modes := make([]string, len(d.TransitModes))
		for i, m := range d.TransitModes {
			modes[i] = transitModeLabels[m]
		}
		prefs = append(prefs, strings.Join(modes, ", "))
	}
	if r, ok := routingLabels[d.RoutingPreference]; ok {
		prefs = append(prefs, r)
	}
	if len(prefs) == 0 {
		return label
	}
	return label + " (" + strings.Join(prefs, "; ") + ")"
}

// RouteLabel renders "A → B" for a transport activity; empty when either
// end is missing.
func RouteLabel(d domain.TransportDetails) string {
	if d.DepartureLocation == "" || d.ArrivalLocation == "" {
		return ""
	}
	return d.DepartureLocation + " → " + d.ArrivalLocation
}

// ActivityView is an activity with its display strings.
type ActivityView struct {
	Activity  domain.Activity `json:"-"`
	Checklist string          `json:"checklist,omitempty"`
	Route     string          `json:"route,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Duration  string          `json:"duration,omitempty"`
}

// Activity derives the display strings for one activity.
func Activity(a domain.Activity) ActivityView {
	v := ActivityView{Activity: a, Checklist: ChecklistRatio(a.Checklist)}
	if t, ok := a.Transport(); ok {
		v.Route = RouteLabel(t)
		v.Mode = TravelModeLabel(t)
		if t.EstimatedDuration != nil {
			v.Duration = DurationText(*t.EstimatedDuration)
		}
	}
	return v
}

// Itinerary is everything the trip detail screen derives from one trip and
// its activities at one instant.
type Itinerary struct {
	DurationDays   int         `json:"durationDays"`
	Status         TripStatus  `json:"status"`
	DaysUntilStart int         `json:"daysUntilStart"`
	CoverColor     string      `json:"coverColor"`
	Outbound       *FlightView `json:"outboundFlight,omitempty"`
	Return         *FlightView `json:"returnFlight,omitempty"`
	Days           []Day       `json:"days"`
}

// Build derives the itinerary. Activities are expected in start-time order,
// as the store returns them.
func Build(t domain.Trip, activities []domain.Activity, now time.Time, loc *time.Location) Itinerary {
	it := Itinerary{
		DurationDays: DurationDays(t.StartDate, t.EndDate),
		Status:       Status(t, now, loc),
		CoverColor:   CoverColor(t),
		Outbound:     Flight(t.OutboundFlight, now, loc),
		Return:       Flight(t.ReturnFlight, now, loc),
		Days:         GroupByDay(t.StartDate, t.EndDate, activities, loc),
	}
	if it.Status == StatusUpcoming {
		it.DaysUntilStart = DaysUntilStart(t, now, loc)
	}
	return it
}
