// Package handler implements the HTTP handlers for the travel planner API.
// All handlers are methods on Server. They are split into resource files
// (trip.go, activity.go, auth.go, ...) but share the same dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cychmps426211/travelplan/internal/covers"
	"github.com/cychmps426211/travelplan/internal/directions"
	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/live"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// TripServicer defines the trip operations the handlers depend on.
// *service.TripService implements it.
type TripServicer interface {
	Subscribe(ctx context.Context, userID string, fn func([]domain.Trip), opts ...live.Option) *live.Subscription
	SubscribeTrip(ctx context.Context, tripID string, fn func(repo.TripSnapshot), opts ...live.Option) *live.Subscription
	List(ctx context.Context, userID string) ([]domain.Trip, error)
	GetByID(ctx context.Context, id string) (domain.Trip, error)
	Create(ctx context.Context, userID string, n domain.NewTrip) (domain.Trip, error)
	Update(ctx context.Context, id string, patch domain.TripPatch) (domain.Trip, error)
	Delete(ctx context.Context, id string) error
}

// ActivityServicer defines the activity operations the handlers depend on.
type ActivityServicer interface {
	Subscribe(ctx context.Context, tripID string, fn func([]domain.Activity), opts ...live.Option) *live.Subscription
	List(ctx context.Context, tripID string) ([]domain.Activity, error)
	Add(ctx context.Context, tripID string, a domain.Activity) (domain.Activity, error)
	Update(ctx context.Context, tripID, activityID string, patch domain.ActivityPatch) (domain.Activity, error)
	Delete(ctx context.Context, tripID, activityID string) error
	AddChecklistItem(ctx context.Context, tripID, activityID, text string) (domain.Activity, error)
	UpdateChecklistItem(ctx context.Context, tripID, activityID, itemID string, text *string, toggle bool) (domain.Activity, error)
	RemoveChecklistItem(ctx context.Context, tripID, activityID, itemID string) (domain.Activity, error)
}

// ExportServicer produces the flat itinerary export.
type ExportServicer interface {
	Export(ctx context.Context, userID string) ([]domain.ExportRow, error)
}

// SessionGate is the identity gate. *identity.Gate implements it.
type SessionGate interface {
	Authenticate(ctx context.Context, id domain.Identity) (identity.SignedIn, error)
	CurrentSession(ctx context.Context, token string) (identity.SessionState, error)
	EndSession(ctx context.Context, token string) error
}

// OAuthProvider runs the authorization-code sign-in flow.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (domain.Identity, error)
}

// IDTokenVerifier checks an ID token minted by a client-side sign-in.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (domain.Identity, error)
}

// MapEmbedder builds map iframe URLs.
type MapEmbedder interface {
	RouteURL(origin, destination string, mode domain.TravelMode) string
	PlaceURL(location string) string
	ActivityURL(a domain.Activity) string
}

// CoverPresigner issues presigned cover image uploads.
type CoverPresigner interface {
	PresignCover(ctx context.Context, tripID, contentType string) (covers.Upload, error)
}

// Deps are the Server's collaborators. Google, Firebase, Directions, Maps
// and Covers are optional; their routes answer 501 when unset.
type Deps struct {
	Trips      TripServicer
	Activities ActivityServicer
	Export     ExportServicer
	Gate       SessionGate

	Google     OAuthProvider
	Firebase   IDTokenVerifier
	Directions directions.Resolver
	Maps       MapEmbedder
	Covers     CoverPresigner

	Logger        *slog.Logger
	Location      *time.Location
	FrontendURL   string
	SecureCookies bool
	OpenAPI       []byte

	// AllowedOrigins are the browser origins /stream accepts.
	AllowedOrigins []string
	// SessionRecheck is how often an open /stream re-reads its session.
	SessionRecheck time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	Deps
	now func() time.Time
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.SessionRecheck <= 0 {
		d.SessionRecheck = defaultSessionRecheck
	}
	return &Server{Deps: d, now: time.Now}
}

// Routes returns the API router. requireSession guards every route that
// serves or changes user data; /stream authenticates itself so it can
// report the session phases.
func (s *Server) Routes(requireSession func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", s.GoogleLogin)
		r.Get("/google/callback", s.GoogleCallback)
		r.Post("/firebase", s.FirebaseSignIn)
		r.Get("/session", s.GetSession)
		r.Post("/logout", s.Logout)
	})

	r.Get("/stream", s.Stream)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Post("/", s.CreateTrip)
			r.Route("/{tripID}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Patch("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)
				r.Post("/cover-upload", s.CreateCoverUpload)
				r.Get("/itinerary", s.GetItinerary)

				r.Get("/activities", s.ListActivities)
				r.Post("/activities", s.CreateActivity)
				r.Route("/activities/{activityID}", func(r chi.Router) {
					r.Patch("/", s.UpdateActivity)
					r.Delete("/", s.DeleteActivity)
					r.Post("/checklist", s.AddChecklistItem)
					r.Patch("/checklist/{itemID}", s.UpdateChecklistItem)
					r.Delete("/checklist/{itemID}", s.DeleteChecklistItem)
				})
			})
		})

		r.Get("/export", s.GetExport)
		r.Post("/directions/duration", s.ResolveDuration)
		r.Get("/directions/embed", s.GetEmbedURL)
	})

	return r
}

// principal returns the signed-in caller. Routes behind requireSession
// always have one.
func principal(r *http.Request) identity.Principal {
	p, _ := identity.PrincipalFromContext(r.Context())
	return p
}

// writeContext detaches a store write from request cancellation: a client
// that disconnects mid-request does not abort the write.
func writeContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
