package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/live"
	"github.com/cychmps426211/travelplan/internal/middleware"
	"github.com/cychmps426211/travelplan/internal/repo"
)

// Frame types sent on /stream.
const (
	FrameSession     = "session"
	FrameTrips       = "trips"
	FrameTrip        = "trip"
	FrameTripDeleted = "trip_deleted"
	FrameActivities  = "activities"
	FrameError       = "error"
)

const (
	streamWriteTimeout    = 10 * time.Second
	maxStreamDecodeErrors = 3

	defaultSessionRecheck = 30 * time.Second
)

// StreamFrame is one server-to-client message.
type StreamFrame struct {
	Type   string `json:"type"`
	TripID string `json:"tripId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StreamCommand is a client-to-server message. Watch names the trip whose
// detail and activities are streamed; an empty string stops watching.
type StreamCommand struct {
	Watch *string `json:"watch"`
}

// Stream handles GET /stream. The handshake only accepts browser origins in
// AllowedOrigins. The connection first reports the session phases, loading
// then resolved; a signed-out client is closed after the resolved frame. A
// signed-in client receives its trip list on every change and can select
// one trip at a time to follow. The session is checked again before every
// watch command and every SessionRecheck; once it has ended the client gets
// a signed-out session frame and the connection closes.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	websocket.Server{Handshake: s.checkOrigin, Handler: s.serveStream}.ServeHTTP(w, r)
}

// checkOrigin rejects cross-site handshakes. A missing Origin is refused as
// well, matching the library's default handshake.
func (s *Server) checkOrigin(config *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(config, r)
	if err != nil {
		return err
	}
	if origin == nil {
		return errors.New("missing origin")
	}
	for _, raw := range s.AllowedOrigins {
		allowed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if strings.EqualFold(allowed.Scheme, origin.Scheme) && strings.EqualFold(allowed.Host, origin.Host) {
			config.Origin = origin
			return nil
		}
	}
	return fmt.Errorf("origin %s not allowed", origin)
}

type streamPeer struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	enc    *json.Encoder
	closed bool
}

func (p *streamPeer) send(f StreamFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return net.ErrClosed
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return p.enc.Encode(f)
}

// closeWith sends f as the last frame and closes the connection. Frames
// sent afterwards are dropped.
func (p *streamPeer) closeWith(f StreamFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	_ = p.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	_ = p.enc.Encode(f)
	_ = p.conn.Close()
}

func (s *Server) serveStream(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	req := conn.Request()
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	peer := &streamPeer{conn: conn, enc: json.NewEncoder(conn)}
	token := middleware.SessionToken(req)

	if peer.send(StreamFrame{Type: FrameSession, Data: identity.Loading()}) != nil {
		return
	}
	state, err := s.Gate.CurrentSession(ctx, token)
	if err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		s.Logger.WarnContext(ctx, "stream session restore failed", "error", err)
		_ = peer.send(errorFrame("", "session_unavailable", "session store unavailable"))
		return
	}
	if peer.send(StreamFrame{Type: FrameSession, Data: state}) != nil || !state.SignedIn() {
		return
	}
	userID := state.User.ID

	// signedIn re-reads the session. When it has ended, or cannot be
	// verified, the peer is told and the connection closed.
	signedIn := func() bool {
		current, err := s.Gate.CurrentSession(ctx, token)
		switch {
		case ctx.Err() != nil:
			return false
		case err != nil && !errors.Is(err, domain.ErrUnauthorized):
			s.Logger.WarnContext(ctx, "stream session recheck failed", "error", err)
			peer.closeWith(errorFrame("", "session_unavailable", "session store unavailable"))
			return false
		case !current.SignedIn() || current.User.ID != userID:
			s.Logger.InfoContext(ctx, "stream closed, session ended", "user_id", userID)
			peer.closeWith(StreamFrame{Type: FrameSession, Data: identity.Resolved(nil)})
			return false
		}
		return true
	}

	go func() {
		tick := time.NewTicker(s.SessionRecheck)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if !signedIn() {
					return
				}
			}
		}
	}()

	onError := func(tripID string) live.Option {
		return live.WithErrorHandler(func(err error) {
			_ = peer.send(errorFrame(tripID, "subscription_error", err.Error()))
		})
	}

	trips := s.Trips.Subscribe(ctx, userID, func(ts []domain.Trip) {
		_ = peer.send(StreamFrame{Type: FrameTrips, Data: tripsToResponse(ts)})
	}, live.WithLogger(s.Logger), onError(""))
	defer trips.Stop()

	var watched []*live.Subscription
	unwatch := func() {
		for _, sub := range watched {
			sub.Stop()
		}
		watched = nil
	}
	defer unwatch()

	dec := json.NewDecoder(conn)
	decodeErrors := 0
	for {
		var cmd StreamCommand
		if err := dec.Decode(&cmd); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntax) && !errors.As(err, &typeErr) {
				return
			}
			decodeErrors++
			_ = peer.send(errorFrame("", "validation_error", "invalid frame payload"))
			if decodeErrors >= maxStreamDecodeErrors {
				return
			}
			// A syntax error leaves the decoder unusable.
			dec = json.NewDecoder(conn)
			continue
		}
		decodeErrors = 0
		if cmd.Watch == nil {
			continue
		}
		if !signedIn() {
			return
		}

		// Previous trip's streams stop before the next ones start.
		unwatch()
		tripID := *cmd.Watch
		if tripID == "" {
			continue
		}
		watched = append(watched,
			s.Trips.SubscribeTrip(ctx, tripID, func(snap repo.TripSnapshot) {
				if !snap.Exists {
					_ = peer.send(StreamFrame{Type: FrameTripDeleted, TripID: tripID})
					return
				}
				_ = peer.send(StreamFrame{Type: FrameTrip, TripID: tripID, Data: tripToResponse(snap.Trip)})
			}, live.WithLogger(s.Logger), onError(tripID)),
			s.Activities.Subscribe(ctx, tripID, func(as []domain.Activity) {
				_ = peer.send(StreamFrame{Type: FrameActivities, TripID: tripID, Data: activitiesToResponse(as)})
			}, live.WithLogger(s.Logger), onError(tripID)),
		)
	}
}

func errorFrame(tripID, code, message string) StreamFrame {
	return StreamFrame{Type: FrameError, TripID: tripID, Data: ErrorDetail{Code: code, Message: message}}
}
