// Package backendtest is an in-process fake of the SitePulse REST
// contract. Tests point the real client at it instead of guessing at
// wire behavior with hand-rolled stubs.
package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitepulse/notify/internal/backend"
	"github.com/sitepulse/notify/internal/domain"
	"github.com/sitepulse/notify/pkg/response"
)

// Server holds the fake backend's state. All fields are guarded by mu;
// the accessors return copies.
type Server struct {
	logger *zap.Logger

	mu         sync.Mutex
	failing    bool
	activities []domain.Activity
	tokens     []domain.PushTokenRecord
	sends      []domain.NotificationSend
	users      map[string]backend.Recipient // userID -> recipient info
}

// New creates an empty fake backend.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger: logger,
		users:  make(map[string]backend.Recipient),
	}
}

// Handler returns the chi router implementing the REST contract.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(s.outage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/activity", s.handleLogActivity)
		r.Get("/activity", s.handleListActivities)
		r.Post("/notifications/send", s.handleSendNotification)
		r.Get("/notifications/recipients", s.handleRecipients)
		r.Post("/push-token", s.handleRegisterToken)
		r.Get("/push-token", s.handleListTokens)
		r.Delete("/push-token", s.handleDeactivateTokens)
	})

	return r
}

// SetFailing toggles simulated backend unavailability: every request
// returns 503 until cleared.
func (s *Server) SetFailing(failing bool) {
	s.mu.Lock()
	s.failing = failing
	s.mu.Unlock()
}

// AddUser seeds a user the recipients endpoint can resolve.
func (s *Server) AddUser(userID, name string, userType domain.UserType) {
	s.mu.Lock()
	s.users[userID] = backend.Recipient{UserID: userID, Name: name, UserType: userType}
	s.mu.Unlock()
}

// Sends returns a copy of every notification send received.
func (s *Server) Sends() []domain.NotificationSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationSend, len(s.sends))
	copy(out, s.sends)
	return out
}

// Tokens returns a copy of every push token record, active or not.
func (s *Server) Tokens() []domain.PushTokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PushTokenRecord, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// SeedActivity inserts an activity directly, bypassing the HTTP
// surface. Returns the assigned id.
func (s *Server) SeedActivity(act domain.Activity) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if act.ID == "" {
		act.ID = uuid.New().String()
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = time.Now()
	}
	s.activities = append(s.activities, act)
	return act.ID
}

func (s *Server) outage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failing := s.failing
		s.mu.Unlock()
		if failing {
			response.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "backend unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogActivity(w http.ResponseWriter, r *http.Request) {
	var act domain.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		response.BadRequest(w, "invalid activity payload")
		return
	}
	if act.ClientID == "" && act.ProjectID == "" {
		response.BadRequest(w, "client_id or project_id is required")
		return
	}

	act.ID = uuid.New().String()
	act.CreatedAt = time.Now()

	s.mu.Lock()
	s.activities = append(s.activities, act)
	s.mu.Unlock()

	response.Created(w, act)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		response.BadRequest(w, "clientId is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	var matched []domain.Activity
	for i := len(s.activities) - 1; i >= 0 && len(matched) < limit; i-- {
		if s.activities[i].ClientID == clientID {
			matched = append(matched, s.activities[i])
		}
	}
	s.mu.Unlock()

	if matched == nil {
		matched = []domain.Activity{}
	}
	response.OK(w, matched)
}

func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var send domain.NotificationSend
	if err := json.NewDecoder(r.Body).Decode(&send); err != nil {
		response.BadRequest(w, "invalid send payload")
		return
	}
	if send.ClientID == "" && send.ProjectID == "" {
		response.BadRequest(w, "client_id or project_id is required")
		return
	}

	s.mu.Lock()
	s.sends = append(s.sends, send)
	s.mu.Unlock()

	response.OK(w, map[string]string{"status": "queued"})
}

func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		response.BadRequest(w, "clientId is required")
		return
	}

	s.mu.Lock()
	recipients := make([]backend.Recipient, 0, len(s.users))
	for _, rec := range s.users {
		recipients = append(recipients, rec)
	}
	s.mu.Unlock()

	response.OK(w, recipients)
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var rec domain.PushTokenRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		response.BadRequest(w, "invalid token payload")
		return
	}
	if rec.Token == "" || rec.UserID == "" || rec.DeviceID == "" {
		response.BadRequest(w, "token, user_id and device_id are required")
		return
	}
	if !domain.ValidPushToken(rec.Token) {
		response.BadRequest(w, "malformed push token")
		return
	}

	rec.IsActive = true
	rec.UpdatedAt = time.Now()

	s.mu.Lock()
	// One active token per (userId, deviceId): re-registration
	// supersedes stale state. Old records stay, deactivated, for audit.
	for i := range s.tokens {
		if s.tokens[i].UserID == rec.UserID && s.tokens[i].DeviceID == rec.DeviceID {
			s.tokens[i].IsActive = false
		}
	}
	s.tokens = append(s.tokens, rec)
	s.mu.Unlock()

	s.logger.Debug("fake backend registered token",
		zap.String("user_id", rec.UserID), zap.String("device_id", rec.DeviceID))
	response.Created(w, rec)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		response.BadRequest(w, "userId is required")
		return
	}

	s.mu.Lock()
	matched := []domain.PushTokenRecord{}
	for _, rec := range s.tokens {
		if rec.UserID == userID {
			matched = append(matched, rec)
		}
	}
	s.mu.Unlock()

	response.OK(w, matched)
}

func (s *Server) handleDeactivateTokens(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		response.BadRequest(w, "userId is required")
		return
	}

	s.mu.Lock()
	count := 0
	for i := range s.tokens {
		if s.tokens[i].UserID == userID && s.tokens[i].IsActive {
			s.tokens[i].IsActive = false
			count++
		}
	}
	s.mu.Unlock()

	response.OK(w, map[string]int{"deactivated": count})
}
