// Package api provides the HTTP API and middleware for the subscription
// service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cinemax-app/subscribe/pkg/api"
	"github.com/cinemax-app/subscribe/server/internal/auth"
	"github.com/cinemax-app/subscribe/server/internal/config"
	"github.com/cinemax-app/subscribe/server/internal/store"
)

// Authority validates bearer tokens and issues renewed ones.
type Authority interface {
	ValidateToken(ctx context.Context, token string) (*auth.Identity, error)
	IssueToken(user *store.User) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	store        store.Store
	auth         Authority
	logger       *slog.Logger
	mux          *chi.Mux
	validate     *validator.Validate
	startTime    time.Time
	maxBodyBytes int64
	rl           *rateLimiter
	now          func() time.Time
}

// NewServer creates a new API server.
func NewServer(s store.Store, a Authority, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		store:        s,
		auth:         a,
		logger:       logger.With("component", "api"),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		startTime:    time.Now(),
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		now:          time.Now,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(chimw.RealIP)
	mux.Use(securityHeadersMiddleware)
	mux.Use(newCORSPolicy(cfg.Server.AllowedOrigins).middleware)

	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)

	srv.rl = newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	mux.Group(func(r chi.Router) {
		r.Use(srv.authMiddleware)

		r.Get("/subscriptions", srv.handleListPlans)
		r.Get("/users/{userId}/credit-cards", srv.handleListCards)

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware(srv.rl))
			r.Post("/users/{userId}/credit-cards", srv.handleRegisterCard)
			r.Post("/subscriptions/select-subscription/{planType}", srv.handleSelectSubscription)
		})
	})

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup of rate limit buckets.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	s.rl.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Plans ---

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context())
	if err != nil {
		s.logger.Error("list plans failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := api.SubscriptionsResponse{Subscriptions: make([]api.Plan, 0, len(plans))}
	for _, p := range plans {
		resp.Subscriptions = append(resp.Subscriptions, api.Plan{
			ID:       p.ID,
			Type:     p.Type,
			Name:     p.Name,
			Price:    p.Price,
			Benefits: p.Benefits,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectSubscription(w http.ResponseWriter, r *http.Request) {
	identity := getIdentityFromContext(r.Context())
	planType := chi.URLParam(r, "planType")

	var req api.SelectSubscriptionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID != identity.UserID {
		writeError(w, http.StatusForbidden, "cannot activate a plan for another user")
		return
	}

	plan, err := s.store.GetPlanByType(r.Context(), planType)
	if err != nil {
		s.logger.Error("get plan failed", "plan_type", planType, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	sub := &store.Subscription{
		ID:          uuid.New().String(),
		UserID:      identity.UserID,
		PlanType:    plan.Type,
		ActivatedAt: s.now(),
	}
	if err := s.store.ActivateSubscription(r.Context(), sub); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("activate subscription failed", "user_id", identity.UserID, "plan_type", plan.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := s.store.GetUser(r.Context(), identity.UserID)
	if err != nil || user == nil {
		s.logger.Error("reload user failed", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		s.logger.Error("issue token failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("subscription activated", "user_id", user.ID, "plan_type", plan.Type)
	writeJSON(w, http.StatusOK, api.SelectSubscriptionResponse{Token: token})
}

// --- Cards ---

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownUser(w, r)
	if !ok {
		return
	}

	cards, err := s.store.ListCards(r.Context(), userID)
	if err != nil {
		s.logger.Error("list cards failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]api.StoredCard, 0, len(cards))
	for i := range cards {
		out = append(out, toStoredCard(&cards[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRegisterCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.ownUser(w, r)
	if !ok {
		return
	}

	var req api.RegisterCardRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.CardNumber = strings.ReplaceAll(req.CardNumber, " ", "")
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if _, err := time.Parse("01/06", req.Expiry); err != nil {
		writeError(w, http.StatusBadRequest, "expiry must be MM/YY")
		return
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("get user failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	card := &store.Card{
		ID:         uuid.New().String(),
		UserID:     userID,
		Last4:      req.CardNumber[len(req.CardNumber)-4:],
		Digits:     len(req.CardNumber),
		HolderName: req.HolderName,
		Expiry:     req.Expiry,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateCard(r.Context(), card); err != nil {
		s.logger.Error("create card failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("card registered", "user_id", userID, "card_id", card.ID)
	writeJSON(w, http.StatusCreated, toStoredCard(card))
}

// ownUser returns the {userId} path parameter when it names the caller.
func (s *Server) ownUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity := getIdentityFromContext(r.Context())
	userID := chi.URLParam(r, "userId")
	if identity == nil || userID != identity.UserID {
		writeError(w, http.StatusForbidden, "access denied")
		return "", false
	}
	return userID, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func toStoredCard(c *store.Card) api.StoredCard {
	hidden := c.Digits - len(c.Last4)
	if hidden < 0 {
		hidden = 0
	}
	return api.StoredCard{
		ID:         c.ID,
		CardNumber: strings.Repeat("*", hidden) + c.Last4,
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return strings.ToLower(fe.Field()) + " is required"
	case "credit_card":
		return "invalid card number"
	default:
		return "invalid " + strings.ToLower(fe.Field())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
