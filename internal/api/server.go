package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"clickrush/internal/auth"
	"clickrush/internal/config"
	"clickrush/internal/game"
	"clickrush/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	ID       int64
	Username string
	Role     string
}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9&^!@#]{4,20}$`)
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	tokens *auth.TokenManager
	game   *game.Service
	hub    *realtime.Hub
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, tokens *auth.TokenManager, gameSvc *game.Service, hub *realtime.Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		tokens: tokens,
		game:   gameSvc,
		hub:    hub,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	// The websocket upgrade outlives any request timeout, so it sits
	// outside the Timeout middleware.
	r.Get("/v1/ws", s.handleWebsocket)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Get("/items", s.handleItems)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/game/click", s.handleClick)
			r.Get("/game/progression", s.handleProgression)
			r.Post("/game/progression", s.handleInitProgression)
			r.Post("/game/reset", s.handleReset)
			r.Get("/game/reset-cost", s.handleResetCost)
			r.Get("/game/best-score", s.handleBestScore)

			r.Get("/inventory", s.handleInventory)
			r.Post("/inventory/buy", s.handleBuy)

			r.Get("/users/me", s.handleMe)
			r.Delete("/users/me", s.handleDeleteMe)

			r.Post("/items/seed", s.handleSeedItems)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token", "")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token", "")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token", "")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			ID:       userID,
			Username: claims.Username,
			Role:     claims.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.ID == 0 {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(in.Username) {
		writeError(w, http.StatusBadRequest, "username must be 3-20 alphanumeric characters", game.CodeRegistrationFailed)
		return
	}
	if !passwordPattern.MatchString(in.Password) {
		writeError(w, http.StatusBadRequest, "password must be 4-20 characters (letters, digits, &^!@#)", game.CodeRegistrationFailed)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed", game.CodeRegistrationFailed)
		return
	}
	user, err := s.game.RegisterUser(r.Context(), in.Username, hash)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.tokens.Sign(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed", game.CodeRegistrationFailed)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	user, err := s.game.UserByUsername(r.Context(), strings.TrimSpace(in.Username))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !auth.VerifyPassword(user.Password, in.Password) {
		writeError(w, http.StatusUnauthorized, "invalid password", game.CodeInvalidPassword)
		return
	}
	token, err := s.tokens.Sign(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	result, err := s.game.Click(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result.IsNewHighScore {
		s.hub.Broadcast("NewHighScore", map[string]any{
			"username":  result.Username,
			"new_score": result.NewBestScore,
		})
	}
	writeJSON(w, http.StatusOK, result.Game)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	out, err := s.game.GetProgression(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInitProgression(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	out, err := s.game.InitializeProgression(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	result, err := s.game.ResetProgression(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.Broadcast("PlayerReset", map[string]any{
		"username":           result.Username,
		"score_before_reset": result.ScoreBeforeReset,
	})
	writeJSON(w, http.StatusOK, result.Progression)
}

func (s *Server) handleResetCost(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	out, err := s.game.GetResetCost(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.BestScores(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	out, err := s.game.GetInventory(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": out})
}

const bigPurchasePrice = 10000

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	var in struct {
		ItemID int64 `json:"itemId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	result, err := s.game.Buy(r.Context(), in.ItemID, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result.Item.Price > bigPurchasePrice {
		s.hub.Broadcast("ReceiveMessage", map[string]any{
			"username": "System",
			"message":  fmt.Sprintf("%s just bought %s!", result.Username, result.Item.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": result.Inventory})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	out, err := s.game.UserByID(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	if err := s.game.DeleteUser(r.Context(), user.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.GetItems(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleSeedItems(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error(), "")
		return
	}
	if user.Role != game.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin only", "")
		return
	}
	seeded, err := s.game.SeedItems(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seeded": seeded})
}

// handleWebsocket authenticates via a token query param since browser
// websocket clients cannot set an Authorization header.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token", "")
		return
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token", "")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token", "")
		return
	}
	if err := s.hub.Join(w, r, userID); err != nil {
		s.log.Warn("websocket join failed", "user_id", userID, "err", err)
	}
}

var domainMessages = map[string]string{
	game.CodeNoProgression:      "progression not found",
	game.CodeProgressionExists:  "progression already exists",
	game.CodeInsufficientClicks: "not enough clicks to reset",
	game.CodeNoProgressions:     "no progressions recorded yet",
	game.CodeUserNotFound:       "user not found",
	game.CodeItemNotFound:       "item not found",
	game.CodeInventoryFull:      "item already at max quantity",
	game.CodeNotEnoughMoney:     "not enough clicks for this item",
	game.CodeNoItems:            "no items available",
	game.CodeInvalidUserID:      "invalid user id",
	game.CodeRegistrationFailed: "registration failed",
	game.CodeInvalidPassword:    "invalid password",
}

func writeDomainError(w http.ResponseWriter, err error) {
	if derr, ok := game.AsDomainError(err); ok {
		msg := domainMessages[derr.Code]
		if msg == "" {
			msg = derr.Code
		}
		writeError(w, derr.Status, msg, derr.Code)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), "")
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]any{"message": strings.TrimSpace(message)}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
