// Package api is the HTTP surface: router, wallet auth and handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/obsanitylabs/fantasy-crypto/internal/db"
	"github.com/obsanitylabs/fantasy-crypto/internal/league"
	"github.com/obsanitylabs/fantasy-crypto/internal/matchmaking"
	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
	"github.com/obsanitylabs/fantasy-crypto/internal/ws"
)

type Server struct {
	store      *db.Store
	matches    *matchmaking.Service
	leagues    *league.Service
	hub        *ws.Hub
	metrics    *metrics.Metrics
	secret     []byte
	adminAddrs map[string]bool
}

func NewServer(store *db.Store, matches *matchmaking.Service, leagues *league.Service,
	hub *ws.Hub, m *metrics.Metrics, secret string, adminAddrs []string) *Server {
	admins := make(map[string]bool, len(adminAddrs))
	for _, a := range adminAddrs {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			admins[a] = true
		}
	}
	return &Server{
		store: store, matches: matches, leagues: leagues, hub: hub,
		metrics: m, secret: []byte(secret), adminAddrs: admins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	// Health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json200(w, map[string]string{"status": "ok"})
	})

	// Prometheus scrape target
	r.Handle("/metrics", s.metrics.Handler())

	// Auth (public)
	r.Post("/api/auth/connect", s.connectWallet)

	// WebSocket
	r.Get("/ws", s.hub.HandleWS)

	// Public reads
	r.Get("/api/coins", s.listCoins)
	r.Get("/api/coins/{symbol}", s.getCoin)
	r.Get("/api/leaderboard", s.leaderboard)
	r.Get("/api/stats", s.platformStats)
	r.Get("/api/queue/stats", s.queueStats)
	r.Get("/api/unite/stats", s.uniteStats)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Profile
		r.Get("/api/users/me", s.getProfile)
		r.Put("/api/users/me", s.updateProfile)
		r.Get("/api/users/me/ranking", s.myRanking)

		// Matchmaking + matches
		r.Post("/api/matches/request", s.requestMatch)
		r.Get("/api/matches", s.listMatches)
		r.Get("/api/matches/{id}", s.getMatch)
		r.Get("/api/matches/{id}/draft", s.getDraft)
		r.Post("/api/matches/{id}/draft", s.submitDraft)

		// Queue
		r.Get("/api/queue/status", s.queueStatus)
		r.Delete("/api/queue", s.withdrawQueue)
		r.Put("/api/queue/notifications", s.updateQueueNotifications)

		// Leagues
		r.Get("/api/leagues/available", s.availableLeagues)
		r.Get("/api/leagues/mine", s.myLeagues)
		r.Get("/api/leagues/{id}", s.getLeague)
		r.Post("/api/leagues/{id}/join", s.joinLeague)
		r.Get("/api/leagues/{id}/participants", s.leagueParticipants)
		r.Get("/api/leagues/{id}/rankings", s.leagueRankings)

		// UNITE
		r.Get("/api/unite/me", s.uniteProfile)
		r.Post("/api/unite/stake", s.stake)
		r.Post("/api/unite/unstake", s.unstake)
		r.Post("/api/unite/claim", s.claimRewards)
		r.Get("/api/unite/history", s.stakingHistory)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/api/admin/leagues", s.createLeague)
			r.Post("/api/admin/rewards", s.awardReward)
			r.Post("/api/admin/coins", s.upsertCoin)
			r.Post("/api/admin/coins/refresh", s.refreshCoins)
		})
	})

	return r
}

// ── Auth ─────────────────────────────────────────────

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// connectWallet resolves a wallet address to a user, creating the account on
// first contact, and issues a session token. Signature verification happens
// on-chain client side; the backend trusts the address as identity.
func (s *Server) connectWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if !addressPattern.MatchString(req.WalletAddress) {
		jsonErr(w, 400, "wallet_address must be a 0x-prefixed 40-hex address")
		return
	}

	user, err := s.store.GetOrCreateUser(r.Context(), req.WalletAddress)
	if err != nil {
		jsonErr(w, 500, "connect failed: "+err.Error())
		return
	}

	if s.adminAddrs[user.WalletAddress] && user.Role != model.RoleAdmin {
		if err := s.store.SetUserRole(r.Context(), user.WalletAddress, model.RoleAdmin); err == nil {
			user.Role = model.RoleAdmin
		}
	}

	token := s.makeToken(user)
	json200(w, map[string]any{"user": user, "token": token})
}

func (s *Server) makeToken(u *model.User) string {
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"addr": u.WalletAddress,
		"role": string(u.Role),
		"exp":  time.Now().Add(72 * time.Hour).Unix(),
	}
	t, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return t
}

// ── Middleware ────────────────────────────────────────

type ctxKey string

const (
	ctxUserID  ctxKey = "userID"
	ctxAddress ctxKey = "address"
	ctxRole    ctxKey = "role"
)

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			jsonErr(w, 401, "missing token")
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			jsonErr(w, 401, "invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			jsonErr(w, 401, "invalid claims")
			return
		}
		userID, _ := claims["sub"].(string)
		address, _ := claims["addr"].(string)
		role, _ := claims["role"].(string)
		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxAddress, address)
		ctx = context.WithValue(ctx, ctxRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ctxRole).(string)
		if role != string(model.RoleAdmin) {
			jsonErr(w, 403, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser loads the authenticated user row.
func (s *Server) currentUser(r *http.Request) (*model.User, error) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	u, err := s.store.GetUser(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, model.ErrNotFound
	}
	return u, nil
}

// ── Helpers ──────────────────────────────────────────

func json200(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func json201(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(201)
	json.NewEncoder(w).Encode(data)
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeErr maps the shared sentinel errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		jsonErr(w, 400, err.Error())
	case errors.Is(err, model.ErrInsufficientBalance):
		jsonErr(w, 400, err.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonErr(w, 404, err.Error())
	case errors.Is(err, model.ErrConflict):
		jsonErr(w, 409, err.Error())
	case errors.Is(err, model.ErrExhausted):
		jsonErr(w, 409, err.Error())
	default:
		jsonErr(w, 500, err.Error())
	}
}
