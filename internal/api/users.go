package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	var req struct {
		Username         *string `json:"username"`
		TelegramUsername *string `json:"telegram_username"`
		XUsername        *string `json:"x_username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if req.Username != nil && (*req.Username == "" || len(*req.Username) > 32) {
		jsonErr(w, 400, "username must be 1-32 characters")
		return
	}
	user, err := s.store.UpdateProfile(r.Context(), uid, req.Username,
		req.TelegramUsername, req.XUsername)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, user)
}

// ── Leaderboard ──────────────────────────────────────

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort_by")
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}
	offset := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	rows, err := s.store.Leaderboard(r.Context(), sortBy, limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]any{"leaderboard": rows, "sort_by": sortBy})
}

func (s *Server) myRanking(w http.ResponseWriter, r *http.Request) {
	addr, _ := r.Context().Value(ctxAddress).(string)
	row, rank, err := s.store.UserRanking(r.Context(), addr, r.URL.Query().Get("sort_by"))
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]any{"user": row, "rank": rank})
}

// ── Platform ─────────────────────────────────────────

func (s *Server) platformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPlatformStats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, stats)
}
