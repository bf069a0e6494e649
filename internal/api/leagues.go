package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

func (s *Server) availableLeagues(w http.ResponseWriter, r *http.Request) {
	class := model.UserClass(r.URL.Query().Get("class"))
	if class == "" {
		user, err := s.currentUser(r)
		if err != nil {
			writeErr(w, err)
			return
		}
		class = user.UserClass
	}
	leagues, err := s.leagues.Available(r.Context(), class)
	if err != nil {
		writeErr(w, err)
		return
	}
	if leagues == nil {
		leagues = []model.League{}
	}
	json200(w, leagues)
}

func (s *Server) myLeagues(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	leagues, err := s.leagues.Mine(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if leagues == nil {
		leagues = []model.League{}
	}
	json200(w, leagues)
}

func (s *Server) getLeague(w http.ResponseWriter, r *http.Request) {
	l, err := s.leagues.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if l == nil {
		jsonErr(w, 404, "league not found")
		return
	}
	json200(w, l)
}

func (s *Server) joinLeague(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	l, err := s.leagues.Join(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	json201(w, l)
}

func (s *Server) leagueParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := s.leagues.Participants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if parts == nil {
		parts = []model.LeagueParticipant{}
	}
	json200(w, parts)
}

func (s *Server) leagueRankings(w http.ResponseWriter, r *http.Request) {
	parts, err := s.leagues.Rankings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if parts == nil {
		parts = []model.LeagueParticipant{}
	}
	json200(w, parts)
}

// ── Admin ────────────────────────────────────────────

func (s *Server) createLeague(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeagueClass     model.UserClass `json:"league_class"`
		MaxParticipants int             `json:"max_participants"`
		SeasonStart     time.Time       `json:"season_start"`
		SeasonEnd       time.Time       `json:"season_end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	l, err := s.leagues.Create(r.Context(), req.LeagueClass, req.MaxParticipants,
		req.SeasonStart, req.SeasonEnd)
	if err != nil {
		writeErr(w, err)
		return
	}
	json201(w, l)
}
