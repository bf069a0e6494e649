package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/matchmaking"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// ── Matchmaking ──────────────────────────────────────

func (s *Server) requestMatch(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req struct {
		WagerAmount        decimal.Decimal `json:"wager_amount"`
		PositionSize       decimal.Decimal `json:"position_size"`
		UserClass          model.UserClass `json:"user_class"`
		NotificationMethod *string         `json:"notification_method"`
		NotificationHandle *string         `json:"notification_handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if req.UserClass == "" {
		req.UserClass = user.UserClass
	}

	result, err := s.matches.RequestMatch(r.Context(), matchmaking.Request{
		User:               user,
		WagerAmount:        req.WagerAmount,
		PositionSize:       req.PositionSize,
		UserClass:          req.UserClass,
		NotificationMethod: req.NotificationMethod,
		NotificationHandle: req.NotificationHandle,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if result.Matched {
		json200(w, result)
		return
	}
	json201(w, result)
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	entry, err := s.matches.Status(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if entry == nil {
		json200(w, map[string]any{"in_queue": false})
		return
	}
	json200(w, map[string]any{"in_queue": true, "entry": entry})
}

func (s *Server) withdrawQueue(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	if err := s.matches.Withdraw(r.Context(), uid); err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]string{"status": "withdrawn"})
}

func (s *Server) updateQueueNotifications(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	var req struct {
		NotificationMethod *string `json:"notification_method"`
		NotificationHandle *string `json:"notification_handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if err := s.matches.UpdateNotifications(r.Context(), uid, req.NotificationMethod, req.NotificationHandle); err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]string{"status": "updated"})
}

func (s *Server) queueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.QueueStats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, stats)
}

// ── Matches ──────────────────────────────────────────

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	matches, err := s.store.UserMatches(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if matches == nil {
		matches = []model.UserMatch{}
	}
	json200(w, matches)
}

// participantMatch loads a match and checks the caller plays in it.
func (s *Server) participantMatch(r *http.Request) (*model.Match, error) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	m, err := s.store.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, model.ErrNotFound
	}
	if m.Player1ID != uid && (m.Player2ID == nil || *m.Player2ID != uid) {
		return nil, model.ErrNotFound
	}
	return m, nil
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.participantMatch(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, m)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	m, err := s.participantMatch(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	coins, err := s.store.MatchDraft(r.Context(), m.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if coins == nil {
		coins = []model.DraftedCoin{}
	}
	json200(w, coins)
}

const draftRosterSize = 5

// submitDraft stores the caller's roster for a match. The second completed
// roster flips the match active; both players get a push when that happens.
func (s *Server) submitDraft(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	m, err := s.participantMatch(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if m.Status != model.MatchMatched {
		jsonErr(w, 409, "match is not in drafting state")
		return
	}

	var req struct {
		Coins []struct {
			CoinSymbol string `json:"coin_symbol"`
			Position   string `json:"position"`
		} `json:"coins"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if len(req.Coins) != draftRosterSize {
		jsonErr(w, 400, "draft must pick exactly 5 coins")
		return
	}

	drafted := make([]model.DraftedCoin, len(req.Coins))
	seen := make(map[string]bool)
	for i, c := range req.Coins {
		if c.Position != "long" && c.Position != "short" {
			jsonErr(w, 400, "position must be long or short")
			return
		}
		if seen[c.CoinSymbol] {
			jsonErr(w, 400, "duplicate coin "+c.CoinSymbol)
			return
		}
		seen[c.CoinSymbol] = true

		coin, err := s.store.GetCoin(r.Context(), c.CoinSymbol)
		if err != nil {
			writeErr(w, err)
			return
		}
		if coin == nil || !coin.IsAvailable {
			jsonErr(w, 400, "coin not available: "+c.CoinSymbol)
			return
		}
		drafted[i] = model.DraftedCoin{
			MatchID:    m.ID,
			UserID:     uid,
			CoinSymbol: coin.Symbol,
			CoinName:   coin.Name,
			Position:   c.Position,
			DraftOrder: i + 1,
			DraftPrice: coin.CurrentPrice,
		}
	}

	activated, err := s.store.SaveDraft(r.Context(), m.ID, uid, drafted)
	if err != nil {
		writeErr(w, err)
		return
	}

	if activated {
		s.pushToPlayers(r, m, "match_active")
	}
	json201(w, map[string]any{"coins": drafted, "match_activated": activated})
}

// pushToPlayers sends a match event to both participants' sockets.
func (s *Server) pushToPlayers(r *http.Request, m *model.Match, event string) {
	ids := []string{m.Player1ID}
	if m.Player2ID != nil {
		ids = append(ids, *m.Player2ID)
	}
	for _, id := range ids {
		u, err := s.store.GetUser(r.Context(), id)
		if err != nil || u == nil {
			continue
		}
		s.hub.Send(u.WalletAddress, event, m)
	}
}
