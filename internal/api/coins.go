package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

func (s *Server) listCoins(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 500 {
		limit = n
	}
	offset := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	coins, err := s.store.ListCoins(r.Context(), limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	if coins == nil {
		coins = []model.Coin{}
	}
	json200(w, coins)
}

func (s *Server) getCoin(w http.ResponseWriter, r *http.Request) {
	coin, err := s.store.GetCoin(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if coin == nil {
		jsonErr(w, 404, "coin not found")
		return
	}
	json200(w, coin)
}

// ── Admin ────────────────────────────────────────────

func (s *Server) upsertCoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol       string          `json:"symbol"`
		Name         string          `json:"name"`
		CurrentPrice decimal.Decimal `json:"current_price"`
		Change24h    decimal.Decimal `json:"change_24h"`
		MarketCap    decimal.Decimal `json:"market_cap"`
		IsAvailable  bool            `json:"is_available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if req.Symbol == "" || req.Name == "" {
		jsonErr(w, 400, "symbol and name required")
		return
	}
	coin := &model.Coin{
		Symbol: req.Symbol, Name: req.Name, CurrentPrice: req.CurrentPrice,
		Change24h: req.Change24h, MarketCap: req.MarketCap, IsAvailable: req.IsAvailable,
	}
	if err := s.store.UpsertCoin(r.Context(), coin); err != nil {
		writeErr(w, err)
		return
	}
	json201(w, coin)
}

// refreshCoins forces one price-walk pass outside the scheduled sweep.
func (s *Server) refreshCoins(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.RefreshPrices(r.Context(), priceJitter)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.metrics.PriceRefreshes.Inc()
	json200(w, map[string]any{"updated": n})
}

// priceJitter yields a move in [-0.05, 0.05).
func priceJitter() float64 {
	return (rand.Float64() - 0.5) * 0.1
}
