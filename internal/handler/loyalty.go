package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/harborstay/loyalty/internal/loyalty"
	"github.com/harborstay/loyalty/internal/model"
	"github.com/harborstay/loyalty/internal/websocket"
)

type LoyaltyHandler struct {
	engine *loyalty.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewLoyaltyHandler(engine *loyalty.Engine, hub *websocket.Hub, logger *slog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{engine: engine, hub: hub, logger: logger}
}

func (h *LoyaltyHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

func (h *LoyaltyHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	account, err := h.engine.CreateAccount(req.MemberID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("account", "created", account.MemberID, nil))

	writeJSON(w, http.StatusCreated, account)
}

type earnRequest struct {
	Amount        float64 `json:"amount"`
	ReferenceType string  `json:"reference_type"`
	ReferenceID   string  `json:"reference_id"`
	Description   string  `json:"description"`
}

func (h *LoyaltyHandler) Earn(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")

	var req earnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tx, err := h.engine.EarnPoints(memberID, req.Amount, req.ReferenceType, req.ReferenceID, req.Description)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("points", "earned", memberID, map[string]any{
		"transaction_id": tx.ID,
		"points":         tx.Points,
	}))

	writeJSON(w, http.StatusCreated, tx)
}

type redeemRequest struct {
	Points        int64  `json:"points"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Description   string `json:"description"`
}

func (h *LoyaltyHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tx, err := h.engine.RedeemPoints(memberID, req.Points, req.ReferenceType, req.ReferenceID, req.Description)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("points", "redeemed", memberID, map[string]any{
		"transaction_id": tx.ID,
		"points":         tx.Points,
	}))

	writeJSON(w, http.StatusCreated, tx)
}

type bonusRequest struct {
	Points        int64  `json:"points"`
	Description   string `json:"description"`
	ExpiresInDays int    `json:"expires_in_days"`
}

func (h *LoyaltyHandler) Bonus(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")

	var req bonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tx, err := h.engine.AddBonusPoints(memberID, req.Points, req.Description, req.ExpiresInDays)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("points", "bonus_added", memberID, map[string]any{
		"transaction_id": tx.ID,
		"points":         tx.Points,
	}))

	writeJSON(w, http.StatusCreated, tx)
}

type adjustRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

func (h *LoyaltyHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	tx, err := h.engine.AdjustPoints(memberID, req.Points, req.Reason)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("points", "adjusted", memberID, map[string]any{
		"transaction_id": tx.ID,
		"points":         tx.Points,
	}))

	writeJSON(w, http.StatusCreated, tx)
}

func (h *LoyaltyHandler) Expire(w http.ResponseWriter, r *http.Request) {
	memberID := r.PathValue("member_id")

	expired, err := h.engine.ExpireOldPoints(memberID)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	if expired > 0 {
		h.broadcast(websocket.NewEvent("points", "expired", memberID, map[string]any{
			"points": expired,
		}))
	}

	writeJSON(w, http.StatusOK, map[string]int64{"expired_points": expired})
}

func (h *LoyaltyHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := h.engine.GetBalance(r.PathValue("member_id"))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *LoyaltyHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit", "code": "InvalidLimit"})
			return
		}
		limit = n
	}

	txs, err := h.engine.GetTransactions(r.PathValue("member_id"), limit)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *LoyaltyHandler) GetTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Schedule().Levels())
}

func (h *LoyaltyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.GetStats()
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
