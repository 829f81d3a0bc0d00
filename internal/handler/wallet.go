package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

func (h *WalletHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Balance)
	r.Get("/transactions", h.History)
	r.Post("/purchase", h.Purchase)

	return r
}

// GET /v1/wallet
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	wallet, err := h.walletService.Balance(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

// GET /v1/wallet/transactions
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	page := ParsePagination(r)

	result, err := h.walletService.History(r.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/wallet/purchase
func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var body struct {
		AmountCents int64 `json:"amountCents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	txn, err := h.walletService.Purchase(r.Context(), user.ID, body.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}
