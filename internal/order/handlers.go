package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avelskoog/storefront/internal/middleware"
	"github.com/avelskoog/storefront/internal/payment"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateOrder)
	r.Get("/", h.ListOrders)
	r.Get("/{uuid}", h.GetOrder)
	r.Put("/{uuid}", h.UpdateOrder)
	r.Delete("/{uuid}", h.DeleteOrder)
	return r
}

type errorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	var gwErr *payment.GatewayError
	var code int
	var kind string
	switch {
	case errors.Is(err, ErrOrderNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, ErrForbidden):
		code, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrRefundDeclined),
		errors.As(err, &gwErr):
		code, kind = http.StatusBadGateway, "bad_gateway"
	case errors.Is(err, ErrBadCart),
		errors.Is(err, ErrMissingCard),
		errors.Is(err, ErrUnknownPayOption),
		errors.Is(err, ErrCancelled),
		errors.Is(err, ErrAlreadyPaid):
		code, kind = http.StatusBadRequest, "bad_request"
	default:
		code, kind = http.StatusInternalServerError, "internal"
		err = errors.New(http.StatusText(http.StatusInternalServerError))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorBody{Message: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadCart)
		return
	}
	o, err := h.svc.Create(r.Context(), p, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, o)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	o, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrBadCart)
		return
	}
	o, err := h.svc.Update(r.Context(), p, chi.URLParam(r, "uuid"), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, o)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	total := r.URL.Query().Get("total") == "true"

	outcome, err := h.svc.Delete(r.Context(), p, chi.URLParam(r, "uuid"), total)
	if err != nil {
		writeError(w, err)
		return
	}
	switch {
	case outcome.Reason != "":
		// Blocked cancel is a success response by contract; callers
		// must inspect the body.
		writeJSON(w, map[string]any{"deleted": false, "reason": outcome.Reason})
	case outcome.Deleted:
		writeJSON(w, map[string]any{"deleted": true, "deletedOrder": outcome.Order})
	default:
		writeJSON(w, outcome.Order)
	}
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

	orders, err := h.svc.List(r.Context(), p, limit, skip)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, orders)
}
