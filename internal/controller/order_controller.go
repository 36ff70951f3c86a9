package controller

import (
	"net/http"

	orderApp "github.com/cassiomorais/ordersaga/internal/application/order"
	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderController struct {
	createUC *orderApp.CreateOrderUseCase
	getUC    *orderApp.GetOrderUseCase
}

func NewOrderController(createUC *orderApp.CreateOrderUseCase, getUC *orderApp.GetOrderUseCase) *OrderController {
	return &OrderController{createUC: createUC, getUC: getUC}
}

// Create handles POST /api/v1/orders.
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := c.createUC.Execute(r.Context(), orderApp.CreateOrderRequest{
		CustomerID:  req.CustomerID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		CardNumber:  req.CardNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(resp.Order))
}

// Get handles GET /api/v1/orders/{id}.
func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("id", "must be a valid UUID"))
		return
	}

	resp, err := c.getUC.Execute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderDetailResponse{
		Order: toOrderResponse(resp.Order),
		Retry: toRetryHistoryResponse(resp.History),
	})
}
