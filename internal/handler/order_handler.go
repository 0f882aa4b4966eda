package handler

import (
	"net/http"

	"ecorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type ShippingOptionRequest struct {
	ServiceID string          `json:"service_id"`
	Fee       decimal.Decimal `json:"fee"`
	Carrier   string          `json:"carrier"`
}

type OrderItemRequest struct {
	VariantID int64 `json:"variantId"`
	Quantity  int64 `json:"quantity"`
}

type OrderCreateRequest struct {
	AddressID      int64                 `json:"addressId"`
	ShippingOption ShippingOptionRequest `json:"shippingOption"`
	PaymentMethod  string                `json:"paymentMethod"`
	Notes          string                `json:"notes"`
	Items          []OrderItemRequest    `json:"items"`
}

// g は認証済みグループ（/orders）
func (h *OrderHandler) RegisterRoutes(g *echo.Group, placeLimit echo.MiddlewareFunc) {
	g.POST("", h.create, placeLimit)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.POST("/:id/payments", h.retryPayment, placeLimit)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	items := make([]usecase.OrderLineInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderLineInput{VariantID: it.VariantID, Quantity: it.Quantity})
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		AddressID: req.AddressID,
		Shipping: usecase.ShippingOption{
			ServiceID: req.ShippingOption.ServiceID,
			Fee:       req.ShippingOption.Fee,
			Carrier:   req.ShippingOption.Carrier,
		},
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         items,
		ClientIP:      c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	page, limit, ok := parsePaging(c, 20)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid paging"})
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 決済をやり直すための新しいURLを発行する
func (h *OrderHandler) retryPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.RetryPayment(c.Request().Context(), userID, id, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
