package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"ecorder/internal/domain/model"
	"ecorder/internal/gateway"
	"ecorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ゲートウェイからのコールバック（IPN とブラウザ戻り）
type PaymentHandler struct {
	uc       *usecase.PaymentUsecase
	gateways *gateway.Registry
	log      *zap.Logger
	// 決済後にブラウザを戻すフロントのURL
	returnURL string
}

func NewPaymentHandler(uc *usecase.PaymentUsecase, gateways *gateway.Registry, log *zap.Logger, feURL, returnPath string) *PaymentHandler {
	return &PaymentHandler{uc: uc, gateways: gateways, log: log, returnURL: feURL + returnPath}
}

// 認証なし。正しさは署名で担保する
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/payments/:gateway")
	// VNPay は GET、MoMo は POST で通知してくる
	g.GET("/ipn", h.ipn)
	g.POST("/ipn", h.ipn)
	g.GET("/return", h.paymentReturn)
}

func (h *PaymentHandler) adapter(c echo.Context) (gateway.Adapter, bool) {
	a, err := h.gateways.Get(model.PaymentMethod(c.Param("gateway")))
	if err != nil {
		return nil, false
	}
	return a, true
}

// IPN はゲートウェイの仕様どおり常に200で応答コードを返す
func (h *PaymentHandler) ipn(c echo.Context) error {
	a, ok := h.adapter(c)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown gateway"})
	}

	fields, err := a.DecodeIPN(c.Request())
	if err != nil {
		h.log.Warn("ipn: undecodable request", zap.String("gateway", string(a.Method())), zap.Error(err))
		return c.JSON(http.StatusOK, a.Respond(gateway.OutcomeInvalidSignature).Body)
	}

	outcome := h.uc.HandleIPN(c.Request().Context(), a, fields)
	return c.JSON(http.StatusOK, a.Respond(outcome).Body)
}

// ブラウザの戻り先。結果をクエリに載せてフロントへ302
func (h *PaymentHandler) paymentReturn(c echo.Context) error {
	a, ok := h.adapter(c)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown gateway"})
	}

	var res usecase.ReturnResult
	fields, err := a.DecodeReturn(c.Request())
	if err != nil {
		res = usecase.ReturnResult{Success: false, Message: "invalid request"}
	} else {
		res = h.uc.DescribeReturn(c.Request().Context(), a, fields)
	}

	q := url.Values{}
	if res.OrderID > 0 {
		q.Set("orderId", strconv.FormatInt(res.OrderID, 10))
	}
	q.Set("success", strconv.FormatBool(res.Success))
	q.Set("message", res.Message)

	return c.Redirect(http.StatusFound, h.returnURL+"?"+q.Encode())
}
