package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"ecorder/internal/domain/model"
	"ecorder/internal/gateway"
	"ecorder/internal/infra/repository/memory"
	"ecorder/internal/middleware"
	"ecorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	customerID int64 = 100
	staffID    int64 = 900
)

// クエリの sig=ok だけを正しい署名とみなす
type stubGateway struct{}

func (stubGateway) Method() model.PaymentMethod { return model.PaymentMethodVNPay }

func (stubGateway) PaymentURL(_ context.Context, req gateway.PaymentRequest) (string, error) {
	return "https://pay.example/" + req.OrderRef, nil
}

func (stubGateway) DecodeReturn(r *http.Request) (gateway.Fields, error) { return queryFields(r), nil }
func (stubGateway) DecodeIPN(r *http.Request) (gateway.Fields, error)    { return queryFields(r), nil }

func (stubGateway) Verify(f gateway.Fields) (gateway.Callback, error) {
	if f["sig"] != "ok" {
		return gateway.Callback{}, gateway.ErrInvalidSignature
	}
	amount, err := decimal.NewFromString(f["amount"])
	if err != nil {
		return gateway.Callback{}, gateway.ErrMalformedCallback
	}
	return gateway.Callback{OrderRef: f["ref"], Amount: amount, Success: f["code"] == "00", GatewayCode: f["code"]}, nil
}

func (stubGateway) Respond(o gateway.Outcome) gateway.IPNResponse {
	return gateway.IPNResponse{ResponseCode: o.String(), Body: map[string]string{"RspCode": o.String()}}
}

func queryFields(r *http.Request) gateway.Fields {
	f := gateway.Fields{}
	for k, v := range r.URL.Query() {
		f[k] = v[0]
	}
	return f
}

type env struct {
	e     *echo.Echo
	store *memory.Store
	loc   model.Location
	mug   model.ProductVariant
	addr  model.Address
}

// 認証の代わりに X-Test-User / X-Test-Role ヘッダから context に詰める
func fakeAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Header.Get("X-Test-User") {
		case "customer":
			c.Set(middleware.CtxUserIDKey, customerID)
			c.Set(middleware.CtxUserRoleKey, "CUSTOMER")
		case "staff":
			c.Set(middleware.CtxUserIDKey, staffID)
			c.Set(middleware.CtxUserRoleKey, middleware.RoleStaff)
		}
		return next(c)
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := memory.NewStore()
	loc := s.AddLocation(model.Location{Code: "MAIN", Name: "Main", IsDefault: true})
	mug := s.AddVariant(model.ProductVariant{SKU: "MUG-01", Name: "Mug", Price: decimal.RequireFromString("12.50"), IsActive: true})
	s.SetStock(loc.ID, mug.ID, 5)
	addr := s.AddAddress(model.Address{UserID: customerID, RecipientName: "A", Phone: "0900", Detail: "1 Street", ProvinceName: "HCM"})

	reg := gateway.NewRegistry(stubGateway{})
	log := zap.NewNop()
	pub := usecase.EventPublisher(nil)

	e := echo.New()
	orders := e.Group("/orders", fakeAuth)
	NewOrderHandler(usecase.NewOrderUsecase(s, reg, pub, log, loc.ID)).RegisterRoutes(orders, middleware.RateLimit(nil, log))
	admin := e.Group("/admin", fakeAuth, middleware.StaffRoleGuard())
	NewAdminOrderHandler(usecase.NewAdminOrderUsecase(s, pub, log, loc.ID)).RegisterRoutes(admin)
	NewPaymentHandler(usecase.NewPaymentUsecase(s, pub, log), reg, log, "https://shop.example", "/checkout/result").RegisterRoutes(e)

	return &env{e: e, store: s, loc: loc, mug: mug, addr: addr}
}

func (v *env) do(method, target, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	v.e.ServeHTTP(rec, req)
	return rec
}

func (v *env) placeBody(method string, qty int64) string {
	b, _ := json.Marshal(map[string]any{
		"addressId":      v.addr.ID,
		"shippingOption": map[string]any{"service_id": "GHN-STD", "fee": "3.00", "carrier": "GHN"},
		"paymentMethod":  method,
		"items":          []map[string]any{{"variantId": v.mug.ID, "quantity": qty}},
	})
	return string(b)
}

type placeResp struct {
	Order      model.Order `json:"order"`
	PaymentURL string      `json:"paymentUrl"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPlaceOrder_HTTP(t *testing.T) {
	v := newEnv(t)

	rec := v.do(http.MethodPost, "/orders", "customer", v.placeBody("vnpay", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[placeResp](t, rec)
	assert.Equal(t, model.OrderStatusPending, out.Order.Status)
	assert.True(t, strings.HasPrefix(out.PaymentURL, "https://pay.example/"+out.Order.OrderNumber+"-P"), out.PaymentURL)
	assert.True(t, out.Order.TotalAmount.Equal(decimal.RequireFromString("28.00")))

	rec = v.do(http.MethodPost, "/orders", "customer", v.placeBody("cod", 9))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient stock", decode[ErrorResponse](t, rec).Error)

	rec = v.do(http.MethodPost, "/orders", "customer", `{"addressId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = v.do(http.MethodPost, "/orders", "", v.placeBody("cod", 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderDetailAndList_HTTP(t *testing.T) {
	v := newEnv(t)
	out := decode[placeResp](t, v.do(http.MethodPost, "/orders", "customer", v.placeBody("cod", 1)))

	rec := v.do(http.MethodGet, "/orders/"+itoa(out.Order.ID), "customer", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = v.do(http.MethodGet, "/orders/abc", "customer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = v.do(http.MethodGet, "/orders?page=1&limit=10", "customer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[usecase.OrderListOutput](t, rec)
	assert.EqualValues(t, 1, list.Total)

	rec = v.do(http.MethodGet, "/orders?page=x", "customer", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIPN_HTTP(t *testing.T) {
	v := newEnv(t)
	out := decode[placeResp](t, v.do(http.MethodPost, "/orders", "customer", v.placeBody("vnpay", 2)))

	q := url.Values{"sig": {"ok"}, "ref": {out.Order.OrderNumber}, "amount": {out.Order.TotalAmount.String()}, "code": {"00"}}
	rec := v.do(http.MethodGet, "/payments/vnpay/ipn?"+q.Encode(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", decode[map[string]string](t, rec)["RspCode"])
	assert.Equal(t, int64(3), v.store.StockOf(v.loc.ID, v.mug.ID))

	//署名NGでも200で応答コードを返す
	q.Set("sig", "bad")
	rec = v.do(http.MethodGet, "/payments/vnpay/ipn?"+q.Encode(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "invalid_signature", decode[map[string]string](t, rec)["RspCode"])

	rec = v.do(http.MethodGet, "/payments/paypal/ipn?"+q.Encode(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentReturn_HTTP(t *testing.T) {
	v := newEnv(t)
	out := decode[placeResp](t, v.do(http.MethodPost, "/orders", "customer", v.placeBody("vnpay", 1)))

	q := url.Values{"sig": {"ok"}, "ref": {out.Order.OrderNumber}, "amount": {out.Order.TotalAmount.String()}, "code": {"00"}}
	rec := v.do(http.MethodGet, "/payments/vnpay/return?"+q.Encode(), "", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "shop.example", loc.Host)
	assert.Equal(t, "/checkout/result", loc.Path)
	assert.Equal(t, itoa(out.Order.ID), loc.Query().Get("orderId"))
	assert.Equal(t, "true", loc.Query().Get("success"))

	//戻りでは状態は変わらない
	o, _ := v.store.Order(out.Order.ID)
	assert.Equal(t, model.OrderStatusPending, o.Status)

	q.Set("sig", "bad")
	rec = v.do(http.MethodGet, "/payments/vnpay/return?"+q.Encode(), "", "")
	loc, _ = url.Parse(rec.Header().Get("Location"))
	assert.Equal(t, "false", loc.Query().Get("success"))
}

func TestAdminOrder_HTTP(t *testing.T) {
	v := newEnv(t)
	out := decode[placeResp](t, v.do(http.MethodPost, "/orders", "customer", v.placeBody("cod", 1)))
	path := "/admin/orders/" + itoa(out.Order.ID)

	rec := v.do(http.MethodPatch, path, "customer", `{"order_status":"confirmed"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = v.do(http.MethodPatch, path, "staff", `{"order_status":"shipped"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = v.do(http.MethodPatch, path, "staff", `{"order_status":"confirmed","notes":"gift wrap"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[usecase.OrderDetailOutput](t, rec)
	assert.Equal(t, model.OrderStatusConfirmed, d.Order.Status)
	assert.Equal(t, "gift wrap", d.Order.Notes)

	rec = v.do(http.MethodGet, "/admin/orders?status=confirmed", "staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[usecase.OrderListOutput](t, rec).Total)

	rec = v.do(http.MethodGet, "/admin/orders?from=yesterday", "staff", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	itemPath := path + "/items/" + itoa(d.Items[0].ID)
	rec = v.do(http.MethodPatch, itemPath, "staff", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d = decode[usecase.OrderDetailOutput](t, rec)
	assert.True(t, d.Order.Subtotal.Equal(decimal.RequireFromString("25.00")))

	rec = v.do(http.MethodPatch, itemPath, "staff", `{"unit_price":"10.00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d = decode[usecase.OrderDetailOutput](t, rec)
	assert.True(t, d.Order.Subtotal.Equal(decimal.RequireFromString("20.00")))

	rec = v.do(http.MethodGet, path, "staff", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminOrder_PaymentStatusBody(t *testing.T) {
	v := newEnv(t)
	out := decode[placeResp](t, v.do(http.MethodPost, "/orders", "customer", v.placeBody("cod", 1)))
	path := "/admin/orders/" + itoa(out.Order.ID)

	rec := v.do(http.MethodPatch, path, "staff", `{"payment_status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[usecase.OrderDetailOutput](t, rec)
	assert.Equal(t, model.PaymentStatusCompleted, d.Order.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, d.Order.Status)

	//キャメルケースのキーは受け付けない
	rec = v.do(http.MethodPatch, path, "staff", `{"orderStatus":"confirmed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
