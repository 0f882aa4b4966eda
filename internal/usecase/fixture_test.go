package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"ecorder/internal/domain/model"
	"ecorder/internal/gateway"
	"ecorder/internal/infra/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	customerID int64 = 100
	otherID    int64 = 200
	staffID    int64 = 900
)

// sig=ok のときだけ署名OKとみなすテスト用ゲートウェイ
type fakeAdapter struct {
	method model.PaymentMethod
	urlErr error
}

func (a *fakeAdapter) Method() model.PaymentMethod { return a.method }

func (a *fakeAdapter) PaymentURL(_ context.Context, req gateway.PaymentRequest) (string, error) {
	if a.urlErr != nil {
		return "", a.urlErr
	}
	return "https://pay.example/" + req.OrderRef + "?amount=" + req.Amount.String(), nil
}

func (a *fakeAdapter) DecodeReturn(r *http.Request) (gateway.Fields, error) { return nil, nil }
func (a *fakeAdapter) DecodeIPN(r *http.Request) (gateway.Fields, error)    { return nil, nil }

func (a *fakeAdapter) Verify(f gateway.Fields) (gateway.Callback, error) {
	if f["sig"] != "ok" {
		return gateway.Callback{}, gateway.ErrInvalidSignature
	}
	amount, err := decimal.NewFromString(f["amount"])
	if err != nil {
		return gateway.Callback{}, gateway.ErrMalformedCallback
	}
	return gateway.Callback{
		OrderRef:      f["ref"],
		Amount:        amount,
		TransactionID: f["txn"],
		Success:       f["code"] == "00",
		GatewayCode:   f["code"],
	}, nil
}

func (a *fakeAdapter) Respond(o gateway.Outcome) gateway.IPNResponse {
	return gateway.IPNResponse{ResponseCode: o.String()}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []model.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.OrderEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	loc      model.Location
	shirt    model.ProductVariant // 29.99
	mug      model.ProductVariant // 12.50
	addr     model.Address
	gw       *fakeAdapter
	events   *recordingPublisher
	orders   *OrderUsecase
	payments *PaymentUsecase
	admin    *AdminOrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memory.NewStore()
	loc := s.AddLocation(model.Location{Code: "MAIN", Name: "Main warehouse", IsDefault: true})
	shirt := s.AddVariant(model.ProductVariant{SKU: "TS-RED-M", Name: "T-shirt red M", Price: decimal.RequireFromString("29.99"), IsActive: true})
	mug := s.AddVariant(model.ProductVariant{SKU: "MUG-01", Name: "Mug", Price: decimal.RequireFromString("12.50"), IsActive: true})
	s.SetStock(loc.ID, shirt.ID, 10)
	s.SetStock(loc.ID, mug.ID, 5)
	addr := s.AddAddress(model.Address{
		UserID: customerID, RecipientName: "Nguyen Van A", Phone: "0900000000",
		Detail: "12 Le Loi", WardName: "Ben Nghe", DistrictName: "District 1", ProvinceName: "Ho Chi Minh",
	})

	gw := &fakeAdapter{method: model.PaymentMethodVNPay}
	reg := gateway.NewRegistry(gw)
	pub := &recordingPublisher{}
	log := zap.NewNop()

	f := &fixture{
		store:    s,
		loc:      loc,
		shirt:    shirt,
		mug:      mug,
		addr:     addr,
		gw:       gw,
		events:   pub,
		orders:   NewOrderUsecase(s, reg, pub, log, loc.ID),
		payments: NewPaymentUsecase(s, pub, log),
		admin:    NewAdminOrderUsecase(s, pub, log, loc.ID),
	}
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	f.orders.now = func() time.Time { return fixed }
	return f
}

func (f *fixture) place(t *testing.T, method string, lines ...OrderLineInput) PlaceOrderOutput {
	t.Helper()
	out, err := f.orders.PlaceOrder(context.Background(), customerID, PlaceOrderInput{
		AddressID:     f.addr.ID,
		Shipping:      ShippingOption{ServiceID: "GHN-STD", Fee: decimal.RequireFromString("3.00"), Carrier: "GHN"},
		PaymentMethod: method,
		Items:         lines,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) ipn(o model.Order, code string) gateway.Outcome {
	return f.payments.HandleIPN(context.Background(), f.gw, gateway.Fields{
		"sig":    "ok",
		"ref":    o.OrderNumber,
		"amount": o.TotalAmount.String(),
		"code":   code,
		"txn":    "TXN-" + o.OrderNumber,
	})
}

// 支払い試行の参照を指定して通知する
func (f *fixture) ipnFor(o model.Order, ref, code string) gateway.Outcome {
	return f.payments.HandleIPN(context.Background(), f.gw, gateway.Fields{
		"sig":    "ok",
		"ref":    ref,
		"amount": o.TotalAmount.String(),
		"code":   code,
		"txn":    "TXN-" + ref,
	})
}

func (f *fixture) setStatus(t *testing.T, orderID int64, status string) error {
	t.Helper()
	_, err := f.admin.UpdateOrder(context.Background(), staffID, orderID, AdminUpdateOrderInput{OrderStatus: &status})
	return err
}

func line(v model.ProductVariant, qty int64) OrderLineInput {
	return OrderLineInput{VariantID: v.ID, Quantity: qty}
}

func requireHTTPError(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, status, he.Status, he.Message)
}

var errInjected = errors.New("injected failure")
