package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecorder/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMoMo(endpoint string) *MoMo {
	return NewMoMo(config.MoMoConfig{
		PartnerCode: "MOMOTEST",
		AccessKey:   "access",
		SecretKey:   "momo-secret",
		Endpoint:    endpoint,
		ReturnURL:   "http://localhost:8080/payments/momo/return",
		IPNURL:      "http://localhost:8080/payments/momo/ipn",
	}, nil)
}

func momoIPNBody(m *MoMo, ref string, amount int64, resultCode int) map[string]any {
	body := map[string]any{
		"partnerCode":  "MOMOTEST",
		"orderId":      ref,
		"requestId":    "req-1",
		"amount":       amount,
		"orderInfo":    "Thanh toan don hang",
		"orderType":    "momo_wallet",
		"transId":      int64(4088878653),
		"resultCode":   resultCode,
		"message":      "Successful.",
		"payType":      "qr",
		"responseTime": int64(1735700000000),
		"extraData":    "",
	}
	f := Fields{}
	for k, v := range body {
		f[k] = strings.TrimSpace(jsonString(v))
	}
	body["signature"] = m.sign(m.callbackRaw(f))
	return body
}

func jsonString(v any) string {
	b, _ := json.Marshal(v)
	return strings.Trim(string(b), `"`)
}

func decodeMoMoIPN(t *testing.T, m *MoMo, body map[string]any) Fields {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/payments/momo/ipn", strings.NewReader(string(b)))
	f, err := m.DecodeIPN(req)
	require.NoError(t, err)
	return f
}

func TestMoMoVerify_Success(t *testing.T) {
	m := newTestMoMo("")
	f := decodeMoMoIPN(t, m, momoIPNBody(m, "ORD-20250101-ABCDEF12", 150000, 0))

	cb, err := m.Verify(f)
	require.NoError(t, err)
	assert.True(t, cb.Success)
	assert.Equal(t, "4088878653", cb.TransactionID)
	assert.True(t, cb.Amount.Equal(decimal.NewFromInt(150000)))
	require.NotNil(t, cb.PaidAt)
}

func TestMoMoVerify_Failed(t *testing.T) {
	m := newTestMoMo("")
	f := decodeMoMoIPN(t, m, momoIPNBody(m, "ORD-20250101-ABCDEF12", 150000, 1006))

	cb, err := m.Verify(f)
	require.NoError(t, err)
	assert.False(t, cb.Success)
	assert.Equal(t, "1006", cb.GatewayCode)
}

func TestMoMoVerify_Tampered(t *testing.T) {
	m := newTestMoMo("")
	body := momoIPNBody(m, "ORD-20250101-ABCDEF12", 150000, 0)
	body["amount"] = 1000

	_, err := m.Verify(decodeMoMoIPN(t, m, body))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestMoMoDecodeIPN_BadJSON(t *testing.T) {
	m := newTestMoMo("")
	req := httptest.NewRequest(http.MethodPost, "/payments/momo/ipn", strings.NewReader("{"))
	_, err := m.DecodeIPN(req)
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestMoMoPaymentURL(t *testing.T) {
	var got momoCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 0, PayURL: "https://pay.momo.vn/x"})
	}))
	defer srv.Close()

	m := newTestMoMo(srv.URL)
	u, err := m.PaymentURL(context.Background(), PaymentRequest{
		OrderRef: "ORD-20250101-ABCDEF12",
		Amount:   decimal.RequireFromString("150000.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.momo.vn/x", u)
	assert.Equal(t, int64(150000), got.Amount)
	assert.Equal(t, "ORD-20250101-ABCDEF12", got.OrderID)
	assert.NotEmpty(t, got.Signature)
}

func TestMoMoPaymentURL_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(momoCreateResponse{ResultCode: 11, Message: "denied"})
	}))
	defer srv.Close()

	m := newTestMoMo(srv.URL)
	_, err := m.PaymentURL(context.Background(), PaymentRequest{OrderRef: "ORD-1", Amount: decimal.NewFromInt(1000)})
	require.Error(t, err)
}

func TestMoMoRespond(t *testing.T) {
	m := newTestMoMo("")
	assert.Equal(t, "0", m.Respond(OutcomeAccepted).ResponseCode)
	assert.Equal(t, "13", m.Respond(OutcomeInvalidSignature).ResponseCode)
	assert.Equal(t, "42", m.Respond(OutcomeOrderNotFound).ResponseCode)
	assert.Equal(t, "22", m.Respond(OutcomeAmountMismatch).ResponseCode)
	assert.Equal(t, "41", m.Respond(OutcomeAlreadyResolved).ResponseCode)
	assert.Equal(t, "99", m.Respond(OutcomeInternalError).ResponseCode)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(newTestVNPay(), newTestMoMo(""))

	a, err := r.Get("momo")
	require.NoError(t, err)
	assert.Equal(t, "momo", string(a.Method()))

	_, err = r.Get("paypal")
	assert.ErrorIs(t, err, ErrUnknownGateway)
	assert.Len(t, r.Methods(), 2)
}
