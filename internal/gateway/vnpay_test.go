package gateway

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ecorder/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVNPay() *VNPay {
	return NewVNPay(config.VNPayConfig{
		TmnCode:    "TESTTMN",
		HashSecret: "vnp-secret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/payments/vnpay/return",
	})
}

// テスト用にゲートウェイ側の署名を付ける
func signVNPay(v *VNPay, f Fields) Fields {
	f["vnp_SecureHash"] = v.sign(vnpCanonical(f))
	return f
}

func vnpIPNFields(ref, amount, code string) Fields {
	return Fields{
		"vnp_TmnCode":           "TESTTMN",
		"vnp_TxnRef":            ref,
		"vnp_Amount":            amount,
		"vnp_ResponseCode":      code,
		"vnp_TransactionStatus": code,
		"vnp_TransactionNo":     "14012345",
		"vnp_OrderInfo":         "Thanh toan don hang",
		"vnp_PayDate":           "20250101103000",
		"vnp_BankCode":          "NCB",
	}
}

func TestVNPayVerify_Success(t *testing.T) {
	v := newTestVNPay()
	f := signVNPay(v, vnpIPNFields("ORD-20250101-ABCDEF12", "15000000", "00"))

	cb, err := v.Verify(f)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250101-ABCDEF12", cb.OrderRef)
	assert.True(t, cb.Amount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, cb.Success)
	assert.Equal(t, "14012345", cb.TransactionID)
	require.NotNil(t, cb.PaidAt)
	assert.Equal(t, 3, cb.PaidAt.UTC().Hour())
}

func TestVNPayVerify_FailureCode(t *testing.T) {
	v := newTestVNPay()
	f := signVNPay(v, vnpIPNFields("ORD-20250101-ABCDEF12", "15000000", "24"))

	cb, err := v.Verify(f)
	require.NoError(t, err)
	assert.False(t, cb.Success)
	assert.Equal(t, "24", cb.GatewayCode)
}

func TestVNPayVerify_Tampered(t *testing.T) {
	v := newTestVNPay()
	f := signVNPay(v, vnpIPNFields("ORD-20250101-ABCDEF12", "15000000", "00"))
	f["vnp_Amount"] = "100"

	_, err := v.Verify(f)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVNPayVerify_MissingHash(t *testing.T) {
	v := newTestVNPay()
	_, err := v.Verify(vnpIPNFields("ORD-20250101-ABCDEF12", "15000000", "00"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVNPayVerify_WrongSecret(t *testing.T) {
	v := newTestVNPay()
	other := NewVNPay(config.VNPayConfig{HashSecret: "other"})
	f := signVNPay(other, vnpIPNFields("ORD-20250101-ABCDEF12", "15000000", "00"))

	_, err := v.Verify(f)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVNPayVerify_Malformed(t *testing.T) {
	v := newTestVNPay()
	f := signVNPay(v, vnpIPNFields("ORD-20250101-ABCDEF12", "abc", "00"))

	_, err := v.Verify(f)
	assert.ErrorIs(t, err, ErrMalformedCallback)
}

func TestVNPayPaymentURL_IsSigned(t *testing.T) {
	v := newTestVNPay()
	created := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)

	raw, err := v.PaymentURL(context.Background(), PaymentRequest{
		OrderRef:  "ORD-20250101-ABCDEF12",
		Amount:    decimal.RequireFromString("150000.00"),
		ClientIP:  "10.0.0.1",
		CreatedAt: created,
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "15000000", q.Get("vnp_Amount"))
	assert.Equal(t, "20250101100000", q.Get("vnp_CreateDate"))

	f := Fields{}
	for k := range q {
		f[k] = q.Get(k)
	}
	cb, err := v.Verify(f)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250101-ABCDEF12", cb.OrderRef)
	assert.False(t, cb.Success)
}

func TestVNPayDecodeIPN_Query(t *testing.T) {
	v := newTestVNPay()
	req := httptest.NewRequest("GET", "/payments/vnpay/ipn?vnp_TxnRef=ORD-1&vnp_Amount=100", nil)

	f, err := v.DecodeIPN(req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", f["vnp_TxnRef"])
}

func TestVNPayRespond(t *testing.T) {
	v := newTestVNPay()
	cases := map[Outcome]string{
		OutcomeAccepted:         "00",
		OutcomeInvalidSignature: "97",
		OutcomeOrderNotFound:    "01",
		OutcomeAmountMismatch:   "04",
		OutcomeAlreadyResolved:  "02",
		OutcomeInternalError:    "99",
	}
	for o, code := range cases {
		res := v.Respond(o)
		assert.Equal(t, code, res.ResponseCode, o.String())
		assert.Equal(t, map[string]string{"RspCode": code, "Message": res.Message}, res.Body)
	}
}
