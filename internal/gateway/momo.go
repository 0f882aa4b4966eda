package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecorder/internal/config"
	"ecorder/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// コールバック署名に使う項目（この順で連結する）
var momoCallbackKeys = []string{
	"accessKey", "amount", "extraData", "message", "orderId", "orderInfo",
	"orderType", "partnerCode", "payType", "requestId", "responseTime",
	"resultCode", "transId",
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type MoMo struct {
	cfg    config.MoMoConfig
	client HTTPDoer
}

func NewMoMo(cfg config.MoMoConfig, client HTTPDoer) *MoMo {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &MoMo{cfg: cfg, client: client}
}

func (m *MoMo) Method() model.PaymentMethod { return model.PaymentMethodMoMo }

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

// 署名付きで支払い作成APIを呼び、payUrl を返す
func (m *MoMo) PaymentURL(ctx context.Context, req PaymentRequest) (string, error) {
	info := req.Description
	if info == "" {
		info = "Thanh toan don hang " + req.OrderRef
	}
	body := momoCreateRequest{
		PartnerCode: m.cfg.PartnerCode,
		RequestID:   uuid.NewString(),
		Amount:      req.Amount.IntPart(),
		OrderID:     req.OrderRef,
		OrderInfo:   info,
		RedirectURL: m.cfg.ReturnURL,
		IPNURL:      m.cfg.IPNURL,
		RequestType: "captureWallet",
		Lang:        "vi",
	}
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		m.cfg.AccessKey, body.Amount, body.ExtraData, body.IPNURL, body.OrderID, body.OrderInfo,
		body.PartnerCode, body.RedirectURL, body.RequestID, body.RequestType,
	)
	body.Signature = m.sign(raw)

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("momo create: %w", err)
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("momo create: decode: %w", err)
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return "", fmt.Errorf("momo create: resultCode=%d %s", out.ResultCode, out.Message)
	}
	return out.PayURL, nil
}

func (m *MoMo) DecodeReturn(r *http.Request) (Fields, error) {
	return fieldsFromQuery(r), nil
}

// IPNはJSONのPOST。数値項目も文字列として持つ
func (m *MoMo) DecodeIPN(r *http.Request) (Fields, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	f := Fields{}
	for k, v := range raw {
		if v == nil {
			f[k] = ""
			continue
		}
		f[k] = fmt.Sprint(v)
	}
	return f, nil
}

func (m *MoMo) Verify(f Fields) (Callback, error) {
	got := strings.ToLower(f["signature"])
	if got == "" {
		return Callback{}, ErrInvalidSignature
	}
	want := m.sign(m.callbackRaw(f))
	if !hmac.Equal([]byte(got), []byte(want)) {
		return Callback{}, ErrInvalidSignature
	}

	ref := f["orderId"]
	amount, err := decimal.NewFromString(f["amount"])
	if ref == "" || err != nil || amount.IsNegative() {
		return Callback{}, ErrMalformedCallback
	}

	cb := Callback{
		OrderRef:      ref,
		Amount:        amount,
		TransactionID: f["transId"],
		Success:       f["resultCode"] == "0",
		GatewayCode:   f["resultCode"],
		Message:       f["message"],
	}
	if ms, err := strconv.ParseInt(f["responseTime"], 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms)
		cb.PaidAt = &t
	}
	return cb, nil
}

func (m *MoMo) Respond(o Outcome) IPNResponse {
	var code int
	var msg string
	switch o {
	case OutcomeAccepted:
		code, msg = 0, "Success"
	case OutcomeInvalidSignature:
		code, msg = 13, "Invalid signature"
	case OutcomeOrderNotFound:
		code, msg = 42, "Order not found"
	case OutcomeAmountMismatch:
		code, msg = 22, "Invalid amount"
	case OutcomeAlreadyResolved:
		code, msg = 41, "Order already processed"
	default:
		code, msg = 99, "Unknown error"
	}
	return IPNResponse{
		ResponseCode: strconv.Itoa(code),
		Message:      msg,
		Body: map[string]any{
			"partnerCode": m.cfg.PartnerCode,
			"resultCode":  code,
			"message":     msg,
		},
	}
}

func (m *MoMo) callbackRaw(f Fields) string {
	parts := make([]string, 0, len(momoCallbackKeys))
	for _, k := range momoCallbackKeys {
		v := f[k]
		if k == "accessKey" {
			v = m.cfg.AccessKey
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&")
}

func (m *MoMo) sign(data string) string {
	mac := hmac.New(sha256.New, []byte(m.cfg.SecretKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
