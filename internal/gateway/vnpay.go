package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"ecorder/internal/config"
	"ecorder/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	vnpVersion    = "2.1.0"
	vnpDateLayout = "20060102150405"
)

// VNPayは GMT+7 で日時を扱う
var vnpLocation = time.FixedZone("ICT", 7*60*60)

type VNPay struct {
	cfg config.VNPayConfig
}

func NewVNPay(cfg config.VNPayConfig) *VNPay {
	return &VNPay{cfg: cfg}
}

func (v *VNPay) Method() model.PaymentMethod { return model.PaymentMethodVNPay }

func (v *VNPay) PaymentURL(_ context.Context, req PaymentRequest) (string, error) {
	if req.OrderRef == "" {
		return "", fmt.Errorf("vnpay: empty order ref")
	}
	created := req.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.In(vnpLocation)

	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	info := req.Description
	if info == "" {
		info = "Thanh toan don hang " + req.OrderRef
	}

	f := Fields{
		"vnp_Version":    vnpVersion,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    v.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount.Mul(decimal.NewFromInt(100)).IntPart(), 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     req.OrderRef,
		"vnp_OrderInfo":  info,
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  v.cfg.ReturnURL,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": created.Format(vnpDateLayout),
		"vnp_ExpireDate": created.Add(15 * time.Minute).Format(vnpDateLayout),
	}

	query := vnpCanonical(f)
	return v.cfg.PayURL + "?" + query + "&vnp_SecureHash=" + v.sign(query), nil
}

func (v *VNPay) DecodeReturn(r *http.Request) (Fields, error) {
	return fieldsFromQuery(r), nil
}

// IPNもGETのクエリで届く
func (v *VNPay) DecodeIPN(r *http.Request) (Fields, error) {
	return fieldsFromQuery(r), nil
}

func (v *VNPay) Verify(f Fields) (Callback, error) {
	got := strings.ToLower(f["vnp_SecureHash"])
	if got == "" {
		return Callback{}, ErrInvalidSignature
	}
	want := v.sign(vnpCanonical(f))
	if !hmac.Equal([]byte(got), []byte(want)) {
		return Callback{}, ErrInvalidSignature
	}

	ref := f["vnp_TxnRef"]
	raw, err := strconv.ParseInt(f["vnp_Amount"], 10, 64)
	if ref == "" || err != nil || raw < 0 {
		return Callback{}, ErrMalformedCallback
	}

	code := f["vnp_ResponseCode"]
	success := code == "00"
	//return URL 側には TransactionStatus が無いこともある
	if st, ok := f["vnp_TransactionStatus"]; ok {
		success = success && st == "00"
	}

	cb := Callback{
		OrderRef:      ref,
		Amount:        decimal.New(raw, -2),
		TransactionID: f["vnp_TransactionNo"],
		Success:       success,
		GatewayCode:   code,
		Message:       vnpMessage(code),
	}
	if t, err := time.ParseInLocation(vnpDateLayout, f["vnp_PayDate"], vnpLocation); err == nil {
		cb.PaidAt = &t
	}
	return cb, nil
}

func (v *VNPay) Respond(o Outcome) IPNResponse {
	var code, msg string
	switch o {
	case OutcomeAccepted:
		code, msg = "00", "Confirm Success"
	case OutcomeInvalidSignature:
		code, msg = "97", "Invalid signature"
	case OutcomeOrderNotFound:
		code, msg = "01", "Order not found"
	case OutcomeAmountMismatch:
		code, msg = "04", "Invalid amount"
	case OutcomeAlreadyResolved:
		code, msg = "02", "Order already confirmed"
	default:
		code, msg = "99", "Unknown error"
	}
	return IPNResponse{
		ResponseCode: code,
		Message:      msg,
		Body:         map[string]string{"RspCode": code, "Message": msg},
	}
}

func (v *VNPay) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// vnp_ で始まる項目をキー順に URL エンコードして連結（署名項目は除く）
func vnpCanonical(f Fields) string {
	keys := make([]string, 0, len(f))
	for k, val := range f {
		if !strings.HasPrefix(k, "vnp_") || k == "vnp_SecureHash" || k == "vnp_SecureHashType" || val == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f[k]))
	}
	return b.String()
}

func vnpMessage(code string) string {
	switch code {
	case "00":
		return "Giao dich thanh cong"
	case "07":
		return "Giao dich bi nghi ngo"
	case "09":
		return "The chua dang ky Internet Banking"
	case "11":
		return "Het han cho thanh toan"
	case "24":
		return "Khach hang huy giao dich"
	case "51":
		return "Tai khoan khong du so du"
	default:
		return "Giao dich that bai"
	}
}
