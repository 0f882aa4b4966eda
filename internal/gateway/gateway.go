// Package gateway は決済ゲートウェイごとの署名・項目名の差を吸収する。
// 照合処理（usecase）は Callback だけを見るのでゲートウェイに依存しない。
package gateway

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"ecorder/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMalformedCallback = errors.New("malformed callback")
	ErrUnknownGateway    = errors.New("unknown gateway")
)

// ゲートウェイから届いた生の項目
type Fields map[string]string

// 正規化したコールバック
type Callback struct {
	OrderRef      string
	Amount        decimal.Decimal
	TransactionID string
	Success       bool
	GatewayCode   string
	Message       string
	PaidAt        *time.Time
}

// IPN処理の結果。ゲートウェイごとの応答コードに変換される。
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeInvalidSignature
	OutcomeOrderNotFound
	OutcomeAmountMismatch
	OutcomeAlreadyResolved
	OutcomeInternalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeInvalidSignature:
		return "invalid_signature"
	case OutcomeOrderNotFound:
		return "order_not_found"
	case OutcomeAmountMismatch:
		return "amount_mismatch"
	case OutcomeAlreadyResolved:
		return "already_resolved"
	default:
		return "internal_error"
	}
}

// IPNへの応答。HTTPステータスは常に200で、Bodyをそのまま返す。
type IPNResponse struct {
	ResponseCode string
	Message      string
	Body         any
}

type PaymentRequest struct {
	OrderRef    string
	Amount      decimal.Decimal
	Description string
	ClientIP    string
	CreatedAt   time.Time
}

type Adapter interface {
	Method() model.PaymentMethod
	// 決済画面のURLを作る
	PaymentURL(ctx context.Context, req PaymentRequest) (string, error)
	DecodeReturn(r *http.Request) (Fields, error)
	DecodeIPN(r *http.Request) (Fields, error)
	// 署名を検証してから Callback に変換する
	Verify(f Fields) (Callback, error)
	Respond(o Outcome) IPNResponse
}

// 決済方法コード → Adapter
type Registry struct {
	adapters map[model.PaymentMethod]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[model.PaymentMethod]Adapter{}}
	for _, a := range adapters {
		r.adapters[a.Method()] = a
	}
	return r
}

func (r *Registry) Get(method model.PaymentMethod) (Adapter, error) {
	if r == nil {
		return nil, ErrUnknownGateway
	}
	a, ok := r.adapters[method]
	if !ok {
		return nil, ErrUnknownGateway
	}
	return a, nil
}

// 有効なオンライン決済方法
func (r *Registry) Methods() []model.PaymentMethod {
	out := make([]model.PaymentMethod, 0, len(r.adapters))
	for m := range r.adapters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// クエリ文字列を Fields に（同じキーは先頭だけ）
func fieldsFromQuery(r *http.Request) Fields {
	f := Fields{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			f[k] = v[0]
		}
	}
	return f
}
