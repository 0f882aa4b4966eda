package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	// 注文番号と支払いIDの区切り（注文番号側は16進なので P は現れない）
	paymentRefSep = "-P"
)

var ErrInvalidOrderNumber = errors.New("invalid order number")

// NewOrderNumber は ORD-YYYYMMDD-XXXXXXXX を作る。
// suffixはランダム16進（呼び出し側でUUIDなどから渡す）
func NewOrderNumber(now time.Time, suffix string) string {
	s := strings.ToUpper(strings.ReplaceAll(suffix, "-", ""))
	if len(s) > 8 {
		s = s[:8]
	}
	return orderNumberPrefix + "-" + now.UTC().Format("20060102") + "-" + s
}

// ParseOrderNumber はゲートウェイから戻ってきた参照を検証して正規化する。
func ParseOrderNumber(ref string) (string, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	parts := strings.Split(ref, "-")
	if len(parts) != 3 || parts[0] != orderNumberPrefix {
		return "", ErrInvalidOrderNumber
	}
	if _, err := time.Parse("20060102", parts[1]); err != nil {
		return "", ErrInvalidOrderNumber
	}
	if len(parts[2]) != 8 {
		return "", ErrInvalidOrderNumber
	}
	for _, c := range parts[2] {
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'F') {
			return "", ErrInvalidOrderNumber
		}
	}
	return ref, nil
}

// PaymentRef は決済試行ごとにゲートウェイへ渡す参照（ORD-YYYYMMDD-XXXXXXXX-P<支払いID>）。
// ゲートウェイは同じ参照の再利用を拒否するので、試行ごとに変える。
func PaymentRef(orderNumber string, paymentID int64) string {
	return orderNumber + paymentRefSep + strconv.FormatInt(paymentID, 10)
}

// ParsePaymentRef は参照を注文番号と支払いIDに分ける。
// 支払いIDの無い参照（注文番号だけ）は paymentID=0 で返す。
func ParsePaymentRef(ref string) (orderNumber string, paymentID int64, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if i := strings.LastIndex(ref, paymentRefSep); i >= 0 {
		id, perr := strconv.ParseInt(ref[i+len(paymentRefSep):], 10, 64)
		if perr != nil || id <= 0 {
			return "", 0, ErrInvalidOrderNumber
		}
		ref, paymentID = ref[:i], id
	}
	orderNumber, err = ParseOrderNumber(ref)
	if err != nil {
		return "", 0, err
	}
	return orderNumber, paymentID, nil
}
