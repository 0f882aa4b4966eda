package model

import "github.com/shopspring/decimal"

// 通貨の小数桁（VND/JPYでも2桁で保存して丸めで吸収する）
const MoneyScale int32 = 2

// RoundMoney は金額を通貨精度に丸める。
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// MoneyEqual は通貨精度で丸めたうえで一致するか。
func MoneyEqual(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}
