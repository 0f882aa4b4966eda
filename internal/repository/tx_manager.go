package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Payments() PaymentRepository
	StatusHistory() OrderStatusHistoryRepository
	Stock() StockRepository
	Carts() CartRepository
	Variants() VariantRepository
	Addresses() AddressRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返す・panicする・ctxが切れた場合はロールバックする。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
