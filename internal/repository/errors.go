package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	//一意制約違反
	ErrDuplicate = errors.New("duplicate")
	//在庫が足りない（条件付き減算が0行）
	ErrInsufficientStock = errors.New("insufficient stock")
)
