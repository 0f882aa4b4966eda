package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// インフラ側の失敗は1回だけログに出して 500 にする
func dbError(log *zap.Logger, op string, err error) error {
	log.Error("repository failure", zap.String("op", op), zap.Error(err))
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

var (
	errUnauthorized      = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	errNotFound          = NewHTTPError(http.StatusNotFound, "not found")
	errInvalidID         = NewHTTPError(http.StatusBadRequest, "invalid id")
	errInsufficientStock = NewHTTPError(http.StatusConflict, "insufficient stock")
	errInvalidTransition = NewHTTPError(http.StatusConflict, "invalid transition")
	errOrderFinalized    = NewHTTPError(http.StatusConflict, "order is finalized")
)
