package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey    = "user_id"    // int64
	CtxUserRoleKey  = "user_role"  // string
	CtxRequestIDKey = "request_id" // string
)

var errUnauthenticated = errors.New("unauthenticated")

// principal はトークンから取り出した呼び出し元
type principal struct {
	UserID int64
	Role   string
}

// AuthJWT は Bearer トークン（HS256）を検証して user_id / role を context に積む。
// 発行は認証サービス側で、ここでは検証だけ。
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			p, err := verify(raw, keyFunc)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, p.UserID)
			c.Set(CtxUserRoleKey, p.Role)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errUnauthenticated
	}
	return token, nil
}

// sub（数値 or 数字文字列）と role が必須
func verify(raw string, keyFunc jwt.Keyfunc) (principal, error) {
	token, err := jwt.Parse(raw, keyFunc)
	if err != nil || !token.Valid {
		return principal{}, errUnauthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal{}, errUnauthenticated
	}

	var p principal
	switch sub := claims["sub"].(type) {
	case float64:
		p.UserID = int64(sub)
	case string:
		p.UserID, err = strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return principal{}, errUnauthenticated
		}
	}
	if p.UserID <= 0 {
		return principal{}, errUnauthenticated
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return principal{}, errUnauthenticated
	}
	p.Role = strings.ToUpper(role)
	return p, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
