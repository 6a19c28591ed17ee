// Package models содержит DTO HTTP API, общие для server и agent.
package models

// RegisterRequest - тело запроса регистрации.
//
// Используется в:
//
//	POST /register
//
// Пароль клиент не передаёт: сервер генерирует его сам.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterResponse - ответ на успешную регистрацию.
//
// Password показывается один раз, повторно получить его нельзя.
type RegisterResponse struct {
	Password string `json:"password"`
}

// AuthRequest - необязательное тело запроса POST /auth.
//
// Если username передан, сервер проверяет пароль и выписывает токен
// на этого пользователя. Без тела токен выписывается на субъекта по умолчанию.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MeResponse - ответ GET /me для валидного Bearer токена.
type MeResponse struct {
	Subject string `json:"sub"`
	KID     string `json:"kid"`
}

// JWK - публичный RSA ключ в формате JWK (как его видит клиент).
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS - документ /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}
