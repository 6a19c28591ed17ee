// В этом файле описаны методы клиента для эндпоинтов сервера:
// регистрация, выдача токена, JWKS и проверка токена через /me.
package api

import (
	"net/http"
	"strings"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
)

// JWKSPath - путь публикации ключей на сервере.
const JWKSPath = "/.well-known/jwks.json"

// Register регистрирует пользователя. Пароль генерирует сервер
// и возвращает его только в этом ответе.
func (c *Client) Register(username, email string) (models.RegisterResponse, error) {
	var resp models.RegisterResponse
	err := c.PostJSON("/register", models.RegisterRequest{Username: username, Email: email}, &resp)
	return resp, err
}

// Token запрашивает токен через POST /auth.
//
// Если username пустой, токен выписывается на субъекта по умолчанию.
// expired=true запрашивает токен с exp в прошлом.
func (c *Client) Token(username, password string, expired bool) (string, error) {
	path := "/auth"
	if expired {
		path += "?expired=true"
	}

	var modify func(*http.Request)
	if username != "" {
		modify = func(r *http.Request) { r.SetBasicAuth(username, password) }
	}

	tok, err := c.PostText(path, nil, modify)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(tok), nil
}

// JWKS загружает документ /.well-known/jwks.json.
func (c *Client) JWKS() (models.JWKS, error) {
	var resp models.JWKS
	err := c.GetJSON(JWKSPath, &resp, "")
	return resp, err
}

// Me проверяет токен на сервере и возвращает его sub и kid.
func (c *Client) Me(token string) (models.MeResponse, error) {
	var resp models.MeResponse
	err := c.GetJSON("/me", &resp, token)
	return resp, err
}
