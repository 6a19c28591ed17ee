// Package api содержит HTTP-клиент для взаимодействия с JWKS сервером.
//
// Клиент инкапсулирует базовый URL сервера и настроенный http.Client,
// предоставляя методы для JSON-запросов и для эндпоинтов с текстовым ответом
// (POST /auth возвращает токен обычным текстом).
//
// Особенности:
//   - baseURL нормализуется (обрезаются завершающие "/").
//   - Заголовок Content-Type: application/json добавляется только при наличии тела запроса.
//   - Пустое тело ответа (EOF при декодировании) не считается ошибкой.
//   - При ошибочных ответах (не 2xx) возвращается *APIError с кодом и текстом тела.
//
// ВНИМАНИЕ: при insecure=true TLS сертификат не проверяется.
// Это допустимо только для разработки и локального окружения.
package api

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError - ответ сервера с кодом не 2xx.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Client реализует HTTP-клиент для общения с JWKS сервером.
//
// Поля:
//   - baseURL: базовый адрес сервера без завершающего слэша.
//   - http: настроенный http.Client (таймаут, транспорт, TLS).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт новый HTTP-клиент для общения с сервером.
//
// Параметры:
//   - baseURL: базовый адрес сервера (например: "http://127.0.0.1:8080");
//   - insecure: не проверять TLS сертификат (самоподписанный сертификат в dev).
func NewClient(baseURL string, insecure bool) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // только для dev
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: tr,
		},
	}
}

// BaseURL возвращает адрес сервера без завершающего слэша.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient возвращает настроенный http.Client (нужен для загрузки JWKS).
func (c *Client) HTTPClient() *http.Client { return c.http }

// readAPIErrorBody читает тело ответа сервера и возвращает *APIError.
//
// Если тело пустое, в Message кладётся res.Status.
func readAPIErrorBody(res *http.Response) error {
	raw, _ := io.ReadAll(res.Body)
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = res.Status
	}
	return &APIError{Status: res.StatusCode, Message: msg}
}

// decodeJSONOrOK декодирует JSON из r в resp.
// Пустое тело (io.EOF) ошибкой не считается.
func decodeJSONOrOK(r io.Reader, resp any) error {
	if resp == nil {
		return nil
	}
	err := json.NewDecoder(r).Decode(resp)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (c *Client) do(method, path string, req any, accept string, modify func(*http.Request)) (*http.Response, error) {
	var body io.Reader
	if req != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(req); err != nil {
			return nil, err
		}
		body = &buf
	}

	r, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Accept", accept)
	if req != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if modify != nil {
		modify(r)
	}

	res, err := c.http.Do(r)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		return nil, readAPIErrorBody(res)
	}
	return res, nil
}

// PostJSON выполняет POST-запрос, сериализуя req в JSON, и декодирует JSON-ответ в resp.
func (c *Client) PostJSON(path string, req any, resp any) error {
	res, err := c.do(http.MethodPost, path, req, "application/json", nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	return decodeJSONOrOK(res.Body, resp)
}

// PostText выполняет POST-запрос и возвращает тело ответа как строку.
//
// modify позволяет дописать заголовки (например Basic Auth).
func (c *Client) PostText(path string, req any, modify func(*http.Request)) (string, error) {
	res, err := c.do(http.MethodPost, path, req, "text/plain", modify)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetJSON выполняет GET-запрос и декодирует JSON-ответ.
// Если authToken непустой, добавляется Authorization: Bearer <token>.
func (c *Client) GetJSON(path string, resp any, authToken string) error {
	res, err := c.do(http.MethodGet, path, nil, "application/json", func(r *http.Request) {
		if authToken != "" {
			r.Header.Set("Authorization", "Bearer "+authToken)
		}
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	return decodeJSONOrOK(res.Body, resp)
}

// GetRaw выполняет GET-запрос и возвращает тело ответа без разбора.
func (c *Client) GetRaw(path string) ([]byte, error) {
	res, err := c.do(http.MethodGet, path, nil, "application/json", nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}
