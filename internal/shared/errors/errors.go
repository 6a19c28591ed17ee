// Package errors содержит общие доменные ошибки приложения.
//
// Эти ошибки используются в service, repository и keystore слоях
// и маппятся на HTTP-статусы в api слое.
package errors

import "errors"

// Тексты ответов, которые клиенты сравнивают побайтно.
const (
	MsgUsernameEmailRequired = "Username and email are required."
	MsgTooManyRequests       = "Too Many Requests"
	MsgInternalServerError   = "Internal Server Error"
	MsgUnauthorized          = "Unauthorized"
)

var (
	// Входные данные невалидны (пустые поля, неправильный формат и т.п.)
	ErrInvalidInput = errors.New("invalid input")
	// Не переданы username/email при регистрации
	ErrValidation = errors.New(MsgUsernameEmailRequired)
	// Полученные JSON данные с ошибками
	ErrBadJSON = errors.New("bad json")
	// Неверные учётные данные
	ErrInvalidCredentials = errors.New("invalid credentials")
	// Неавторизован
	ErrUnauthorized = errors.New("unauthorized")
	// Ресурс уже существует (например username уже занят)
	ErrAlreadyExists = errors.New("already exists")
	// Ресурс не найден
	ErrNotFound = errors.New("not found")
	// Получена непредвиденная ошибка
	ErrInternal = errors.New("internal error")
	// Ошибка хранилища (БД недоступна, запись не прошла)
	ErrStorage = errors.New("storage failure")
	// ожидаемая ошибка
	ErrExpectedError = errors.New("expected error")
)

// ключи и токены
var (
	// В хранилище нет ни одного активного ключа
	ErrNoActiveKey = errors.New("no active signing key")
	// Ключ с таким kid не найден
	ErrKeyNotFound = errors.New("signing key not found")
	// Приватная часть ключа испорчена или отсутствует
	ErrSigning = errors.New("signing failure")
	// Превышен лимит запросов
	ErrRateLimited = errors.New(MsgTooManyRequests)
)
