// HTTP-хендлер выдачи токенов
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/utils"
)

// Auth выдаёт подписанный RS256 токен.
//
// Тело необязательное. Логин и пароль можно передать JSON-ом
// ({"username","password"}) или через Basic Auth; без них токен
// выписывается на субъекта по умолчанию.
// ?expired=true даёт токен с exp в прошлом, подписанный просроченным ключом.
//
// Ответы:
//   - 200 OK: токен текстом;
//   - 400 Bad Request: тело есть, но это не JSON;
//   - 401 Unauthorized: логин передан, пароль не подошёл;
//   - 429 Too Many Requests: лимит окна исчерпан;
//   - 500 Internal Server Error: ошибка ключа или хранилища.
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	var body models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		WriteText(w, http.StatusBadRequest, serr.ErrBadJSON.Error())
		return
	}
	if body.Username == "" {
		if u, p, ok := r.BasicAuth(); ok {
			body.Username, body.Password = u, p
		}
	}

	req := service.IssueRequest{
		IP:       utils.ClientIP(r, h.TrustProxy),
		Username: body.Username,
		Password: body.Password,
		Expired:  expiredFlag(r),
	}

	tok, err := h.Svc.Auth.Issue(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, serr.ErrRateLimited):
			WriteText(w, http.StatusTooManyRequests, serr.MsgTooManyRequests)
		case errors.Is(err, serr.ErrInvalidCredentials):
			WriteText(w, http.StatusUnauthorized, serr.MsgUnauthorized)
		default:
			h.Log.Sugar().Errorf("token issue failed: %v", err)
			WriteText(w, http.StatusInternalServerError, serr.MsgInternalServerError)
		}
		return
	}

	h.Log.LogIssue(tok.KID, tok.Subject, req.IP, tok.Expired)

	w.Header().Set(CacheControl, "no-store")
	WriteText(w, http.StatusOK, tok.Token)
}

// expiredFlag разбирает ?expired=. Непонятное значение считается false.
func expiredFlag(r *http.Request) bool {
	v := r.URL.Query().Get("expired")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
