package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
)

// Register регистрирует пользователя и возвращает сгенерированный пароль.
//
// Ответы:
//   - 201 Created: {"password": "..."}; пароль показывается один раз;
//   - 400 Bad Request: неверный JSON или не переданы username/email
//     (пустое тело считается пустым объектом);
//   - 409 Conflict: username или email уже заняты;
//   - 500 Internal Server Error: прочие ошибки.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteText(w, http.StatusBadRequest, serr.ErrBadJSON.Error())
		return
	}

	reg, err := h.Svc.Users.Register(r.Context(), req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, serr.ErrValidation):
			WriteText(w, http.StatusBadRequest, serr.MsgUsernameEmailRequired)
		case errors.Is(err, serr.ErrAlreadyExists):
			WriteText(w, http.StatusConflict, serr.ErrAlreadyExists.Error())
		default:
			h.Log.Sugar().Errorf("register failed: %v", err)
			WriteText(w, http.StatusInternalServerError, serr.MsgInternalServerError)
		}
		return
	}

	h.Log.Sugar().Infof("user registered: %s", reg.Username)
	w.Header().Set(CacheControl, "no-store")
	WriteJSON(w, http.StatusCreated, models.RegisterResponse{Password: reg.Password})
}
