package api

import (
	"net/http"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/middleware"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
)

// Me возвращает sub и kid проверенного токена.
// Маршрут закрыт AuthMiddleware, так что без валидного Bearer сюда не попасть.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		WriteText(w, http.StatusUnauthorized, serr.MsgUnauthorized)
		return
	}
	kid, _ := middleware.KIDFromContext(r.Context())

	WriteJSON(w, http.StatusOK, models.MeResponse{Subject: sub, KID: kid})
}
