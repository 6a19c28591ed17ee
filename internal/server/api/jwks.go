package api

import (
	"net/http"
	"strconv"

	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// JWKS отдаёт /.well-known/jwks.json: публичные части активных ключей.
// На HEAD пишутся только заголовки.
func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Svc.JWKS.Publish()
	if err != nil {
		h.Log.Sugar().Errorf("jwks render failed: %v", err)
		WriteText(w, http.StatusInternalServerError, serr.MsgInternalServerError)
		return
	}

	w.Header().Set(ContentType, JsonContentType)
	w.Header().Set(CacheControl, "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(doc)
}
