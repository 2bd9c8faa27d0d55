package errors

import (
	"log/slog"
	"net/http"
	"refgate/lib/api/response"

	"github.com/go-chi/render"
)

func NotAllowed(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error(response.CodeBadRequest, "Method not allowed"))
	}
}
