package report

import (
	"context"
	"log/slog"
	"net/http"
	"refgate/entity"
	"refgate/lib/api/response"
	"refgate/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	AdminReport(ctx context.Context) (*entity.Report, error)
}

func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.report"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		rep, err := handler.AdminReport(r.Context())
		if err != nil {
			log.Error("admin report", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.CodeInternal, "Report not available"))
			return
		}
		log.With(
			slog.Int64("admitted", rep.Admitted),
			slog.Int("capacity", rep.Capacity),
		).Debug("admin report")

		render.JSON(w, r, response.Ok(rep))
	}
}
