package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"refgate/entity"
	"refgate/lib/api/response"
	"refgate/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	ForceAccess(ctx context.Context, userId int64) (*entity.AccessResult, error)
}

// Force issues an invite without the referral requirement. Domain outcomes
// (must register, already admitted, capacity exceeded) are successful responses
// carrying the status.
func Force(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.access"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.AccessRequest
		if err := render.Bind(r, &req); err != nil {
			log.Warn("invalid request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.CodeBadRequest, fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		log = log.With(sl.User(req.UserId))

		result, err := handler.ForceAccess(r.Context(), req.UserId)
		if err != nil {
			log.Error("force access", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.CodeInternal, "Access request failed"))
			return
		}
		log.With(slog.String("status", string(result.Status))).Info("force access")

		render.JSON(w, r, response.Ok(result))
	}
}
