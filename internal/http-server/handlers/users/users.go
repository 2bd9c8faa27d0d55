package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"refgate/entity"
	"refgate/lib/api/response"
	"refgate/lib/sl"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	User(ctx context.Context, userId int64) (*entity.User, error)
}

func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.users"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(response.CodeBadRequest, "Invalid user id"))
			return
		}
		log = log.With(sl.User(id))

		user, err := handler.User(r.Context(), id)
		if errors.Is(err, entity.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error(response.CodeNotFound, "User not found"))
			return
		}
		if err != nil {
			log.Error("get user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.CodeInternal, "User not available"))
			return
		}

		render.JSON(w, r, response.Ok(user))
	}
}
