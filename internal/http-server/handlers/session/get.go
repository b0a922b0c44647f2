package session

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"Panikkar/internal/lib/api/response"
	"Panikkar/internal/lib/sl"
)

func GetSession(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone, ok := phoneParam(w, r)
		if !ok {
			return
		}
		logger := log.With(
			sl.Module("http.handlers.session"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("phone", phone),
		)

		s, err := handler.GetSession(r.Context(), phone)
		if err != nil {
			logger.Error("get session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to load session"))
			return
		}
		if s == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Session not found"))
			return
		}

		render.JSON(w, r, response.Ok(s))
	}
}
