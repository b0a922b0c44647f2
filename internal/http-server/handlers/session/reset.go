package session

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"Panikkar/internal/lib/api/cont"
	"Panikkar/internal/lib/api/response"
	"Panikkar/internal/lib/sl"
)

// ResetSession abandons the phone's current flow without messaging the user.
func ResetSession(log *slog.Logger, handler Core) http.HandlerFunc {
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
		if user := cont.GetUser(r.Context()); user != nil {
			logger = logger.With(slog.String("user", user.Username))
		}

		s, err := handler.ResetSession(r.Context(), phone)
		if err != nil {
			logger.Error("reset session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Reset failed"))
			return
		}
		if s == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Session not found"))
			return
		}
		logger.Info("session reset by admin")

		render.JSON(w, r, response.Ok(s))
	}
}
