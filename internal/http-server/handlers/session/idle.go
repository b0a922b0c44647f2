package session

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"Panikkar/internal/lib/api/response"
	"Panikkar/internal/lib/sl"
)

const defaultIdleMinutes = 30

// IdleSessions lists sessions inside a flow that have not moved for ?minutes= (default 30).
func IdleSessions(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.session"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		minutes := defaultIdleMinutes
		if raw := r.URL.Query().Get("minutes"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("minutes must be a non-negative number"))
				return
			}
			minutes = n
		}

		sessions, err := handler.IdleSessions(r.Context(), time.Duration(minutes)*time.Minute)
		if err != nil {
			logger.Error("list idle sessions", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to list sessions"))
			return
		}

		render.JSON(w, r, response.Ok(sessions))
	}
}
