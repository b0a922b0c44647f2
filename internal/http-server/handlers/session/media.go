package session

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"Panikkar/internal/lib/api/response"
	"Panikkar/internal/lib/sl"
)

// SessionMedia returns a signed link to the photo held by an unfinished registration.
func SessionMedia(log *slog.Logger, handler Core) http.HandlerFunc {
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

		link, err := handler.SessionMedia(r.Context(), phone)
		if err != nil {
			logger.Error("session media", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to sign media link"))
			return
		}
		if link == "" {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("No media in this session"))
			return
		}

		render.JSON(w, r, response.Ok(map[string]string{"url": link}))
	}
}
