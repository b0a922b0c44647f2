package media

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Panikkar/internal/lib/sl"
)

type Core interface {
	VerifyMediaLink(fileID, expires, sig string) bool
	OpenMedia(fileID string) (string, string, io.ReadCloser, error)
}

// Download streams a stored file to holders of a signed link.
// Endpoint: GET /media/{file_id}?expires=&sig=
func Download(log *slog.Logger, handler Core) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.media"))
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "file_id")
		q := r.URL.Query()
		if !handler.VerifyMediaLink(fileID, q.Get("expires"), q.Get("sig")) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		filename, mimeType, reader, err := handler.OpenMedia(fileID)
		if err != nil {
			logger.Error("failed to open file", slog.String("file_id", fileID), sl.Err(err))
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer reader.Close()

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))

		if _, err := io.Copy(w, reader); err != nil {
			logger.Error("failed to stream file", slog.String("file_id", fileID), sl.Err(err))
		}
	}
}
