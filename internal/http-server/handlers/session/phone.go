package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"Panikkar/bot/chat"
	"Panikkar/internal/lib/api/response"
)

// phoneParam reads the {phone} route parameter and answers 400 when it is not a phone number.
func phoneParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	phone := chi.URLParam(r, "phone")
	if !chat.IsValidPhone(phone) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("Invalid phone number"))
		return "", false
	}
	return phone, true
}
