package entity

import (
	"github.com/go-playground/validator/v10"

	"Panikkar/internal/lib/validate"
)

// Category is a trade a worker offers and a job asks for.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Hint  string `json:"hint"`
}

var categories = []Category{
	{ID: "plumber", Title: "Plumber", Hint: "Pipes, taps, tanks"},
	{ID: "electrician", Title: "Electrician", Hint: "Wiring, fans, lights"},
	{ID: "carpenter", Title: "Carpenter", Hint: "Doors, furniture"},
	{ID: "painter", Title: "Painter", Hint: "Walls, polish"},
	{ID: "mason", Title: "Mason", Hint: "Tiles, plastering"},
	{ID: "cleaner", Title: "Cleaner", Hint: "Homes, offices"},
	{ID: "driver", Title: "Driver", Hint: "Cars, autos, vans"},
	{ID: "cook", Title: "Cook", Hint: "Homes, events"},
	{ID: "gardener", Title: "Gardener", Hint: "Lawns, coconut climbing"},
	{ID: "helper", Title: "Helper", Hint: "Loading, shifting, odd jobs"},
}

// Categories returns the supported categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// CategoryByID returns nil for unknown ids.
func CategoryByID(id string) *Category {
	for i := range categories {
		if categories[i].ID == id {
			c := categories[i]
			return &c
		}
	}
	return nil
}

// CategoryTitle returns the display title, or the id itself for unknown ids.
func CategoryTitle(id string) string {
	if c := CategoryByID(id); c != nil {
		return c.Title
	}
	return id
}

func init() {
	validate.Register("category", func(fl validator.FieldLevel) bool {
		return CategoryByID(fl.Field().String()) != nil
	})
}
