package entity

// UserAuth is the caller identity resolved from an admin API token.
type UserAuth struct {
	Username string `json:"username" bson:"username" validate:"required"`
	Name     string `json:"name" bson:"name" validate:"omitempty"`
	Token    string `json:"token" bson:"token" validate:"required,min=1"`
}
