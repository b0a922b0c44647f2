package core

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"Panikkar/entity"
)

const adminUsername = "admin"

var ErrUnauthorized = errors.New("unauthorized")

// AuthenticateByToken accepts the configured API key or a key issued through GenerateApiKey.
func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	if c.authKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(c.authKey)) == 1 {
		return &entity.UserAuth{Username: adminUsername, Name: "Administrator", Token: token}, nil
	}
	if c.repo == nil {
		return nil, ErrUnauthorized
	}

	username, err := c.repo.CheckApiKey(token)
	if err != nil {
		return nil, fmt.Errorf("check api key: %w", err)
	}
	if username == "" {
		return nil, ErrUnauthorized
	}
	return &entity.UserAuth{Username: username, Name: username, Token: token}, nil
}

func (c *Core) GenerateApiKey(username string) (string, error) {
	if c.repo == nil {
		return "", errors.New("api keys need the mongo repository")
	}
	return c.repo.GenerateApiKey(username)
}
