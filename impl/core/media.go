package core

import (
	"errors"
	"io"
	"time"

	"Panikkar/internal/lib/fileurl"
)

// MediaLink signs a relative /media link for a stored file.
func (c *Core) MediaLink(fileID string) (string, error) {
	if c.mediaSecret == "" {
		return "", errors.New("media signing secret is not configured")
	}
	return fileurl.SignURL(fileID, c.mediaSecret, c.mediaTTL), nil
}

// VerifyMediaLink checks the query parameters of a signed link.
func (c *Core) VerifyMediaLink(fileID, expires, sig string) bool {
	return fileurl.Verify(fileID, expires, sig, c.mediaSecret)
}

func (c *Core) OpenMedia(fileID string) (string, string, io.ReadCloser, error) {
	if c.media == nil {
		return "", "", nil, errors.New("media storage is not configured")
	}
	return c.media.Open(fileID)
}

// MediaTTL is how long signed links stay valid.
func (c *Core) MediaTTL() time.Duration {
	return c.mediaTTL
}
