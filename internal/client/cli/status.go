package cli

import (
	"context"
	"errors"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context, _ []string) error {
	session, err := c.authService.Session(ctx)
	if errors.Is(err, auth.ErrNotLoggedIn) {
		c.io.Println("Status: Not authenticated")
		c.io.Println("Run 'authctl login' to authenticate.")
		return nil
	}
	if err != nil {
		return err
	}

	expiresAt := time.Unix(session.ExpiresAt, 0)

	c.io.Println("Status: Authenticated")
	c.io.Printf("Server:   %s\n", session.ServerURL)
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Scope:    %s\n", session.Scope)
	c.io.Printf("Expires:  %s\n", expiresAt.Format(time.RFC3339))

	if remaining := time.Until(expiresAt); remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Access token has expired, it is refreshed on the next request.")
	}
	return nil
}
