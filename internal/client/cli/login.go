package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := c.flagSet("login")
	username := fs.StringP("username", "u", "", "Account username")
	scope := fs.String("scope", "", "Space separated scopes to request (default: all granted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		var err error
		if *username, err = c.io.ReadInput("Username: "); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	password, err := c.readPassword("Password: ")
	if err != nil {
		return err
	}

	session, err := c.authService.Login(ctx, *username, password, *scope)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Scope:    %s\n", session.Scope)
	c.io.Printf("Expires:  %s\n", time.Unix(session.ExpiresAt, 0).Format(time.RFC3339))
	return nil
}
