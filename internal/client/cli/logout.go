package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisdom-oss/authorization-service/internal/client/auth"
)

func (c *Cli) runLogout(ctx context.Context, _ []string) error {
	err := c.authService.Logout(ctx)

	var revokeErr *auth.RevokeError
	switch {
	case err == nil:
		c.io.Println("✓ Logout successful!")
	case errors.As(err, &revokeErr):
		c.io.Printf("⚠️  %v\n", err)
	default:
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}
