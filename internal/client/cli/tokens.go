package cli

import (
	"context"
	"fmt"
	"time"

	pkgapi "github.com/wisdom-oss/authorization-service/pkg/api"
)

func (c *Cli) runWhoami(ctx context.Context, _ []string) error {
	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	me, err := c.apiClient.Me(ctx, bearer)
	if err != nil {
		return err
	}
	c.printAccount(me)
	return nil
}

func (c *Cli) runPasswd(ctx context.Context, _ []string) error {
	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	oldPassword, err := c.io.ReadPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	newPassword, err := c.io.ReadPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := c.io.ReadPassword("Repeat new password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if newPassword != confirm {
		return fmt.Errorf("passwords do not match")
	}

	req := pkgapi.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := c.apiClient.ChangePassword(ctx, bearer, req); err != nil {
		return err
	}
	c.io.Println("✓ Password changed")
	return nil
}

func (c *Cli) runIntrospect(ctx context.Context, args []string) error {
	fs := c.flagSet("introspect")
	scope := fs.String("scope", "", "Space separated scopes the token must carry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := oneArg(fs.Args(), "token")
	if err != nil {
		return err
	}

	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}
	info, err := c.apiClient.CheckToken(ctx, bearer, token, *scope)
	if err != nil {
		return err
	}

	if !info.Active {
		c.io.Println("Active: false")
		return nil
	}
	c.io.Println("Active: true")
	c.io.Printf("Type:     %s\n", info.TokenType)
	c.io.Printf("Username: %s\n", info.Username)
	c.io.Printf("Scope:    %s\n", info.Scope)
	c.io.Printf("Expires:  %s\n", time.Unix(info.Exp, 0).Format(time.RFC3339))
	if info.Iat != 0 {
		c.io.Printf("Issued:   %s\n", time.Unix(info.Iat, 0).Format(time.RFC3339))
	}
	return nil
}

func (c *Cli) runRevoke(ctx context.Context, args []string) error {
	token, err := oneArg(args, "token")
	if err != nil {
		return err
	}

	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}
	if err := c.apiClient.Revoke(ctx, bearer, token); err != nil {
		return err
	}
	c.io.Println("✓ Token revoked")
	return nil
}
