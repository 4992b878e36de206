package cli

import (
	"context"
	"fmt"

	pkgapi "github.com/wisdom-oss/authorization-service/pkg/api"
)

func (c *Cli) runUsers(ctx context.Context, args []string) error {
	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	sub, rest := subcommand(args)
	switch sub {
	case "list":
		users, err := c.apiClient.ListUsers(ctx, bearer)
		if err != nil {
			return err
		}
		w := c.table("ID", "USERNAME", "ACTIVE", "SCOPES", "ROLES")
		for _, u := range users {
			row(w, u.ID, u.Username, u.Active, joinOrDash(u.Scopes), joinOrDash(u.Roles))
		}
		return w.Flush()

	case "get":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		user, err := c.apiClient.GetUser(ctx, bearer, id)
		if err != nil {
			return err
		}
		c.printAccount(user)
		return nil

	case "create":
		fs := c.flagSet("users create")
		username := fs.String("username", "", "Username (required)")
		firstName := fs.String("first-name", "", "First name")
		lastName := fs.String("last-name", "", "Last name")
		scopes := fs.StringSlice("scope", nil, "Directly assigned scope, repeatable")
		roles := fs.StringSlice("role", nil, "Assigned role, repeatable")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *username == "" {
			return fmt.Errorf("%w: --username is required", ErrUsage)
		}
		password, err := c.readPassword("Password for " + *username + ": ")
		if err != nil {
			return err
		}

		user, err := c.apiClient.CreateUser(ctx, bearer, pkgapi.CreateAccountRequest{
			FirstName: *firstName,
			LastName:  *lastName,
			Username:  *username,
			Password:  password,
			Scopes:    *scopes,
			Roles:     *roles,
		})
		if err != nil {
			return err
		}
		c.io.Println("✓ Account created")
		c.printAccount(user)
		return nil

	case "enable", "disable":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		user, err := c.apiClient.SetUserActive(ctx, bearer, id, sub == "enable")
		if err != nil {
			return err
		}
		c.io.Printf("✓ Account %s %sd\n", user.Username, sub)
		return nil

	case "delete":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		if err := c.apiClient.DeleteUser(ctx, bearer, id); err != nil {
			return err
		}
		c.io.Printf("✓ Account %d deleted\n", id)
		return nil

	default:
		return fmt.Errorf("%w: unknown users subcommand %q", ErrUsage, sub)
	}
}

func (c *Cli) printAccount(a *pkgapi.AccountResponse) {
	c.io.Printf("ID:       %d\n", a.ID)
	c.io.Printf("Username: %s\n", a.Username)
	if a.FirstName != "" || a.LastName != "" {
		c.io.Printf("Name:     %s %s\n", a.FirstName, a.LastName)
	}
	c.io.Printf("Active:   %t\n", a.Active)
	c.io.Printf("Scopes:   %s\n", joinOrDash(a.Scopes))
	c.io.Printf("Roles:    %s\n", joinOrDash(a.Roles))
}
