package cli

import (
	"context"
	"fmt"

	pkgapi "github.com/wisdom-oss/authorization-service/pkg/api"
)

func (c *Cli) runScopes(ctx context.Context, args []string) error {
	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	sub, rest := subcommand(args)
	switch sub {
	case "list":
		scopes, err := c.apiClient.ListScopes(ctx, bearer)
		if err != nil {
			return err
		}
		w := c.table("ID", "VALUE", "NAME", "DESCRIPTION")
		for _, s := range scopes {
			row(w, s.ID, s.Value, s.Name, s.Description)
		}
		return w.Flush()

	case "get":
		ref, err := oneArg(rest, "scope id or value")
		if err != nil {
			return err
		}
		scope, err := c.apiClient.GetScope(ctx, bearer, ref)
		if err != nil {
			return err
		}
		c.printScope(scope)
		return nil

	case "create":
		fs := c.flagSet("scopes create")
		value := fs.String("value", "", "Scope value used in token scope strings (required)")
		name := fs.String("name", "", "Human readable name (default: value)")
		description := fs.String("description", "", "Description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *value == "" {
			return fmt.Errorf("%w: --value is required", ErrUsage)
		}

		req := pkgapi.ScopeRequest{Value: value, Description: description}
		if *name != "" {
			req.Name = name
		}
		scope, err := c.apiClient.CreateScope(ctx, bearer, req)
		if err != nil {
			return err
		}
		c.io.Println("✓ Scope created")
		c.printScope(scope)
		return nil

	case "delete":
		ref, err := oneArg(rest, "scope id or value")
		if err != nil {
			return err
		}
		if err := c.apiClient.DeleteScope(ctx, bearer, ref); err != nil {
			return err
		}
		c.io.Printf("✓ Scope %s deleted\n", ref)
		return nil

	default:
		return fmt.Errorf("%w: unknown scopes subcommand %q", ErrUsage, sub)
	}
}

func (c *Cli) printScope(s *pkgapi.ScopeResponse) {
	c.io.Printf("ID:          %d\n", s.ID)
	c.io.Printf("Value:       %s\n", s.Value)
	c.io.Printf("Name:        %s\n", s.Name)
	c.io.Printf("Description: %s\n", s.Description)
}
