package cli

import (
	"context"
	"fmt"

	pkgapi "github.com/wisdom-oss/authorization-service/pkg/api"
)

func (c *Cli) runRoles(ctx context.Context, args []string) error {
	bearer, err := c.authService.AccessToken(ctx)
	if err != nil {
		return err
	}

	sub, rest := subcommand(args)
	switch sub {
	case "list":
		roles, err := c.apiClient.ListRoles(ctx, bearer)
		if err != nil {
			return err
		}
		w := c.table("ID", "NAME", "SCOPES", "DESCRIPTION")
		for _, r := range roles {
			row(w, r.ID, r.Name, joinOrDash(r.Scopes), r.Description)
		}
		return w.Flush()

	case "get":
		ref, err := oneArg(rest, "role id or name")
		if err != nil {
			return err
		}
		role, err := c.apiClient.GetRole(ctx, bearer, ref)
		if err != nil {
			return err
		}
		c.printRole(role)
		return nil

	case "create":
		fs := c.flagSet("roles create")
		name := fs.String("name", "", "Unique role name (required)")
		description := fs.String("description", "", "Description")
		scopes := fs.StringSlice("scope", nil, "Scope granted by the role, repeatable")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("%w: --name is required", ErrUsage)
		}

		role, err := c.apiClient.CreateRole(ctx, bearer, pkgapi.RoleRequest{Name: name, Description: description, Scopes: scopes})
		if err != nil {
			return err
		}
		c.io.Println("✓ Role created")
		c.printRole(role)
		return nil

	case "delete":
		ref, err := oneArg(rest, "role id or name")
		if err != nil {
			return err
		}
		if err := c.apiClient.DeleteRole(ctx, bearer, ref); err != nil {
			return err
		}
		c.io.Printf("✓ Role %s deleted\n", ref)
		return nil

	default:
		return fmt.Errorf("%w: unknown roles subcommand %q", ErrUsage, sub)
	}
}

func (c *Cli) printRole(r *pkgapi.RoleResponse) {
	c.io.Printf("ID:          %d\n", r.ID)
	c.io.Printf("Name:        %s\n", r.Name)
	c.io.Printf("Scopes:      %s\n", joinOrDash(r.Scopes))
	c.io.Printf("Description: %s\n", r.Description)
}
