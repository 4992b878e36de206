// Package cli implements the authctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/wisdom-oss/authorization-service/internal/client/api"
	"github.com/wisdom-oss/authorization-service/internal/client/auth"
	"github.com/wisdom-oss/authorization-service/internal/client/iocli"
)

// PasswordEnv позволяет передать пароль без интерактивного ввода
const PasswordEnv = "AUTHCTL_PASSWORD"

// ErrUsage is returned for unknown commands and bad arguments
var ErrUsage = errors.New("invalid usage")

type Cli struct {
	io          iocli.IO
	apiClient   *api.Client
	authService *auth.Service
}

func New(io iocli.IO, apiClient *api.Client, authService *auth.Service) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		authService: authService,
	}
}

type command struct {
	run     func(ctx context.Context, args []string) error
	summary string
}

func (c *Cli) commands() map[string]command {
	return map[string]command{
		"login":      {run: c.runLogin, summary: "Log in and store the session"},
		"logout":     {run: c.runLogout, summary: "Revoke the session and delete it locally"},
		"status":     {run: c.runStatus, summary: "Show the stored session"},
		"whoami":     {run: c.runWhoami, summary: "Show the logged in account"},
		"passwd":     {run: c.runPasswd, summary: "Change the own password"},
		"introspect": {run: c.runIntrospect, summary: "introspect <token> [--scope S]: check a token"},
		"revoke":     {run: c.runRevoke, summary: "revoke <token>: revoke a token"},
		"scopes":     {run: c.runScopes, summary: "scopes list|get|create|delete"},
		"roles":      {run: c.runRoles, summary: "roles list|get|create|delete"},
		"users":      {run: c.runUsers, summary: "users list|get|create|enable|disable|delete"},
	}
}

// Run executes the command named by args[0]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return ErrUsage
	}

	cmd, ok := c.commands()[args[0]]
	if !ok {
		c.io.Printf("Unknown command: %s\n\n", args[0])
		c.PrintUsage()
		return ErrUsage
	}
	return cmd.run(ctx, args[1:])
}

func (c *Cli) PrintUsage() {
	c.io.Println("authctl - administration client of the authorization service")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  authctl [--server URL] [--db PATH] COMMAND [ARGS]")
	c.io.Println()
	c.io.Println("Commands:")

	cmds := c.commands()
	names := []string{"login", "logout", "status", "whoami", "passwd", "introspect", "revoke", "scopes", "roles", "users"}
	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmds[name].summary)
	}
	_ = w.Flush()

	c.io.Println()
	c.io.Printf("The password is read from %s when set, otherwise it is prompted for.\n", PasswordEnv)
}

func (c *Cli) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.io)
	return fs
}

// readPassword берет пароль из окружения или спрашивает у пользователя
func (c *Cli) readPassword(prompt string) (string, error) {
	if password := os.Getenv(PasswordEnv); password != "" {
		return password, nil
	}
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func (c *Cli) table(header ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(c.io, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	return w
}

func row(w *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprint(col)
	}
	_, _ = fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: expected exactly one %s", ErrUsage, what)
	}
	return args[0], nil
}

func idArg(args []string) (int64, error) {
	raw, err := oneArg(args, "account id")
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: account id must be a positive number", ErrUsage)
	}
	return id, nil
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "list", nil
	}
	return args[0], args[1:]
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, " ")
}
