// Package bootstrap prepares the database before the server accepts requests.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/identity"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

const (
	rootUsernameLen = 8
	rootPasswordLen = 32
)

// ErrNoActiveAdmin aborts startup: accounts exist but nobody can administer them.
var ErrNoActiveAdmin = errors.New("database holds accounts but no active administrator")

// Identity is the part of identity.Service used at startup.
type Identity interface {
	CreateScope(ctx context.Context, scope models.Scope) (*models.Scope, error)
	CreateRole(ctx context.Context, role models.Role) (*models.Role, error)
	CreateAccount(ctx context.Context, in identity.NewAccount) (*models.AccountDetails, error)
}

// Bootstrapper ensures reserved scopes, applies the seed and guarantees an administrator.
type Bootstrapper struct {
	logger *slog.Logger
	store  storage.Store
	ident  Identity
	hasher crypto.PasswordHasher
	// randomString is replaceable in tests
	randomString func(n int, alphabet string) (string, error)
}

// New creates a Bootstrapper.
func New(logger *slog.Logger, store storage.Store, ident Identity, hasher crypto.PasswordHasher) *Bootstrapper {
	return &Bootstrapper{
		logger:       logger,
		store:        store,
		ident:        ident,
		hasher:       hasher,
		randomString: crypto.RandomString,
	}
}

// Run prepares the database. seed may be nil.
func (b *Bootstrapper) Run(ctx context.Context, seed *Seed) error {
	if err := b.ensureReservedScopes(ctx); err != nil {
		return err
	}
	if seed != nil {
		if err := b.applySeed(ctx, seed); err != nil {
			return err
		}
	}
	return b.ensureAdmin(ctx)
}

func (b *Bootstrapper) ensureReservedScopes(ctx context.Context) error {
	reserved := []models.Scope{
		{Name: "Administration", Description: "full access to the authorization service", Value: models.AdminScope},
		{Name: "Own account", Description: "access to the own account and tokens", Value: models.SelfScope},
	}
	for i := range reserved {
		created, err := b.store.EnsureScope(ctx, &reserved[i])
		if err != nil {
			return fmt.Errorf("ensure scope %q: %w", reserved[i].Value, err)
		}
		if created {
			b.logger.InfoContext(ctx, "reserved scope created", slog.String("scope", reserved[i].Value))
		}
	}
	return nil
}

func (b *Bootstrapper) applySeed(ctx context.Context, seed *Seed) error {
	for _, s := range seed.Scopes {
		_, err := b.ident.CreateScope(ctx, models.Scope{Name: s.Name, Description: s.Description, Value: s.Value})
		if err = skipDuplicate(err); err != nil {
			return fmt.Errorf("seed scope %q: %w", s.Value, err)
		}
	}

	for _, r := range seed.Roles {
		_, err := b.ident.CreateRole(ctx, models.Role{Name: r.Name, Description: r.Description, Scopes: r.Scopes})
		if err = skipDuplicate(err); err != nil {
			return fmt.Errorf("seed role %q: %w", r.Name, err)
		}
	}

	for _, c := range seed.Clients {
		hash, err := b.hasher.Hash(c.Secret)
		if err != nil {
			return fmt.Errorf("hash secret of client %q: %w", c.ClientID, err)
		}
		client := &models.ClientCredential{ClientID: c.ClientID, SecretHash: hash, Description: c.Description}
		if err := b.store.UpsertClientCredential(ctx, client); err != nil {
			return fmt.Errorf("seed client %q: %w", c.ClientID, err)
		}
		b.logger.InfoContext(ctx, "message bus client registered", slog.String("client_id", c.ClientID))
	}
	return nil
}

// skipDuplicate turns an already existing entry into success.
func skipDuplicate(err error) error {
	if e, ok := identity.AsError(err); ok && e.Code == identity.CodeDuplicateEntry {
		return nil
	}
	return err
}

func (b *Bootstrapper) ensureAdmin(ctx context.Context) error {
	accounts, err := b.store.CountAccounts(ctx)
	if err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}

	if accounts > 0 {
		admins, err := b.store.CountActiveAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count administrators: %w", err)
		}
		if admins == 0 {
			return ErrNoActiveAdmin
		}
		return nil
	}

	username, err := b.randomString(rootUsernameLen, crypto.AlphabetUsername)
	if err != nil {
		return fmt.Errorf("generate root username: %w", err)
	}
	password, err := b.randomString(rootPasswordLen, crypto.AlphabetPassword)
	if err != nil {
		return fmt.Errorf("generate root password: %w", err)
	}

	account, err := b.ident.CreateAccount(ctx, identity.NewAccount{
		FirstName: "System",
		LastName:  "Administrator",
		Username:  username,
		Password:  password,
		Scopes:    []string{models.AdminScope, models.SelfScope},
	})
	if err != nil {
		return fmt.Errorf("create root administrator: %w", err)
	}

	// пароль выводится один раз и больше нигде не хранится в открытом виде
	b.logger.WarnContext(ctx, "created root administrator, change the password after the first login",
		slog.Int64("account_id", account.ID),
		slog.String("username", username),
		slog.String("password", password),
	)
	return nil
}
