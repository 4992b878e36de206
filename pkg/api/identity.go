package api

// AccountResponse представляет учетную запись без пароля
type AccountResponse struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username"`
	Scopes    []string `json:"scopes"` // прямые scope
	Roles     []string `json:"roles"`
	ID        int64    `json:"id"`
	Active    bool     `json:"active"`
}

// CreateAccountRequest представляет запрос POST /users
type CreateAccountRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Scopes    []string `json:"scopes,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// UpdateAccountRequest представляет запрос PATCH /users/{id}
// nil поле означает "не менять"
type UpdateAccountRequest struct {
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Username  *string   `json:"username,omitempty"`
	Password  *string   `json:"password,omitempty"`
	Active    *bool     `json:"active,omitempty"`
	Scopes    *[]string `json:"scopes,omitempty"`
	Roles     *[]string `json:"roles,omitempty"`
	// KeepOldScopes добавляет Scopes/Roles к существующим вместо замены
	KeepOldScopes bool `json:"keep_old_scopes,omitempty"`
}

// ChangePasswordRequest представляет запрос PATCH /users/me
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ScopeRequest представляет запрос на создание или изменение scope
type ScopeRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Value       *string `json:"value,omitempty"` // только при создании
}

// ScopeResponse представляет scope
type ScopeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"`
	ID          int64  `json:"id"`
}

// RoleRequest представляет запрос на создание или изменение роли
type RoleRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Scopes      *[]string `json:"scopes,omitempty"`
}

// RoleResponse представляет роль и выдаваемые ей scope
type RoleResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
	ID          int64    `json:"id"`
}
