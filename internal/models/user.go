package models

// Account представляет учетную запись пользователя
type Account struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"` // уникальный username
	PasswordHash string `json:"-"`        // PHC строка argon2id или bcrypt хеш
	ID           int64  `json:"id"`       // внутренний числовой id
	IsActive     bool   `json:"active"`   // отключенный аккаунт не может получать и использовать токены
}

// AccountDetails is an account together with its direct assignments.
type AccountDetails struct {
	Account
	Scopes []string `json:"scopes"`
	Roles  []string `json:"roles"`
}

// Scope представляет право доступа
type Scope struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Value       string `json:"value"` // уникальная строка внутри OAuth2 scope
	ID          int64  `json:"id"`
}

// Role представляет набор scope, назначаемый пользователю
type Role struct {
	Name        string   `json:"name"` // уникальное имя
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"` // значения scope, выдаваемые ролью
	ID          int64    `json:"id"`
}

// ClientCredential authenticates a message bus client.
type ClientCredential struct {
	ClientID    string `json:"client_id"`
	SecretHash  string `json:"-"`
	Description string `json:"description"`
	ID          int64  `json:"id"`
	CreatedAt   int64  `json:"created_at"`
}
