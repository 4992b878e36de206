package api

// TokenResponse представляет ответ /oauth/token
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // opaque access token
	TokenType    string `json:"token_type"`    // всегда "bearer"
	RefreshToken string `json:"refresh_token"` // opaque refresh token (одноразовый)
	Scope        string `json:"scope"`         // выданные scope через пробел
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// IntrospectionResponse представляет ответ /oauth/check_token
// Для неактивного токена заполняется только Active
type IntrospectionResponse struct {
	Scope     string `json:"scope,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"` // access_token | refresh_token
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"` // только для access token
	Active    bool   `json:"active"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error       string `json:"error"`                       // короткий код ошибки
	Description string `json:"error_description,omitempty"` // описание для человека
}

// Token types reported by introspection.
const (
	TokenTypeBearer  = "bearer"
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

// Grant types accepted by /oauth/token.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)
