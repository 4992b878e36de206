package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern определяет допустимый формат username
// Латинские буквы, цифры, точка, дефис и нижнее подчеркивание
// Длина: 3-64 символа
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,64}$`)

// ScopeValuePattern определяет допустимый формат значения scope
// Значение используется внутри OAuth2 scope строки, поэтому пробелы запрещены
var ScopeValuePattern = regexp.MustCompile(`^[a-zA-Z0-9_:.\-]{1,64}$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 64
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
)

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, dots, hyphens and underscores")
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
	}

	return nil
}

// ValidateScopeValue проверяет значение scope
func ValidateScopeValue(value string) error {
	if value == "" {
		return fmt.Errorf("scope value cannot be empty")
	}

	if !ScopeValuePattern.MatchString(value) {
		return fmt.Errorf("scope value %q can only contain letters, numbers and the characters _ : . -", value)
	}

	return nil
}
