package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 32
	// bcrypt не принимает пароли длиннее 72 байт
	MaxPasswordBytes = 72
)

type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	PasswordHash string  `json:"-"`
	Avatar       *string `json:"avatar"`
}

// Credentials логин/пароль из запросов регистрации и входа
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate проверяет данные регистрации.
func (c Credentials) Validate() error {
	var verr ValidationError

	username := strings.TrimSpace(c.Username)
	verr.check(username != "", "username", "field required")
	verr.check(utf8.RuneCountInString(username) <= MaxUsernameLength, "username", "must be at most 32 characters")
	verr.check(!strings.ContainsFunc(username, unicode.IsSpace), "username", "must not contain whitespace")

	verr.check(c.Password != "", "password", "field required")
	verr.check(len(c.Password) <= MaxPasswordBytes, "password", "must be at most 72 bytes")

	if verr.HasErrors() {
		return &verr
	}
	return nil
}
