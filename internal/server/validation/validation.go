// Package validation checks user input before it reaches the store.
package validation

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/dmitrijs2005/homesite/internal/common"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// Errors maps a field name to a human-readable problem. It matches
// common.ErrorValidation with errors.Is.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Is(target error) bool {
	return target == common.ErrorValidation
}

// Email reports a problem with an address, or "" when it is acceptable.
// Only bare addresses are accepted, display names are rejected.
func Email(email string) string {
	if email == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "email is not a valid address"
	}
	_, domain, _ := strings.Cut(email, "@")
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "email is not a valid address"
	}
	return ""
}

// Password reports a problem with a password, or "" when it is acceptable.
func Password(password string) string {
	if password == "" {
		return "password is required"
	}
	if len([]rune(password)) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return ""
}

// Credentials validates a registration request. It returns nil or Errors.
func Credentials(email, password string) error {
	errs := Errors{}
	if msg := Email(email); msg != "" {
		errs["email"] = msg
	}
	if msg := Password(password); msg != "" {
		errs["password"] = msg
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
