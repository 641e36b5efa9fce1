package auth

import (
	"strings"

	"github.com/dmitrijs2005/homesite/internal/common"
)

// ParseBearer extracts the token from an Authorization header value.
// A missing header or an empty token yields common.ErrorAccessDenied;
// any scheme other than Bearer yields common.ErrInvalidToken.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", common.ErrorAccessDenied
	}

	scheme, token, _ := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.ErrorAccessDenied
	}
	if !strings.EqualFold(scheme, common.BearerScheme) {
		return "", common.ErrInvalidToken
	}
	return token, nil
}
