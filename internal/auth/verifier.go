package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingIdentity = errors.New("client id is required")
	ErrMissingToken    = errors.New("token is required")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSubjectMismatch = errors.New("token subject does not match client id")
)

// Identity is who a caller claims to be after authentication.
type Identity struct {
	ClientID string
	Name     string
}

// Verifier turns a claimed client id and an optional bearer token into an
// Identity. Without a secret the client id is trusted as is.
type Verifier struct {
	cfg      *JWTConfig
	required bool
}

// NewVerifier builds a verifier. A nil cfg or empty secret disables token
// checks; required then has no effect.
func NewVerifier(cfg *JWTConfig, required bool) *Verifier {
	return &Verifier{cfg: cfg, required: required}
}

// Enabled reports whether tokens are verified.
func (v *Verifier) Enabled() bool {
	return v != nil && v.cfg != nil && len(v.cfg.Secret) > 0
}

// Authenticate resolves the caller. When a token is present its subject
// must equal clientID; an empty clientID is taken from the subject. name
// overrides the token's name claim.
func (v *Verifier) Authenticate(clientID, name, token string) (Identity, error) {
	id := Identity{ClientID: strings.TrimSpace(clientID), Name: strings.TrimSpace(name)}
	token = strings.TrimSpace(token)

	if !v.Enabled() {
		if id.ClientID == "" {
			return Identity{}, ErrMissingIdentity
		}
		return id, nil
	}

	if token == "" {
		if v.required {
			return Identity{}, ErrMissingToken
		}
		if id.ClientID == "" {
			return Identity{}, ErrMissingIdentity
		}
		return id, nil
	}

	claims, err := ValidateToken(v.cfg, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if id.ClientID == "" {
		id.ClientID = claims.Subject
	}
	if claims.Subject != id.ClientID {
		return Identity{}, ErrSubjectMismatch
	}
	if id.Name == "" {
		id.Name = claims.Name
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
