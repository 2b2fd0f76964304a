package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AdminAuthenticator resolves the admin token presented by room catalogue
// callers into a Principal.
type AdminAuthenticator struct {
	tokenHash string
	logger    *slog.Logger
}

// NewAdminAuthenticator prepares an authenticator for token. The token may be
// given in plain text or as an encoded argon2id hash. An empty token disables
// admin access entirely.
func NewAdminAuthenticator(token string, params Argon2idParams, logger *slog.Logger) (*AdminAuthenticator, error) {
	auth := &AdminAuthenticator{logger: defaultLogger(logger)}
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return auth, nil
	case strings.HasPrefix(token, "$argon2id$"):
		if _, _, _, err := decodeTokenHash(token); err != nil {
			return nil, fmt.Errorf("admin token hash: %w", err)
		}
		auth.tokenHash = token
	default:
		hash, err := HashCancelToken(token, params)
		if err != nil {
			return nil, fmt.Errorf("hash admin token: %w", err)
		}
		auth.tokenHash = hash
	}
	return auth, nil
}

// Enabled reports whether an admin token is configured.
func (a *AdminAuthenticator) Enabled() bool {
	return a != nil && a.tokenHash != ""
}

// Authenticate checks token and returns the admin principal on success.
func (a *AdminAuthenticator) Authenticate(ctx context.Context, token string) (principal Principal, err error) {
	trimmed := strings.TrimSpace(token)
	logger := serviceLogger(ctx, a.logger, "AdminAuthenticator", "Authenticate", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "admin authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "admin authenticated")
	}()

	if !a.Enabled() || trimmed == "" {
		err = ErrUnauthorized
		return
	}
	if verifyErr := VerifyCancelToken(a.tokenHash, trimmed); verifyErr != nil {
		if errors.Is(verifyErr, ErrInvalidCancelToken) {
			err = ErrUnauthorized
			return
		}
		err = verifyErr
		return
	}
	return Principal{UserID: "admin", IsAdmin: true}, nil
}
