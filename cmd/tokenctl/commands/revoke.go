package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotRevoked is returned when the token was unknown, expired or already consumed
var ErrNotRevoked = errors.New("token not found or already revoked")

// TokenRevoker consumes a token without granting access
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string) (bool, error)
}

// RunRevoke revokes a single token by id
func RunRevoke(ctx context.Context, revoker TokenRevoker, out io.Writer, tokenID, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return fmt.Errorf("token id is required")
	}

	revoked, err := revoker.Revoke(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !revoked {
		return fmt.Errorf("%s: %w", tokenID, ErrNotRevoked)
	}

	if format == FormatJSON {
		return writeJSON(out, map[string]interface{}{
			"success": true,
			"tokenId": tokenID,
		})
	}

	_, err = fmt.Fprintf(out, "Token %s has been revoked\n", tokenID)
	return err
}
