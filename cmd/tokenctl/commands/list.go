package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/BradenHooton/deptaccess/internal/models"
)

// TokenLister returns the records currently held by the store
type TokenLister interface {
	ListActive(ctx context.Context) ([]models.ActiveToken, error)
}

// RunList prints every stored token record. Signed tokens are never shown.
func RunList(ctx context.Context, lister TokenLister, out io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokens, err := lister.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}
	if tokens == nil {
		tokens = []models.ActiveToken{}
	}

	if format == FormatJSON {
		return writeJSON(out, map[string]interface{}{
			"tokens": tokens,
			"count":  len(tokens),
		})
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN ID\tDEPARTMENT\tSTATE\tEXPIRES AT")
	for _, token := range tokens {
		fmt.Fprintf(tw, "%s\t%d %s\t%s\t%s\n",
			token.TokenID,
			token.DepartmentID,
			token.DepartmentName,
			tokenState(token.TokenRecord),
			time.UnixMilli(token.ExpiresAt).UTC().Format(time.RFC3339),
		)
	}
	fmt.Fprintf(tw, "\n%d token(s)\n", len(tokens))
	return tw.Flush()
}

func tokenState(record models.TokenRecord) string {
	switch {
	case record.RevokedAt != nil:
		return "revoked"
	case record.IsConsumed():
		return "used"
	default:
		return "unused"
	}
}
