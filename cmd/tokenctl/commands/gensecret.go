package commands

import (
	"fmt"
	"io"

	pkgauth "github.com/BradenHooton/deptaccess/pkg/auth"
)

// RunGenSecret prints a fresh JWT signing secret and an admin API key with its bcrypt hash.
// The plain admin key is shown once; only the hash belongs in the server environment.
// The hash is single-quoted so godotenv does not expand its '$' segments.
func RunGenSecret(out io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	jwtSecret, err := pkgauth.GenerateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	adminKey, err := pkgauth.GenerateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate admin key: %w", err)
	}

	adminKeyHash, err := pkgauth.HashAdminKey(adminKey)
	if err != nil {
		return fmt.Errorf("failed to hash admin key: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(out, map[string]string{
			"jwtSecret":       jwtSecret,
			"adminApiKey":     adminKey,
			"adminApiKeyHash": adminKeyHash,
		})
	}

	_, err = fmt.Fprintf(out,
		"JWT_SECRET=%s\nADMIN_API_KEY_HASH='%s'\n\n# Admin API key (give to operators, do not store on the server):\n%s\n",
		jwtSecret, adminKeyHash, adminKey,
	)
	return err
}
