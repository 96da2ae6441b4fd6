// Package postgres opens the connection pools for the contact store and
// extracts driver-level error detail for logs.
package postgres

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultSSLMode applies when neither the DSN nor the configuration names a
// mode: TLS without certificate verification.
const DefaultSSLMode = "require"

// WithSSLMode returns dsn with its sslmode resolved. A non-empty mode replaces
// any sslmode in dsn. An empty mode keeps the sslmode dsn already carries and
// adds DefaultSSLMode only when it has none.
//
// Both URL ("postgres://...") and keyword/value ("host=... dbname=...") forms
// are accepted. Keyword/value strings are edited in place; the rest of the
// string, quoting included, is left as written.
func WithSSLMode(dsn, mode string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		q := u.Query()
		if mode == "" {
			if q.Has("sslmode") {
				return dsn, nil
			}
			mode = DefaultSSLMode
		}
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	start, end, found, err := findKeyword(dsn, "sslmode")
	if err != nil {
		return "", err
	}
	if found {
		if mode == "" {
			return dsn, nil
		}
		return dsn[:start] + "sslmode=" + mode + dsn[end:], nil
	}
	if mode == "" {
		mode = DefaultSSLMode
	}
	sep := " "
	if dsn == "" || strings.HasSuffix(dsn, " ") {
		sep = ""
	}
	return dsn + sep + "sslmode=" + mode, nil
}

// findKeyword locates the byte span of the key=value pair named key in a
// libpq keyword/value connection string.
func findKeyword(dsn, key string) (start, end int, found bool, err error) {
	i := 0
	for {
		for i < len(dsn) && isSpace(dsn[i]) {
			i++
		}
		if i >= len(dsn) {
			return 0, 0, false, nil
		}

		pairStart := i
		for i < len(dsn) && dsn[i] != '=' && !isSpace(dsn[i]) {
			i++
		}
		name := dsn[pairStart:i]
		for i < len(dsn) && isSpace(dsn[i]) {
			i++
		}
		if i >= len(dsn) || dsn[i] != '=' {
			return 0, 0, false, fmt.Errorf("parse database dsn: missing \"=\" after %q", name)
		}
		i++
		for i < len(dsn) && isSpace(dsn[i]) {
			i++
		}

		if i < len(dsn) && dsn[i] == '\'' {
			i++
			for i < len(dsn) && dsn[i] != '\'' {
				if dsn[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(dsn) {
				return 0, 0, false, fmt.Errorf("parse database dsn: unterminated quoted value for %q", name)
			}
			i++
		} else {
			for i < len(dsn) && !isSpace(dsn[i]) {
				if dsn[i] == '\\' {
					i++
				}
				i++
			}
			if i > len(dsn) {
				i = len(dsn)
			}
		}

		if name == key {
			return pairStart, i, true, nil
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
