// Package secrets resolves credentials referenced from the configuration:
// ${VAR} environment references and mounted secret files such as Docker or
// Kubernetes secrets. Secret values are never logged.
package secrets

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
)

const (
	// Secrets are tokens and keys, not documents.
	maxSecretFileSize = 64 * 1024

	// filePrefix marks a setting whose value is the path of a secret file.
	filePrefix = "file:"
)

func secretError(msg, operation string) *errors.EnhancedError {
	return errors.Newf("%s", msg).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("operation", operation).
		Build()
}

// ExpandString expands ${VAR} and ${VAR:-default} references. A referenced
// variable that is unset and has no default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", secretError("missing required environment variable(s): "+strings.Join(missing, ", "), "expand")
	}
	return expanded, nil
}

// ReadFile reads a secret file, dropping trailing newlines. Files readable by
// group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", secretError("secret file path is empty", "read_file")
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", secretError("secret file not found: "+cleanPath, "read_file")
		}
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryFileIO).
			Context("operation", "stat").
			Build()
	}
	if !info.Mode().IsRegular() {
		return "", secretError("secret path is not a regular file: "+cleanPath, "read_file")
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError("secret file too large: "+cleanPath, "read_file")
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logging.ForService("secrets").Warn("secret file is readable by group or others",
			"path", cleanPath, "perm", perm.String())
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryFileIO).
			Context("operation", "read_file").
			Build()
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError("secret file is empty: "+cleanPath, "read_file")
	}
	return secret, nil
}

// Resolve returns the secret a setting refers to. "file:<path>" reads the
// file; anything else is expanded for environment references. An empty
// value resolves to empty.
func Resolve(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, filePrefix); ok {
		return ReadFile(path)
	}
	return ExpandString(value)
}

// ResolveAll resolves each field in place and reports every failure, named
// by its key, in one joined error.
func ResolveAll(fields map[string]*string) error {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		field := fields[key]
		if field == nil || *field == "" {
			continue
		}
		resolved, err := Resolve(*field)
		if err != nil {
			errs = append(errs, errors.Newf("%s: %w", key, err).
				Component("secrets").
				Category(errors.CategoryConfiguration).
				Context("setting", key).
				Build())
			continue
		}
		*field = resolved
	}
	return errors.Join(errs...)
}
