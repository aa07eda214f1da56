// Package common has request helpers shared by the API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxIDLength = 128

// GetAndValidateURLParam returns the path-unescaped chi parameter name.
// The value must be non-blank and free of whitespace.
func GetAndValidateURLParam(r *http.Request, name string) (string, error) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	switch {
	case err != nil:
		return "", fmt.Errorf("invalid URL encoding in %s", name)
	case strings.TrimSpace(value) == "":
		return "", fmt.Errorf("%s cannot be empty", name)
	case strings.ContainsAny(value, " \t\n\r"):
		return "", fmt.Errorf("%s cannot contain whitespace", name)
	}
	return value, nil
}

// GetIDParam reads a connection ID from the path. On top of
// GetAndValidateURLParam it rejects path separators, dot segments and IDs
// longer than maxIDLength, since file storage uses IDs as file names.
func GetIDParam(r *http.Request, name string) (string, error) {
	id, err := GetAndValidateURLParam(r, name)
	if err != nil {
		return "", err
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%s is not a valid identifier", name)
	}
	if len(id) > maxIDLength {
		return "", fmt.Errorf("%s cannot be longer than %d characters", name, maxIDLength)
	}
	return id, nil
}
