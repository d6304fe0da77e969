package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/posxchange/src/exchange"
)

// ValidatePath normalizes path, rejects traversal segments and probes read access.
// It returns the cleaned path.
func ValidatePath(path string) (string, error) {
	clean, err := checkTraversal(path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(clean)
	if err != nil {
		return "", mapFSError(err, clean)
	}
	f.Close()
	return clean, nil
}

// EnsureDirectoryExists creates path and its parents. An existing directory is not an error.
func EnsureDirectoryExists(path string) error {
	clean, err := checkTraversal(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return mapFSError(err, clean)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return mapFSError(err, clean)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", exchange.ErrInvalidPath, clean)
	}
	return nil
}

// checkTraversal rejects paths with a ".." segment, before or after normalization.
func checkTraversal(path string) (string, error) {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q", exchange.ErrInvalidPath, path)
	}
	for _, segment := range strings.FieldsFunc(path, isSeparator) {
		if segment == ".." {
			return "", fmt.Errorf("%w: %s", exchange.ErrPathTraversal, path)
		}
	}
	clean := filepath.Clean(path)
	for _, segment := range strings.FieldsFunc(clean, isSeparator) {
		if segment == ".." {
			return "", fmt.Errorf("%w: %s", exchange.ErrPathTraversal, path)
		}
	}
	return clean, nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

func mapFSError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", exchange.ErrFileNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", exchange.ErrPermissionDenied, path)
	default:
		return fmt.Errorf("%w: %s: %v", exchange.ErrInvalidPath, path, err)
	}
}
