package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Archiver moves documents out of a watch directory.
type Archiver struct {
	logger *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{logger: logger}
}

// MoveFile moves src into dstDir under name, creating dstDir when missing.
// A rename across devices falls back to copy and delete.
// An existing file of the same name is replaced and a warning is logged.
func (a *Archiver) MoveFile(src, dstDir, name string) (string, error) {
	if err := EnsureDirectoryExists(dstDir); err != nil {
		return "", err
	}
	dst := filepath.Join(filepath.Clean(dstDir), filepath.Base(name))
	if _, err := os.Lstat(dst); err == nil {
		a.logger.Warn("Archiver.MoveFile: replacing existing file", "src", src, "dst", dst)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return dst, nil
	}
	if !isCrossDeviceError(err) {
		return "", fmt.Errorf("failed to move %s: %w", src, err)
	}

	a.logger.Debug("Archiver.MoveFile: cross-device rename, copying instead", "src", src, "dst", dst)
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("failed to remove original file after copy: %w", err)
	}
	return dst, nil
}

// ArchiveName appends a filesystem safe UTC timestamp to the base name: <base>_<ISO-with-dashes><ext>.
func ArchiveName(fileName string, now time.Time) string {
	fileName = filepath.Base(fileName)
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	stamp := now.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return base + "_" + stamp + ext
}

// isCrossDeviceError checks if an error is due to cross-device link (moving across filesystems)
func isCrossDeviceError(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		err = linkErr.Err
	}
	return errors.Is(err, syscall.EXDEV) || (err != nil && strings.Contains(err.Error(), "cross-device link"))
}

func copyFile(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sourceFileStat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}
