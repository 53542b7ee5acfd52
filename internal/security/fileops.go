package security

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// CreateSecureFile creates a new file with the given permissions atomically,
// failing if it already exists.
func CreateSecureFile(filename string, mode os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create secure file %s: %w", filename, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		os.Remove(filename)
		return nil, fmt.Errorf("failed to verify file permissions: %w", err)
	}

	// umask may have narrowed the mode; widen back only to what was asked.
	if info.Mode().Perm() != mode.Perm() {
		if err := file.Chmod(mode); err != nil {
			file.Close()
			os.Remove(filename)
			return nil, fmt.Errorf("file permissions not set correctly: expected %v, got %v", mode, info.Mode())
		}
	}

	return file, nil
}

// CreateSecureFileForAppend opens filename for appending, creating it with
// mode if needed. An existing file is brought back to mode first.
func CreateSecureFileForAppend(filename string, mode os.FileMode) (*os.File, error) {
	if _, err := os.Stat(filename); err == nil {
		if err := VerifyFilePermissions(filename, mode); err != nil {
			return nil, fmt.Errorf("existing file has insecure permissions: %w", err)
		}
		return os.OpenFile(filename, os.O_WRONLY|os.O_APPEND, mode)
	}
	return CreateSecureFile(filename, mode)
}

// VerifyFilePermissions checks that filename has expectedMode and fixes it if not
func VerifyFilePermissions(filename string, expectedMode os.FileMode) error {
	info, err := os.Stat(filename)
	if err != nil {
		return err
	}

	if info.Mode().Perm() != expectedMode.Perm() {
		return os.Chmod(filename, expectedMode)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempPath := path + ".tmp." + generateRandomSuffix()
	file, err := CreateSecureFile(tempPath, mode)
	if err != nil {
		return err
	}
	defer os.Remove(tempPath) // no-op once renamed

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// WriteSecureTempFile writes data to a fresh 0600 file in dir (os.TempDir
// when empty). The returned cleanup removes it.
func WriteSecureTempFile(dir, prefix string, data []byte) (path string, cleanup func(), err error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path = filepath.Join(dir, prefix+generateRandomSuffix())

	file, err := CreateSecureFile(path, 0600)
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.Remove(path) }

	if _, err := file.Write(data); err != nil {
		file.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, cleanup, nil
}

// generateRandomSuffix generates a random suffix for temporary files
func generateRandomSuffix() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", os.Getpid())
	}
	return fmt.Sprintf("%x", bytes)
}
