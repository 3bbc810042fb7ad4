package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink writes a rendered artifact to a path, replacing any existing file.
type Sink interface {
	Write(path, content string) error
}

// Archiver moves a processed input into a directory, replacing any
// same-named file already there.
type Archiver interface {
	Move(src, destDir string) error
}

// FileSink is the production Sink. The write is delete-then-create, not an
// atomic rename; a crash mid-write can leave a truncated artifact, which
// the consumer tolerates by re-reading on the next pair.
type FileSink struct{}

func (FileSink) Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing report: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// DirArchiver is the production Archiver. Rename is attempted first; a
// cross-device move falls back to copy-then-delete.
type DirArchiver struct{}

func (DirArchiver) Move(src, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	dest := filepath.Join(destDir, filepath.Base(src))
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing archived file: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFile(src, dest); err != nil {
		return fmt.Errorf("archive %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after archive copy: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
