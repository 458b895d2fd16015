// Package transfer moves a completed session's data toward permanent
// storage. Two strategies exist: CopyService mirrors the session
// directory to a destination directly, and WatchdogService queues a
// manifest for an external transfer daemon to pick up.
//
// Transfers run as best-effort post-run steps: each is validated before
// use and its failure is logged without blocking the rest of disposal.
package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Transfer is the data-transfer capability.
type Transfer interface {
	// Validate checks the transfer's preconditions without moving data.
	Validate() error
	// Run executes the transfer.
	Run() error
}

// copyFile copies a regular file preserving its permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// copyTree mirrors src into dst, creating directories as needed and
// overwriting existing files.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}
