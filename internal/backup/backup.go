// Package backup writes and restores zstd-compressed snapshots of the
// SQLite database file.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/db"
)

// Snapshot writes a consistent copy of the live database to w, taken with
// VACUUM INTO and compressed with zstd.
func Snapshot(ctx context.Context, d *db.DB, w io.Writer) (err error) {
	dir, err := os.MkdirTemp("", "internfinder-backup-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	tmp := filepath.Join(dir, "snapshot.db")
	if _, err := d.Exec(ctx, `VACUUM INTO ?`, tmp); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("flush zstd writer: %w", cerr)
		}
	}()

	if _, err := io.Copy(zw, f); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	return nil
}

// SnapshotFile writes a snapshot to path.
func SnapshotFile(ctx context.Context, d *db.DB, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := Snapshot(ctx, d, out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// Restore decompresses a snapshot from r into dst. A failed restore leaves
// dst untouched. The database must not be open while restoring.
func Restore(r io.Reader, dst string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, copyErr := io.Copy(tmp, zr)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("decompress snapshot: %w", err)
	}

	// stale journals belong to the database being replaced
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(dst + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			os.Remove(tmpName)
			return fmt.Errorf("remove %s: %w", dst+suffix, err)
		}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move restored database into place: %w", err)
	}
	return nil
}

// RestoreFile restores the snapshot stored at src into dst.
func RestoreFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer f.Close()
	return Restore(f, dst)
}
