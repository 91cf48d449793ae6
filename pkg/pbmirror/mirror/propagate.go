package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

// propagate walks the remote subtree in lexical order, creating missing
// directories and copying files that are missing locally or strictly newer
// on the remote.
func (s *Synchronizer) propagate(ctx context.Context, remote, local string, res *types.SyncResult, start time.Time) error {
	remote = filepath.Clean(remote)
	throttle := progress.NewThrottle(s.opts.ProgressInterval)
	label := fmt.Sprintf("[SYNC %s]", res.Version)

	report := func(current, total int64) {
		snap := Progress{
			Version:         res.Version,
			FilesConsidered: current,
			TotalFiles:      total,
			FilesCopied:     res.FilesCopied,
			BytesCopied:     res.BytesCopied,
			Elapsed:         time.Since(start),
		}
		if s.opts.Bar != nil {
			s.opts.Bar.Render(current, total, label, snap.MBps())
		}
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(snap)
		}
	}

	err := filepath.WalkDir(remote, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == remote {
				return fmt.Errorf("%w: reading %s: %w", ErrDirectory, remote, err)
			}
			s.warn(res, "read remote", path, err)
			return nil
		}

		rel, err := filepath.Rel(remote, path)
		if err != nil || rel == "." {
			return nil
		}
		dst := filepath.Join(local, rel)

		if d.IsDir() {
			created, err := mkdir(dst)
			if err != nil {
				s.warn(res, "create directory", rel, err)
				return filepath.SkipDir
			}
			if created {
				res.DirsCreated++
			}
			return nil
		}

		if !d.Type().IsRegular() {
			s.log.Debug("skipping non-regular file", "version", res.Version, "path", rel)
			return nil
		}

		res.FilesConsidered++
		if err := s.syncFile(path, dst, rel, res); err != nil {
			s.warn(res, "copy", rel, err)
		}

		if res.FilesConsidered < res.TotalFiles && throttle.Allow() {
			report(res.FilesConsidered, res.TotalFiles)
		}
		return nil
	})
	if err != nil {
		return err
	}

	report(res.FilesConsidered, res.FilesConsidered)
	return nil
}

// mkdir ensures dir exists and reports whether it had to be created.
func mkdir(dir string) (bool, error) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

// syncFile copies src over dst when dst is missing or older than src.
func (s *Synchronizer) syncFile(src, dst, rel string, res *types.SyncResult) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	dstInfo, err := os.Stat(dst)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	case !srcInfo.ModTime().After(dstInfo.ModTime()):
		return nil
	}

	if err := copyFile(src, dst, srcInfo); err != nil {
		return err
	}

	res.FilesCopied++
	res.BytesCopied += srcInfo.Size()
	s.log.Debug("copied", "version", res.Version, "path", rel, "size", types.FormatSize(srcInfo.Size()))
	return nil
}

// ownerWrite is added to every copy so a read-only remote library can
// still be replaced or pruned later. Windows refuses both on read-only files.
const ownerWrite = 0o200

// copyFile writes src to a temporary file next to dst and renames it into
// place, so dst is never left truncated. The remote modification time is
// kept on the copy so an unchanged file is not copied again.
func copyFile(src, dst string, info fs.FileInfo) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), info.Mode().Perm()|ownerWrite); err != nil {
		return err
	}
	if err = os.Chtimes(tmp.Name(), info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	if st, statErr := os.Lstat(dst); statErr == nil && st.Mode().IsRegular() && st.Mode().Perm()&ownerWrite == 0 {
		_ = os.Chmod(dst, st.Mode().Perm()|ownerWrite)
	}
	return os.Rename(tmp.Name(), dst)
}
