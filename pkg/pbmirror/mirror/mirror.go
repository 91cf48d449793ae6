package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/types"
)

var (
	// ErrRemoteUnreachable is returned when the remote root itself is
	// missing or not a directory. It aborts the whole sync.
	ErrRemoteUnreachable = errors.New("remote root unreachable")

	// ErrRemoteMissing marks a version whose remote subtree does not exist.
	ErrRemoteMissing = errors.New("remote version folder missing")

	// ErrDirectory marks a directory-level failure that aborts one version.
	ErrDirectory = errors.New("directory operation failed")
)

// Synchronizer mirrors remote version subtrees into a local root.
// A Synchronizer is not safe for concurrent Sync calls.
type Synchronizer struct {
	opts Options
	log  *logging.Logger
}

// New returns a Synchronizer configured with opts.
func New(opts Options) *Synchronizer {
	return &Synchronizer{
		opts: opts,
		log:  logging.Get("mirror"),
	}
}

// SyncAll synchronizes every version in order from remoteRoot/<version> to
// mirrorRoot/<version>. Versions missing on the remote are skipped with a
// warning and a failed version does not stop the others. The returned error
// is non-nil only when the whole operation could not run or ctx was cancelled.
// A version that is not a single directory name, or is listed twice, is
// rejected before anything is touched.
func (s *Synchronizer) SyncAll(ctx context.Context, remoteRoot, mirrorRoot string, versions []types.VersionID) ([]types.SyncResult, error) {
	if err := types.ValidateVersions(versions); err != nil {
		s.log.Error("refusing to sync", "error", err)
		return nil, err
	}

	s.log.Info("initializing mirror", "root", mirrorRoot)

	if _, err := os.Stat(mirrorRoot); os.IsNotExist(err) {
		s.log.Info("creating mirror root", "root", mirrorRoot)
	}
	if err := os.MkdirAll(mirrorRoot, 0o755); err != nil {
		s.log.Error("cannot create mirror root", "root", mirrorRoot, "error", err)
		return nil, fmt.Errorf("%w: creating mirror root %s: %w", ErrDirectory, mirrorRoot, err)
	}

	info, err := os.Stat(remoteRoot)
	if err != nil || !info.IsDir() {
		s.log.Error("remote root does not exist", "root", remoteRoot)
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnreachable, remoteRoot)
	}

	results := make([]types.SyncResult, 0, len(versions))
	for _, v := range versions {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		src := filepath.Join(remoteRoot, string(v))
		dst := filepath.Join(mirrorRoot, string(v))

		if _, err := os.Stat(src); err != nil {
			s.log.Warn("version folder missing on remote", "version", v, "path", src)
			results = append(results, types.SyncResult{
				Version: v,
				Skipped: true,
				Err:     ErrRemoteMissing,
			})
			continue
		}

		results = append(results, s.Sync(ctx, v, src, dst))
	}

	return results, ctx.Err()
}

// Sync makes local an up-to-date copy of remote. The remote subtree is
// never modified. Per-entry failures are collected as warnings; the result
// is unsuccessful only for directory-level failures, a missing remote or
// cancellation.
func (s *Synchronizer) Sync(ctx context.Context, version types.VersionID, remote, local string) types.SyncResult {
	start := time.Now()
	res := types.SyncResult{Version: version}
	log := s.log.With("version", version)

	fail := func(err error) types.SyncResult {
		res.Err = err
		res.Elapsed = time.Since(start)
		if !errors.Is(err, context.Canceled) {
			log.Error("sync failed", "error", err)
		}
		return res
	}

	info, err := os.Stat(remote)
	if err != nil {
		return fail(fmt.Errorf("%w: %s", ErrRemoteMissing, remote))
	}
	if !info.IsDir() {
		return fail(fmt.Errorf("%w: remote %s is not a directory", ErrDirectory, remote))
	}

	log.Info("syncing version", "remote", remote, "local", local)

	if err := ensureDir(local); err != nil {
		return fail(err)
	}

	if err := s.prune(ctx, remote, local, &res); err != nil {
		return fail(err)
	}

	files, bytes, err := s.measure(remote)
	if err != nil {
		return fail(err)
	}
	res.TotalFiles, res.TotalBytes = files, bytes
	log.Info("remote measured",
		"files", humanize.Comma(files),
		"size", types.FormatSize(bytes),
	)

	if err := s.propagate(ctx, remote, local, &res, start); err != nil {
		return fail(err)
	}

	res.Success = true
	res.Elapsed = time.Since(start)
	log.Info("version synced",
		"copied", res.FilesCopied,
		"pruned", res.EntriesPruned,
		"warnings", len(res.Warnings),
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res
}

// ensureDir makes path a directory, replacing a regular file in its way.
func ensureDir(path string) error {
	info, err := os.Lstat(path)
	if err == nil && !info.IsDir() {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: replacing file %s: %w", ErrDirectory, path, err)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrDirectory, path, err)
	}
	return nil
}

func (s *Synchronizer) warn(res *types.SyncResult, op, path string, err error) {
	res.Warnings = append(res.Warnings, types.EntryError{Path: path, Op: op, Err: err})
	s.log.Warn("could not "+op, "version", res.Version, "path", path, "error", err)
}
