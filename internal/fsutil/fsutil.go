// Package fsutil provides the filesystem and subprocess helpers task
// actions use to do real work: copy, move, delete, and run.
//
// These are not part of the engine itself — the engine never copies,
// moves, deletes, or shells out on a task's behalf — but task authors
// need exactly this helper set to build actions with, so it ships
// alongside the engine. Logging follows the leveled-logger convention
// in internal/xlog.
package fsutil

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Nikerino/xtask/internal/xlog"
)

// Copy copies src to dst. If src is a regular file, it is written to
// dst, or into dst under its own base name when dst is an existing
// directory. If src is a directory, its contents are merged into dst,
// which is created if absent. A directory src with an existing
// non-directory dst is an error, as is a src that is neither a regular
// file nor a directory.
func Copy(logger *xlog.Logger, src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	dstInfo, dstErr := os.Stat(dst)
	dstExists := dstErr == nil

	switch {
	case srcInfo.Mode().IsRegular() && dstExists && dstInfo.IsDir():
		return Copy(logger, src, filepath.Join(dst, filepath.Base(src)))
	case srcInfo.Mode().IsRegular():
		return copyFile(logger, src, dst)
	case srcInfo.IsDir() && (!dstExists || dstInfo.IsDir()):
		return copyTree(logger, src, dst)
	default:
		return errors.New("fsutil: cannot copy " + src + " to " + dst)
	}
}

func copyFile(logger *xlog.Logger, src, dst string) error {
	if logger != nil {
		logger.Debug("copying file", "from", src, "to", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dst + ".xtask-tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func copyTree(logger *xlog.Logger, src, dst string) error {
	if logger != nil {
		logger.Debug("copying tree", "from", src, "to", dst)
	}
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
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(nil, path, target)
	})
}

// Move moves src to dst, following the same file-into-directory and
// directory-merge rules as Copy.
func Move(logger *xlog.Logger, src, dst string) error {
	if logger != nil {
		logger.Debug("moving", "from", src, "to", dst)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if dstInfo, dstErr := os.Stat(dst); dstErr == nil && dstInfo.IsDir() && srcInfo.Mode().IsRegular() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Cross-device rename: fall back to copy-then-delete.
	if err := Copy(logger, src, dst); err != nil {
		return err
	}
	return Delete(logger, src)
}

// Delete removes path, file or directory tree, doing nothing if it does
// not exist.
func Delete(logger *xlog.Logger, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if logger != nil {
		logger.Debug("deleting", "path", path)
	}
	return os.RemoveAll(path)
}

// Run executes command in the current working directory, streaming its
// stdout/stderr through, and returns an error if it exits non-zero. The
// engine itself imposes no timeout on actions; a task wanting one should
// build its own exec.CommandContext call instead of using Run.
func Run(logger *xlog.Logger, command string, args ...string) error {
	if logger != nil {
		logger.Info("running command", "command", command, "args", args)
	}
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}
