// Adapted from https://github.com/thought-machine/please
// Copyright Thought Machine, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fsutil holds the filesystem primitives the cache layer needs to
// archive and restore task outputs: a godirwalk-based recursive walk and
// copy, used when hydrating a cache hit's outputs back into a project's
// working tree.
//
// Adapted from turbo's cli/internal/fs/copy_file.go (itself adapted
// from thoughtmachine/please), trimmed to the walk/copy primitives the
// cache needs and given the CopyFile/DirPermissions helpers that package
// relied on from a sibling file this module doesn't carry.
package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// DirPermissions is the mode used for directories created while restoring
// a cached output tree.
const DirPermissions = 0755

// RecursiveCopy copies either a single file or a directory tree from
// `from` into `to`, preserving relative structure. `mode` is applied to
// every destination file.
func RecursiveCopy(from, to string, mode os.FileMode) error {
	info, err := os.Lstat(from)
	if err != nil {
		return err
	}

	isSymlink := info.Mode()&os.ModeSymlink == os.ModeSymlink
	isSymlinkToDir := false
	if isSymlink {
		if target, statErr := os.Stat(from); statErr == nil {
			isSymlinkToDir = target.IsDir()
		}
	}

	if info.IsDir() || isSymlinkToDir {
		return WalkMode(from, func(name string, isDir bool, _ os.FileMode) error {
			dest := filepath.Join(to, name[len(from):])
			if isDir {
				return os.MkdirAll(dest, DirPermissions)
			}
			return CopyFile(name, dest, mode)
		})
	}
	return CopyFile(from, to, mode)
}

// CopyFile copies a single file from src to dst, creating dst's parent
// directory if needed, and sets dst's mode.
func CopyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), DirPermissions); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Chmod(mode)
}

// Walk implements an equivalent to filepath.Walk using godirwalk.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	return WalkMode(rootPath, func(name string, isDir bool, _ os.FileMode) error {
		return callback(name, isDir)
	})
}

// WalkMode is like Walk but the callback also receives the entry's mode
// type bits (not permission bits).
func WalkMode(rootPath string, callback func(name string, isDir bool, mode os.FileMode) error) error {
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		Callback: func(name string, info *godirwalk.Dirent) error {
			isDir, err := info.IsDirOrSymlinkToDir()
			if err != nil {
				pathErr := &os.PathError{}
				if errors.As(err, &pathErr) {
					return godirwalk.SkipThis
				}
				return err
			}
			return callback(name, isDir, info.ModeType())
		},
		ErrorCallback: func(_ string, err error) godirwalk.ErrorAction {
			pathErr := &os.PathError{}
			if errors.As(err, &pathErr) {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Unsorted:            true,
		AllowNonDirectory:   true,
		FollowSymbolicLinks: false,
	})
}
