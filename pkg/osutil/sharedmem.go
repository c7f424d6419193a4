// Copyright 2021 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build linux
// +build linux

package osutil

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// SharedMemDir is where named shared-memory objects are created. Linux
// exposes POSIX shared memory as plain files under /dev/shm, which lets a
// forked child open the same region by name (passed via an environment
// variable) without inheriting an fd across exec.
const SharedMemDir = "/dev/shm"

// CreateNamedMemMappedFile creates (or re-creates) a named shared-memory
// region of the requested size and maps it read-write. name must not
// contain a path separator; the returned file's Name() is
// SharedMemDir+"/"+name.
func CreateNamedMemMappedFile(name string, size int) (f *os.File, mem []byte, err error) {
	path := filepath.Join(SharedMemDir, name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_TRUNC, 0600)
	if err != nil {
		err = fmt.Errorf("failed to create shm object %v: %w", path, err)
		return
	}
	f = os.NewFile(uintptr(fd), path)
	if err = f.Truncate(int64(size)); err != nil {
		err = fmt.Errorf("failed to truncate shm object %v: %w", path, err)
		f.Close()
		os.Remove(path)
		return
	}
	mem, err = syscall.Mmap(fd, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		err = fmt.Errorf("failed to mmap shm object %v: %w", path, err)
		f.Close()
		os.Remove(path)
		return
	}
	return
}

// OpenNamedMemMappedFile opens an existing named shared-memory region
// (created by CreateNamedMemMappedFile, possibly from another process) and
// maps it read-write. This is what a fuzz target's instrumentation runtime
// does in C; nothing in this module calls it.
func OpenNamedMemMappedFile(name string, size int) (f *os.File, mem []byte, err error) {
	path := filepath.Join(SharedMemDir, name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		err = fmt.Errorf("failed to open shm object %v: %w", path, err)
		return
	}
	f = os.NewFile(uintptr(fd), path)
	mem, err = syscall.Mmap(fd, 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		err = fmt.Errorf("failed to mmap shm object %v: %w", path, err)
		f.Close()
		return
	}
	return
}

// CloseNamedMemMappedFile unmaps and closes a region created or opened
// above. If unlink is true, the backing object is also removed from
// SharedMemDir (the owner should do this; openers should not).
func CloseNamedMemMappedFile(f *os.File, mem []byte, unlink bool) error {
	err1 := syscall.Munmap(mem)
	name := f.Name()
	err2 := f.Close()
	var err3 error
	if unlink {
		err3 = os.Remove(name)
	}
	switch {
	case err1 != nil:
		return err1
	case err2 != nil:
		return err2
	default:
		return err3
	}
}
