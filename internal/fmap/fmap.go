/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package fmap exposes the entire access log as an immutable byte range
// (spec.md §4.1), generalizing the teacher's ipexist/mmap.go from raw
// syscall.Syscall calls to the portable golang.org/x/sys/unix wrappers.
// Gzip/bzip2 input is transparently inflated to a temp file first (spec.md
// §4.12) so every caller downstream still just sees a flat byte range.
package fmap

import (
	"compress/bzip2"
	"errors"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"

	"github.com/gravwell/apathy/internal/apathyerr"
)

// ErrEmptyFile is returned when the input file has zero length; there is no
// first line to infer roles from.
var ErrEmptyFile = errors.New("fmap: input file is empty")

// File is a memory-resident, read-only view of the (possibly decompressed)
// access log.
type File struct {
	Bytes []byte

	raw     *os.File
	tmp     *os.File // non-nil if Bytes came from an inflated temp copy
	mapped  bool
}

// Open maps path into memory, transparently decompressing gzip/bzip2 input
// into a temp file first.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apathyerr.IO("fmap.go", 0, "Open", "opening input file", err)
	}

	kind, err := filetype.MatchFile(path)
	if err != nil {
		f.Close()
		return nil, apathyerr.IO("fmap.go", 0, "Open", "sniffing input file type", err)
	}

	switch kind.MIME.Subtype {
	case "gzip":
		return openCompressed(f, func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) })
	case "x-bzip2":
		return openCompressed(f, func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil })
	default:
		return openPlain(f)
	}
}

func openCompressed(f *os.File, newReader func(io.Reader) (io.Reader, error)) (*File, error) {
	defer f.Close()
	r, err := newReader(f)
	if err != nil {
		return nil, apathyerr.IO("fmap.go", 0, "openCompressed", "initializing decompressor", err)
	}
	tmp, err := os.CreateTemp("", "apathy-*.log")
	if err != nil {
		return nil, apathyerr.IO("fmap.go", 0, "openCompressed", "creating scratch file", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, apathyerr.IO("fmap.go", 0, "openCompressed", "inflating input", err)
	}
	return mapHandle(tmp, tmp)
}

func openPlain(f *os.File) (*File, error) {
	return mapHandle(f, nil)
}

// mapHandle mmaps fio (the handle actually backing the bytes) for reading;
// tmp, if non-nil, is removed on Close since it's a scratch decompression
// copy rather than the user's own file.
func mapHandle(fio *os.File, tmp *os.File) (*File, error) {
	fi, err := fio.Stat()
	if err != nil {
		return nil, apathyerr.IO("fmap.go", 0, "mapHandle", "stat of input file", err)
	}
	if fi.Size() == 0 {
		return nil, ErrEmptyFile
	}
	b, err := unix.Mmap(int(fio.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, apathyerr.Resource("fmap.go", 0, "mapHandle", "mmap of input file", err)
	}
	unix.Madvise(b, unix.MADV_SEQUENTIAL)
	unix.Madvise(b, unix.MADV_WILLNEED)
	return &File{Bytes: b, raw: fio, tmp: tmp, mapped: true}, nil
}

// Close unmaps the file and releases any scratch decompression copy.
func (f *File) Close() error {
	if !f.mapped {
		return nil
	}
	f.mapped = false
	err := unix.Munmap(f.Bytes)
	f.Bytes = nil
	if cerr := f.raw.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if f.tmp != nil {
		if rerr := os.Remove(f.tmp.Name()); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// Size returns the mapped length.
func (f *File) Size() int64 {
	return int64(len(f.Bytes))
}
