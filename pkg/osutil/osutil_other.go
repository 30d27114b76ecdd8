// Copyright 2017 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build !unix

package osutil

import (
	"os"
	"unsafe"
)

func HandleInterrupts(shutdown chan struct{}) {
}

func MapAnonymous(size int) ([]byte, error) {
	align := os.Getpagesize()
	mem := make([]byte, size+align)
	off := 0
	if rem := int(uintptr(unsafe.Pointer(&mem[0])) % uintptr(align)); rem != 0 {
		off = align - rem
	}
	return mem[off : off+size : off+size], nil
}

func UnmapAnonymous(mem []byte) error {
	return nil
}
