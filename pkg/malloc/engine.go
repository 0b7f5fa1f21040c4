// Copyright 2024 The Solaris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package malloc

import (
	"fmt"
	"unsafe"

	"github.com/solarisdb/tmalloc/golibs/errors"
	"github.com/solarisdb/tmalloc/golibs/mem"
)

// findOrCreate returns a block from the free list with at least size payload
// bytes. The free list is searched first fit; when nothing is big enough, new
// pages are mapped from the OS and installed as one free block. The returned
// block is always a member of the free list.
func (a *Allocator) findOrCreate(size uintptr, free *uintptr) (uintptr, error) {
	for b := *free; b != 0; b = blockHdr(b).next {
		if blockHdr(b).size >= size {
			return splitBlock(b, size, free), nil
		}
	}

	pageSize := uintptr(mem.PageSize())
	need := alignUp(size+hdrSize, pageSize)
	if need < size {
		return 0, fmt.Errorf("the requested size %d is too big: %w", size, errors.ErrInvalid)
	}
	reg, err := mem.MapAnon(int(need))
	if err != nil {
		return 0, fmt.Errorf("could not get %d bytes from the OS: %w", need, err)
	}
	a.addRegion(reg)

	b := uintptr(unsafe.Pointer(&reg[0]))
	h := blockHdr(b)
	h.next = 0
	h.size = need - hdrSize
	appendBlock(free, b)
	a.logger.Debugf("mapped new region of %d bytes for the request of %d bytes", need, size)
	return splitBlock(b, size, free), nil
}

// splitBlock carves the free block b in two, so the caller is not handed much
// more memory than the size requested. The block keeps the first size payload
// bytes (rounded up, so the second block stays aligned), the remainder becomes
// a new free block. When the remainder is too small to host a block on its
// own, b is left intact and the caller gets the extra bytes. The returned
// block is always b, still linked into the free list.
func splitBlock(b, size uintptr, free *uintptr) uintptr {
	h := blockHdr(b)
	end := b + hdrSize + h.size
	second := alignUp(b+hdrSize+size, blockAlign)
	if second >= end || end-second <= hdrSize {
		return b
	}

	_ = unlinkBlock(free, b)
	// the alignment slack, if any, stays in the first block
	h.size = second - b - hdrSize
	sh := blockHdr(second)
	sh.next = 0
	sh.size = end - second - hdrSize
	appendBlock(free, b)
	appendBlock(free, second)
	return b
}
