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

import "unsafe"

type (
	// hdr is the block header placed at the beginning of every block. A block is
	// a contiguous span of the mapped memory, the hdrSize bytes of the header
	// followed by the payload handed out to the caller. The header lives outside
	// of the Go heap, so it is addressed by the block address directly.
	hdr struct {
		// next is the address of the next block's header in whichever list the
		// block is currently linked to, 0 for the last block
		next uintptr
		// size is the number of payload bytes available right after the header
		size uintptr
	}
)

const (
	// blockAlign is the alignment of every block address and payload address
	blockAlign = 8
	// hdrSize is the size of the block header, a multiple of blockAlign
	hdrSize = unsafe.Sizeof(hdr{})
)

// blockHdr interprets the address b as the block header placed at it
func blockHdr(b uintptr) *hdr {
	return (*hdr)(unsafe.Pointer(b))
}

// payload returns the user-visible address of the block b
func payload(b uintptr) unsafe.Pointer {
	return unsafe.Pointer(b + hdrSize)
}

// blockAddr returns the block address for the user-visible pointer p
func blockAddr(p unsafe.Pointer) uintptr {
	return uintptr(p) - hdrSize
}

// alignUp rounds v up to the closest multiple of align. align must be a power of two
func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// memSlice exposes size bytes of the raw memory at addr as a byte slice
func memSlice(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
