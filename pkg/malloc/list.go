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

	"github.com/solarisdb/tmalloc/golibs/errors"
)

// The block lists are singly linked chains of block headers. The head is the
// address of the first block or 0 for an empty list. Both operations take the
// head by pointer, so the callers always observe the list modifications made
// on their slot.

// appendBlock links the block b at the tail of the list
func appendBlock(head *uintptr, b uintptr) {
	blockHdr(b).next = 0
	if *head == 0 {
		*head = b
		return
	}
	p := *head
	for blockHdr(p).next != 0 {
		p = blockHdr(p).next
	}
	blockHdr(p).next = b
}

// unlinkBlock removes the block b from the list. The list is left intact and
// the error is returned if b is not in the list
func unlinkBlock(head *uintptr, b uintptr) error {
	if *head == 0 || b == 0 {
		return fmt.Errorf("no block 0x%x in the empty list: %w", b, errors.ErrNotExist)
	}
	if *head == b {
		*head = blockHdr(b).next
		return nil
	}
	p := *head
	for blockHdr(p).next != b {
		if blockHdr(p).next == 0 {
			return fmt.Errorf("the block 0x%x is not found in the list: %w", b, errors.ErrNotExist)
		}
		p = blockHdr(p).next
	}
	blockHdr(p).next = blockHdr(b).next
	return nil
}
