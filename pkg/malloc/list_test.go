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
	"testing"
	"unsafe"

	"github.com/solarisdb/tmalloc/golibs/errors"
	"github.com/solarisdb/tmalloc/golibs/mem"
	"github.com/stretchr/testify/assert"
)

func TestAppendBlock(t *testing.T) {
	reg, err := mem.MapAnon(mem.PageSize())
	assert.Nil(t, err)
	defer reg.Unmap()

	base := uintptr(unsafe.Pointer(&reg[0]))
	b1, b2, b3 := base, base+64, base+128

	var head uintptr
	appendBlock(&head, b1)
	assert.Equal(t, b1, head)
	appendBlock(&head, b2)
	appendBlock(&head, b3)
	assert.Equal(t, b1, head)
	assert.Equal(t, b2, blockHdr(b1).next)
	assert.Equal(t, b3, blockHdr(b2).next)
	assert.Equal(t, uintptr(0), blockHdr(b3).next)
}

func TestUnlinkBlock(t *testing.T) {
	reg, err := mem.MapAnon(mem.PageSize())
	assert.Nil(t, err)
	defer reg.Unmap()

	base := uintptr(unsafe.Pointer(&reg[0]))
	b1, b2, b3 := base, base+64, base+128

	var head uintptr
	assert.True(t, errors.Is(unlinkBlock(&head, b1), errors.ErrNotExist))

	appendBlock(&head, b1)
	appendBlock(&head, b2)
	appendBlock(&head, b3)

	// the middle one
	assert.Nil(t, unlinkBlock(&head, b2))
	assert.Equal(t, b3, blockHdr(b1).next)
	assert.True(t, errors.Is(unlinkBlock(&head, b2), errors.ErrNotExist))

	// the head
	assert.Nil(t, unlinkBlock(&head, b1))
	assert.Equal(t, b3, head)

	// the last one
	assert.Nil(t, unlinkBlock(&head, b3))
	assert.Equal(t, uintptr(0), head)
}
