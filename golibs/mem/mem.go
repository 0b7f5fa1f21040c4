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

// Package mem provides access to anonymous memory regions obtained from the
// operating system directly, outside of the Go heap. The regions are private
// read-write mappings, they are not backed by any file and they are not
// touched by the garbage collector.
package mem

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/solarisdb/tmalloc/golibs/errors"
)

// Region is a mapped anonymous memory region. The underlying bytes stay valid
// until Unmap is called for the region.
type Region = mmap.MMap

// PageSize returns the size of the OS memory page in bytes
func PageSize() int {
	return os.Getpagesize()
}

// MapAnon maps size bytes of the anonymous private read-write memory. The size
// must be positive and a multiple of the OS page size.
func MapAnon(size int) (Region, error) {
	if size <= 0 || size%PageSize() != 0 {
		return nil, fmt.Errorf("size=%d must be a positive multiple of the page size %d: %w", size, PageSize(), errors.ErrInvalid)
	}
	m, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("could not map %d bytes of anonymous memory: %w", size, err)
	}
	return m, nil
}
