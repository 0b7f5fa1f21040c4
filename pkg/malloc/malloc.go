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

// Package malloc implements a thread-partitioned dynamic memory allocator on
// top of the anonymous pages mapped from the OS.
//
// Every thread owns a directory of two block lists, free and used. The
// directories live in the Allocator's registry, which occupies one OS page and
// is lazily created under the allocator lock; Default() is the process-wide
// Allocator instance. After a thread has claimed its
// registry slot, all its allocations and releases touch only the slot's own
// lists, so the hot path takes no locks at all.
//
// The identity of a thread is provided by the golibs/threads package. On the
// platforms where the identity is the OS thread id, a goroutine working with
// the Allocator must be pinned with runtime.LockOSThread, otherwise it can be
// rescheduled to another thread between the calls and the memory it freed
// would never be seen again. Pointers must be released by the thread that
// allocated them, a cross-thread Free is undefined behavior.
package malloc

import (
	"fmt"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/solarisdb/tmalloc/golibs/logging"
	"github.com/solarisdb/tmalloc/golibs/mem"
	"github.com/solarisdb/tmalloc/golibs/threads"
)

type (
	// Allocator serves memory allocation requests from the anonymous pages it
	// maps from the OS. The zero state is not usable, use New() to create an
	// instance. All the methods are safe for the concurrent use, every thread
	// works with its own partition of the allocator state.
	Allocator struct {
		// lock guards the registry bootstrap and the slot claims only, the
		// allocation fast path never takes it
		lock sync.Mutex
		tbl  atomic.Pointer[table]

		// regLock guards the mapped regions accounting. It is taken on the
		// page-acquisition slow path and by Stats()
		regLock sync.Mutex
		regions []mem.Region
		mapped  int64

		logger logging.Logger
	}

	// BlockInfo describes one block of a thread's directory
	BlockInfo struct {
		// Addr is the block header address
		Addr uintptr
		// Next is the address of the successor in the list, 0 for the last block
		Next uintptr
		// Size is the block payload size in bytes
		Size uintptr
	}

	// Stats contains the allocator counters
	Stats struct {
		// Regions is the number of anonymous regions mapped from the OS
		Regions int
		// MappedBytes is the total size of the mapped regions, the registry page excluded
		MappedBytes int64
		// Slots is the registry capacity
		Slots int
		// UsedSlots is the number of the registry slots claimed by threads
		UsedSlots int
	}
)

// New creates new Allocator. The registry is not created until the first
// allocation request
func New() *Allocator {
	return &Allocator{logger: logging.NewLogger("malloc.Allocator")}
}

// Malloc allocates size bytes and returns the pointer to the allocated
// memory. The pointer is 8-byte aligned. nil is returned when size is
// negative, the OS is out of memory, or the thread registry is exhausted.
func (a *Allocator) Malloc(size int) unsafe.Pointer {
	if size < 0 {
		return nil
	}
	s := a.claim(threads.CurrentID())
	if s == nil {
		return nil
	}
	b, err := a.findOrCreate(uintptr(size), &s.free)
	if err != nil {
		a.logger.Errorf("could not serve the allocation of %d bytes: %v", size, err)
		return nil
	}
	_ = unlinkBlock(&s.free, b)
	blockHdr(b).next = 0
	appendBlock(&s.used, b)
	return payload(b)
}

// Calloc allocates the memory for count objects of unit bytes each and sets
// it to zero. nil is returned on an allocation failure or when count*unit
// overflows
func (a *Allocator) Calloc(count, unit int) unsafe.Pointer {
	if count < 0 || unit < 0 {
		return nil
	}
	hi, size := bits.Mul64(uint64(count), uint64(unit))
	if hi != 0 || size > uint64(math.MaxInt) {
		return nil
	}
	p := a.Malloc(int(size))
	if p == nil {
		return nil
	}
	clear(memSlice(uintptr(p), int(size)))
	return p
}

// Realloc resizes the allocation of ptr to size bytes. The content is copied
// into a new block, up to the smaller of the old and the new sizes, and ptr
// is released. Realloc(nil, size) is equivalent to Malloc(size). On failure
// nil is returned and ptr stays valid.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer {
	if ptr == nil {
		return a.Malloc(size)
	}
	if size < 0 {
		return nil
	}
	np := a.Malloc(size)
	if np == nil {
		return nil
	}
	n := min(int(blockHdr(blockAddr(ptr)).size), size)
	copy(memSlice(uintptr(np), n), memSlice(uintptr(ptr), n))
	a.Free(ptr)
	return np
}

// Free returns the block of ptr into the free list of the calling thread, so
// the following allocations may reuse it. The call is ignored when ptr is
// nil, when the calling thread has no registry slot, or when ptr was not
// handed out to the thread. ptr must be released by the thread that allocated
// it.
func (a *Allocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	s := a.lookup(threads.CurrentID())
	if s == nil {
		return
	}
	b := blockAddr(ptr)
	if err := unlinkBlock(&s.used, b); err != nil {
		a.logger.Debugf("Free() of the unknown pointer %p: %v", ptr, err)
		return
	}
	blockHdr(b).next = 0
	appendBlock(&s.free, b)
}

// FreeBlocks returns the blocks of the calling thread's free list in the list
// order. nil is returned when the thread has no registry slot
func (a *Allocator) FreeBlocks() []BlockInfo {
	if s := a.lookup(threads.CurrentID()); s != nil {
		return listBlocks(s.free)
	}
	return nil
}

// UsedBlocks returns the blocks handed out to the calling thread in the list
// order. nil is returned when the thread has no registry slot
func (a *Allocator) UsedBlocks() []BlockInfo {
	if s := a.lookup(threads.CurrentID()); s != nil {
		return listBlocks(s.used)
	}
	return nil
}

// DumpFree prints the calling thread's free list into the log
func (a *Allocator) DumpFree() {
	a.dump("free", a.FreeBlocks())
}

// DumpUsed prints the calling thread's used list into the log
func (a *Allocator) DumpUsed() {
	a.dump("used", a.UsedBlocks())
}

// Stats returns the allocator counters
func (a *Allocator) Stats() Stats {
	var res Stats
	a.regLock.Lock()
	res.Regions = len(a.regions)
	res.MappedBytes = a.mapped
	a.regLock.Unlock()
	if t := a.tbl.Load(); t != nil {
		res.Slots = len(t.slots)
		for i := range t.slots {
			if threads.ID(atomic.LoadInt64(&t.slots[i].id)) != threads.None {
				res.UsedSlots++
			}
		}
	}
	return res
}

// String implements fmt.Stringer
func (a *Allocator) String() string {
	s := a.Stats()
	return fmt.Sprintf("Allocator{regions:%d, mapped:%d, slots:%d/%d}", s.Regions, s.MappedBytes, s.UsedSlots, s.Slots)
}

func (a *Allocator) addRegion(reg mem.Region) {
	a.regLock.Lock()
	a.regions = append(a.regions, reg)
	a.mapped += int64(len(reg))
	a.regLock.Unlock()
}

func (a *Allocator) dump(name string, blks []BlockInfo) {
	a.logger.Infof("%s blocks of the thread %d:", name, threads.CurrentID())
	for _, b := range blks {
		a.logger.Infof("\tlocation: 0x%x next: 0x%x size: %d", b.Addr, b.Next, b.Size)
	}
}

func listBlocks(head uintptr) []BlockInfo {
	var res []BlockInfo
	for b := head; b != 0; b = blockHdr(b).next {
		res = append(res, BlockInfo{Addr: b, Next: blockHdr(b).next, Size: blockHdr(b).size})
	}
	return res
}

var (
	defOnce sync.Once
	defInst *Allocator
)

// Default returns the process-wide Allocator instance
func Default() *Allocator {
	defOnce.Do(func() {
		defInst = New()
	})
	return defInst
}

// Malloc allocates size bytes with the Default() allocator
func Malloc(size int) unsafe.Pointer {
	return Default().Malloc(size)
}

// Calloc allocates the zeroed memory for count objects of unit bytes each
// with the Default() allocator
func Calloc(count, unit int) unsafe.Pointer {
	return Default().Calloc(count, unit)
}

// Realloc resizes the allocation of ptr with the Default() allocator
func Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer {
	return Default().Realloc(ptr, size)
}

// Free releases the allocation of ptr made with the Default() allocator
func Free(ptr unsafe.Pointer) {
	Default().Free(ptr)
}
