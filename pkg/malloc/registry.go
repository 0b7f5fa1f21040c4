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
	"sync/atomic"
	"unsafe"

	"github.com/solarisdb/tmalloc/golibs/mem"
	"github.com/solarisdb/tmalloc/golibs/threads"
)

type (
	// slot binds a thread identity to the thread's block directory. Once a
	// thread writes its identity into a slot, the id field never changes for
	// the rest of the process life, so the free and used lists of the slot are
	// mutated by the owning thread exclusively, without any synchronization.
	slot struct {
		// id is the owner threads.ID, or int64(threads.None) while the slot is unassigned
		id int64
		// free is the head of the list of the blocks available for allocation
		free uintptr
		// used is the head of the list of the blocks handed out to the owner
		used uintptr
	}

	// table is the Allocator's registry of the per-thread directories, every
	// Allocator owns one. The slots slice lays over one page of anonymous memory
	table struct {
		reg   mem.Region
		slots []slot
	}
)

const slotSize = unsafe.Sizeof(slot{})

// newTable maps one OS page and formats it as the registry slot array. All the
// slots are unassigned
func newTable() (*table, error) {
	pageSize := mem.PageSize()
	reg, err := mem.MapAnon(pageSize)
	if err != nil {
		return nil, err
	}
	t := &table{reg: reg}
	t.slots = unsafe.Slice((*slot)(unsafe.Pointer(&reg[0])), pageSize/int(slotSize))
	for i := range t.slots {
		t.slots[i].id = int64(threads.None)
	}
	return t, nil
}

// ensureTable returns the registry, creating it on the first call. The first
// creator pre-claims slot 0 for itself
func (a *Allocator) ensureTable(id threads.ID) *table {
	if t := a.tbl.Load(); t != nil {
		return t
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	// the table could appear while we waited on the lock
	if t := a.tbl.Load(); t != nil {
		return t
	}
	t, err := newTable()
	if err != nil {
		a.logger.Errorf("could not create the thread registry: %v", err)
		return nil
	}
	atomic.StoreInt64(&t.slots[0].id, int64(id))
	a.tbl.Store(t)
	a.logger.Debugf("created the thread registry with %d slots, slot 0 is claimed by the thread %d", len(t.slots), id)
	return t
}

// claim returns the slot owned by the thread id, assigning an unused one if
// the thread comes for the first time. nil is returned when the registry is
// full or cannot be created
func (a *Allocator) claim(id threads.ID) *slot {
	t := a.ensureTable(id)
	if t == nil {
		return nil
	}
scan:
	for {
		for i := range t.slots {
			s := &t.slots[i]
			switch threads.ID(atomic.LoadInt64(&s.id)) {
			case id:
				return s
			case threads.None:
				a.lock.Lock()
				if threads.ID(atomic.LoadInt64(&s.id)) != threads.None {
					// another thread got the slot first, rescan
					a.lock.Unlock()
					continue scan
				}
				atomic.StoreInt64(&s.id, int64(id))
				a.lock.Unlock()
				a.logger.Debugf("the thread %d claimed slot %d", id, i)
				return s
			}
		}
		a.logger.Warnf("the thread registry is full (%d slots), no slot for the thread %d", len(t.slots), id)
		return nil
	}
}

// lookup returns the slot owned by the thread id, or nil if the thread never
// claimed one. The function doesn't acquire the lock, it relies on the slot
// ids being written once
func (a *Allocator) lookup(id threads.ID) *slot {
	t := a.tbl.Load()
	if t == nil {
		return nil
	}
	for i := range t.slots {
		if threads.ID(atomic.LoadInt64(&t.slots[i].id)) == id {
			return &t.slots[i]
		}
	}
	return nil
}
