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
package threads

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentID(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	id := CurrentID()
	assert.NotEqual(t, None, id)
	assert.Equal(t, id, CurrentID())
}

func TestCurrentIDDistinct(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	id := CurrentID()
	done := make(chan ID)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		done <- CurrentID()
	}()
	assert.NotEqual(t, id, <-done)
}
