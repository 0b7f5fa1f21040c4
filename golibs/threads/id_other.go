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

//go:build !linux && !windows

package threads

import "runtime"

// CurrentID returns the identity of the calling goroutine. The id is parsed
// from the first line of the goroutine stack dump, which is the only portable
// way to obtain it.
func CurrentID() ID {
	var buf [40]byte
	n := runtime.Stack(buf[:], false)
	// the line starts with "goroutine <id> ["
	s := buf[len("goroutine "):n]
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return ID(id)
}
