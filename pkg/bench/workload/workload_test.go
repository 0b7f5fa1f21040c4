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
package workload

import (
	"testing"

	"github.com/solarisdb/tmalloc/golibs/errors"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	wl, err := Parse(`
	# a comment
	mixed {
		threads 4
		ops 10000
		seed 42
		alloc 16..4096 weight 6
		free weight 3
		realloc 16..1024
		calloc 128
	}
	tiny { alloc 8 }
	`)
	assert.Nil(t, err)
	assert.Len(t, wl.Scenarios, 2)

	sc := wl.Scenarios[0]
	assert.Equal(t, "mixed", sc.Name)
	assert.Equal(t, Settings{Threads: 4, Ops: 10000, Seed: 42}, sc.Settings())

	ops := sc.Operations()
	assert.Len(t, ops, 4)
	assert.Equal(t, "alloc", ops[0].Kind)
	assert.Equal(t, 16, *ops[0].Min)
	assert.Equal(t, 4096, *ops[0].Max)
	assert.Equal(t, 6, *ops[0].Weight)
	assert.Equal(t, "free", ops[1].Kind)
	assert.Equal(t, 3, *ops[1].Weight)
	assert.Equal(t, "realloc", ops[2].Kind)
	assert.Equal(t, 1024, *ops[2].Max)
	assert.Equal(t, "calloc", ops[3].Kind)
	assert.Equal(t, 128, *ops[3].Min)
	assert.Equal(t, 128, *ops[3].Max)

	sc = wl.Scenarios[1]
	assert.Equal(t, "tiny", sc.Name)
	assert.Equal(t, Settings{Threads: DefaultThreads, Ops: DefaultOps}, sc.Settings())
	assert.Equal(t, 8, *sc.Operations()[0].Min)
	assert.Equal(t, 8, *sc.Operations()[0].Max)
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"noBraces",
		"s { }",
		"s { threads 0 alloc 1 }",
		"s { ops -5 alloc 1 }",
		"s { alloc 10..5 }",
		"s { alloc 1 weight 0 }",
		"s { munmap 1 }",
	} {
		_, err := Parse(text)
		assert.NotNil(t, err, "the text %q must not be parsed", text)
		assert.True(t, errors.Is(err, errors.ErrInvalid))
	}
}

func TestScenarioString(t *testing.T) {
	wl, err := Parse("s { alloc 1..2 weight 3 }")
	assert.Nil(t, err)
	assert.Contains(t, wl.Scenarios[0].String(), "alloc 1..2 weight 3")
}
