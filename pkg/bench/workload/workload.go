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

// Package workload describes the benchmark scenarios in a small text form.
// A workload is a series of named scenarios, each one carries its settings
// and the weighted allocator operations, for example:
//
//	mixed {
//		threads 4
//		ops 10000
//		alloc 16..4096 weight 6
//		free weight 3
//		realloc 16..1024 weight 1
//	}
package workload

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/solarisdb/tmalloc/golibs/cast"
	"github.com/solarisdb/tmalloc/golibs/errors"
)

type (
	// Workload is an AST element which describes a series of scenarios
	Workload struct {
		Scenarios []*Scenario `@@ { @@ }`
	}

	// Scenario is an AST element, a named group of settings and weighted operations
	Scenario struct {
		Name  string  `@Ident "{"`
		Items []*Item `{ @@ } "}"`
	}

	// Item is an AST element, either one scenario setting or one operation
	Item struct {
		Threads *int   `  "threads" @Number`
		Ops     *int   `| "ops" @Number`
		Seed    *int64 `| "seed" @Number`
		Op      *Op    `| @@`
	}

	// Op is an AST element which describes a weighted allocator operation with
	// an optional payload size range
	Op struct {
		Kind   string `@("alloc" | "calloc" | "realloc" | "free")`
		Min    *int   `[ @Number`
		Max    *int   `  [ ".." @Number ] ]`
		Weight *int   `[ "weight" @Number ]`
	}

	// Settings contains the resolved scenario settings
	Settings struct {
		// Threads is the number of the OS threads driving the scenario
		Threads int
		// Ops is the number of the operations every thread performs
		Ops int
		// Seed initializes the random generators of the scenario threads
		Seed int64
	}
)

// The setting defaults applied when a scenario doesn't specify them
const (
	DefaultThreads = 1
	DefaultOps     = 1000
	DefaultMinSize = 16
	DefaultMaxSize = 4096
)

var (
	wlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{`Ident`, `[a-zA-Z_][a-zA-Z0-9_]*`},
		{`Number`, `[-+]?\d+`},
		{`Operators`, `\.\.|[{}]`},
		{`whitespace`, `\s+`},
		{`Comment`, `#[^\n]*`},
	})

	parser = participle.MustBuild[Workload](
		participle.Lexer(wlLexer),
		participle.Elide("Comment"),
	)
)

// Parse turns the workload text into the Workload AST. The result is
// validated, so the Run of every scenario cannot fail on malformed settings
func Parse(text string) (*Workload, error) {
	wl, err := parser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("could not parse the workload %q: %w", text, errors.ErrInvalid)
	}
	for _, sc := range wl.Scenarios {
		if err := sc.validate(); err != nil {
			return nil, err
		}
	}
	return wl, nil
}

// Settings returns the scenario settings with the defaults applied
func (s *Scenario) Settings() Settings {
	res := Settings{Threads: DefaultThreads, Ops: DefaultOps}
	for _, it := range s.Items {
		switch {
		case it.Threads != nil:
			res.Threads = *it.Threads
		case it.Ops != nil:
			res.Ops = *it.Ops
		case it.Seed != nil:
			res.Seed = *it.Seed
		}
	}
	return res
}

// Operations returns the scenario operations with the defaults applied
func (s *Scenario) Operations() []Op {
	var res []Op
	for _, it := range s.Items {
		if it.Op == nil {
			continue
		}
		op := *it.Op
		if op.Min == nil {
			// no size is given, use the default range
			op.Min = cast.Ptr(DefaultMinSize)
			op.Max = cast.Ptr(DefaultMaxSize)
		}
		// a single number means the exact size
		op.Max = cast.Ptr(cast.Value(op.Max, *op.Min))
		op.Weight = cast.Ptr(cast.Value(op.Weight, 1))
		res = append(res, op)
	}
	return res
}

// String implements fmt.Stringer
func (s *Scenario) String() string {
	var sb strings.Builder
	st := s.Settings()
	sb.WriteString(fmt.Sprintf("Scenario{name:%s, threads:%d, ops:%d, operations:[", s.Name, st.Threads, st.Ops))
	for i, op := range s.Operations() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s %d..%d weight %d", op.Kind, *op.Min, *op.Max, *op.Weight))
	}
	sb.WriteString("]}")
	return sb.String()
}

func (s *Scenario) validate() error {
	st := s.Settings()
	if st.Threads <= 0 {
		return fmt.Errorf("the scenario %s: threads must be positive, but got %d: %w", s.Name, st.Threads, errors.ErrInvalid)
	}
	if st.Ops <= 0 {
		return fmt.Errorf("the scenario %s: ops must be positive, but got %d: %w", s.Name, st.Ops, errors.ErrInvalid)
	}
	ops := s.Operations()
	if len(ops) == 0 {
		return fmt.Errorf("the scenario %s has no operations: %w", s.Name, errors.ErrInvalid)
	}
	total := 0
	for _, op := range ops {
		if *op.Min < 0 || *op.Max < *op.Min {
			return fmt.Errorf("the scenario %s: wrong size range %d..%d of the operation %s: %w",
				s.Name, *op.Min, *op.Max, op.Kind, errors.ErrInvalid)
		}
		if *op.Weight < 0 {
			return fmt.Errorf("the scenario %s: negative weight %d of the operation %s: %w",
				s.Name, *op.Weight, op.Kind, errors.ErrInvalid)
		}
		total += *op.Weight
	}
	if total <= 0 {
		return fmt.Errorf("the scenario %s: all the operation weights are zero: %w", s.Name, errors.ErrInvalid)
	}
	return nil
}
