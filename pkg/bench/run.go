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

// Package bench contains the driver which exercises the allocator by the
// configured workload scenarios and reports the collected counters.
package bench

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/logrange/linker"
	"github.com/solarisdb/tmalloc/golibs/logging"
	"github.com/solarisdb/tmalloc/pkg/bench/workload"
	"github.com/solarisdb/tmalloc/pkg/malloc"
	"github.com/solarisdb/tmalloc/pkg/version"
)

// Run is an entry point of the bench driver
func Run(ctx context.Context, cfg *Config) error {
	log := logging.NewLogger("bench")
	log.Infof("starting bench: %s", version.BuildVersionString())

	log.Infof(spew.Sprint(cfg))
	defer log.Infof("bench is stopped")

	text, err := cfg.WorkloadText()
	if err != nil {
		return err
	}
	wl, err := workload.Parse(text)
	if err != nil {
		return err
	}
	r, err := NewRunner(wl, cfg.Scenarios)
	if err != nil {
		return err
	}

	inj := linker.New()
	inj.Register(linker.Component{Name: "", Value: malloc.Default()})
	inj.Register(linker.Component{Name: "", Value: r})

	inj.Init(ctx)
	defer inj.Shutdown()

	_, err = r.Run(ctx)
	return err
}
