// Copyright 2015 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// stf-manager runs a stateful coverage guided fuzzing campaign against one of the built-in targets.
// Crashes and the minimized corpus are saved in the workdir, coverage is shown on the web UI.
package main

import (
	"context"
	"flag"

	"github.com/statefuzz/statefuzz/pkg/log"
	"github.com/statefuzz/statefuzz/pkg/mgrconfig"
	"github.com/statefuzz/statefuzz/pkg/osutil"
	"github.com/statefuzz/statefuzz/pkg/tool"
)

var (
	flagConfig = flag.String("config", "", "configuration file")
	flagDebug  = flag.Bool("debug", false, "print verbose fuzzer output to console")
)

func main() {
	defer tool.Init()()
	cfg, err := mgrconfig.LoadFile(*flagConfig)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *flagDebug {
		cfg.Verbosity = max(cfg.Verbosity, 2)
	}
	log.SetVerbosity(cfg.Verbosity)
	log.EnableLogCaching(1000, 1<<20)
	mgr, err := newManager(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer mgr.fuzzer.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go func() {
		<-shutdown
		cancel()
	}()
	if err := mgr.run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
