// Copyright 2016 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log is a leveled wrapper around the standard log package.
// Verbosity is global and is shared by all packages of the binary.
// Recent important output can be cached in memory for the web UI.
package log

import (
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	flagV     = flag.Int("vv", 0, "verbosity")
	verbosity atomic.Int64
	verbSet   atomic.Bool

	mu          sync.Mutex
	cache       []string
	cachePos    int
	cacheMem    int
	cacheMaxMem int
	prependTime = true // for testing
)

// SetVerbosity overrides the -vv flag.
func SetVerbosity(v int) {
	verbosity.Store(int64(v))
	verbSet.Store(true)
}

// V reports whether messages of level v are printed.
func V(v int) bool {
	if verbSet.Load() {
		return int64(v) <= verbosity.Load()
	}
	return v <= *flagV
}

// EnableLogCaching keeps up to maxLines most recent messages of level 0 and 1,
// but no more than maxMem bytes in total.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cache != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cacheMaxMem = maxMem
	cache = make([]string, maxLines)
}

func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	var buf strings.Builder
	for i := range cache {
		if s := cache[(cachePos+i)%len(cache)]; s != "" {
			buf.WriteString(s)
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func Logf(v int, msg string, args ...interface{}) {
	if v <= 1 {
		mu.Lock()
		if cache != nil {
			remember(fmt.Sprintf(msg, args...))
		}
		mu.Unlock()
	}
	if V(v) {
		golog.Printf(msg, args...)
	}
}

func remember(s string) {
	if prependTime {
		s = time.Now().Format("2006/01/02 15:04:05 ") + s
	}
	cacheMem += len(s) - len(cache[cachePos])
	cache[cachePos] = s
	cachePos = (cachePos + 1) % len(cache)
	// Evict oldest entries, but always keep the last one.
	for i := 0; i < len(cache)-1 && cacheMem > cacheMaxMem; i++ {
		pos := (cachePos + i) % len(cache)
		cacheMem -= len(cache[pos])
		cache[pos] = ""
	}
	if cacheMem < 0 {
		panic("log cache size underflow")
	}
}

// Errorf logs the message at level 0 and returns it as an error.
func Errorf(msg string, args ...interface{}) error {
	err := fmt.Errorf(msg, args...)
	Logf(0, "%v", err)
	return err
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

// VerboseWriter logs everything written to it at the given level.
type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
