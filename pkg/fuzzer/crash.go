// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/maruel/panicparse/stack"
	"github.com/statefuzz/statefuzz/pkg/hash"
	"github.com/statefuzz/statefuzz/pkg/targets"
)

// Crash is a unique target panic.
type Crash struct {
	Title string
	// Signature identifies the crash: the target frames of the panicking stack.
	Signature string
	Input     []byte
	Output    []byte
	Count     int
}

func (crash *Crash) ID() string {
	return hash.String([]byte(crash.Signature))
}

// runTarget executes the target and returns the panic report if it panics.
func runTarget(target *targets.Target, data []byte, rec targets.Recorder) (output []byte) {
	defer func() {
		if err := recover(); err != nil {
			output = []byte(fmt.Sprintf("panic: %v\n\n%s", err, debug.Stack()))
		}
	}()
	target.Fn(data[:len(data):len(data)], rec)
	return nil
}

const maxSignatureFrames = 8

// crashSignature extracts the target frames of the first goroutine.
// Frames of the runtime and of the recovery code are skipped.
func crashSignature(output []byte) string {
	ctx, err := stack.ParseDump(bytes.NewBuffer(output), io.Discard, false)
	if err == nil && ctx != nil {
		for _, gr := range ctx.Goroutines {
			if !gr.First {
				continue
			}
			var frames []string
			for _, call := range gr.Stack.Calls {
				name := call.Func.PkgDotName()
				if strings.HasPrefix(name, "fuzzer.runTarget") && !strings.HasPrefix(name, "fuzzer.runTarget.") {
					// No longer in the target code.
					break
				}
				if name == "panic" || strings.HasPrefix(name, "runtime.") ||
					strings.HasPrefix(name, "debug.") || strings.HasPrefix(name, "fuzzer.runTarget.") {
					continue
				}
				frames = append(frames, name)
				if len(frames) == maxSignatureFrames {
					break
				}
			}
			if len(frames) != 0 {
				return strings.Join(frames, "\n")
			}
		}
	}
	return normalizeTitle(crashTitle(output))
}

func crashTitle(output []byte) string {
	title, _, _ := bytes.Cut(output, []byte{'\n'})
	return string(title)
}

var numberRe = regexp.MustCompile(`0x[0-9a-fA-F]+|[0-9]+`)

func normalizeTitle(title string) string {
	return numberRe.ReplaceAllString(title, "X")
}

type crashes struct {
	all map[string]*Crash
}

// add returns the crash and whether it is new.
func (cs *crashes) add(data, output []byte) (*Crash, bool) {
	sig := crashSignature(output)
	if crash := cs.all[sig]; crash != nil {
		crash.Count++
		// Prefer shorter reproducers.
		if len(data) < len(crash.Input) {
			crash.Input = append([]byte{}, data...)
			crash.Output = output
		}
		return crash, false
	}
	crash := &Crash{
		Title:     crashTitle(output),
		Signature: sig,
		Input:     append([]byte{}, data...),
		Output:    output,
		Count:     1,
	}
	cs.all[sig] = crash
	return crash, true
}

func (cs *crashes) list() []*Crash {
	var res []*Crash
	for _, crash := range cs.all {
		res = append(res, crash)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res
}
