// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package targets

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/statefuzz/statefuzz/pkg/statetable"
	"github.com/statefuzz/statefuzz/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	Machine, Node int
}

type traceRecorder struct {
	trace []transition
}

func (r *traceRecorder) UpdateState(machine, node int) bool {
	r.trace = append(r.trace, transition{machine, node})
	return false
}

// states returns the visited states of one machine.
func (r *traceRecorder) states(machine int) []int {
	var res []int
	for _, tr := range r.trace {
		if tr.Machine == machine {
			res = append(res, tr.Node)
		}
	}
	return res
}

func TestRegistry(t *testing.T) {
	var names []string
	for _, target := range List() {
		names = append(names, target.Name)
		assert.NotEmpty(t, target.Description)
		assert.NotEmpty(t, target.Seeds)
	}
	assert.Equal(t, []string{"session", "usbctl"}, names)
	target, err := Get("usbctl")
	require.NoError(t, err)
	assert.Equal(t, "usbctl", target.Name)
	_, err = Get("foo")
	assert.EqualError(t, err, `unknown target "foo", supported: session, usbctl`)
	assert.Panics(t, func() { register(&Target{Name: "session"}) })
}

func TestSeedsDoNotCrash(t *testing.T) {
	for _, target := range List() {
		for _, seed := range target.Seeds {
			rec := new(traceRecorder)
			target.Fn(seed, rec)
			assert.NotEmpty(t, rec.trace, "%v: %q", target.Name, seed)
		}
	}
}

func TestUSBCtlTransfer(t *testing.T) {
	rec := new(traceRecorder)
	runUSBCtl([]byte{
		usbRun,
		usbPortConnect, 1,
		usbPortReset, 5, // 5%4 == 1
		usbIRQEnable,
		usbDMALoad, 0x20,
		usbDMAArm,
		usbDMAGo,
		usbIRQAck,
	}, rec)
	assert.Equal(t, []int{ctlHalted, ctlRunning}, rec.states(smController))
	assert.Equal(t, []int{dmaIdle, dmaLoaded, dmaArmed, dmaTransferring, dmaDone}, rec.states(smDMA))
	assert.Equal(t, []int{irqMasked, irqEnabled, irqPending, irqAcked, irqEnabled}, rec.states(smIRQ))
	assert.Equal(t, []int{portConnected, portResetting, portEnabled}, rec.states(smPort0+1))
	assert.Empty(t, rec.states(smPort0))
}

func TestUSBCtlFault(t *testing.T) {
	rec := new(traceRecorder)
	runUSBCtl([]byte{
		usbRun,
		usbDMALoad, 0x20,
		usbDMAArm,
		usbDMAFree,
		usbDMAGo,
		usbRun, // ignored in error state
		usbReset,
		usbNop,
		usbRun,
	}, rec)
	assert.Equal(t, []int{ctlHalted, ctlRunning, ctlError, ctlResetting, ctlHalted, ctlRunning},
		rec.states(smController))
	assert.Equal(t, []int{dmaIdle, dmaLoaded, dmaArmed, dmaFault, dmaIdle}, rec.states(smDMA))
	assert.Equal(t, []int{descValid, descFreed, descEmpty}, rec.states(smDesc))
}

func TestUSBCtlBug(t *testing.T) {
	input := []byte{
		usbRun,
		usbPortConnect, 0,
		usbPortReset, 0,
		usbDMALoad, 0x42,
		usbDMAArm,
		usbDMAFree,
		usbHalt,
		usbDMAGo,
	}
	assert.PanicsWithValue(t, "usbctl: DMA from freed descriptor 0x42", func() {
		runUSBCtl(input, NopRecorder{})
	})
	// Without an enabled port the transfer just stalls.
	rec := new(traceRecorder)
	input = []byte{usbRun, usbDMALoad, 0x42, usbDMAArm, usbDMAFree, usbHalt, usbDMAGo}
	runUSBCtl(input, rec)
	assert.Equal(t, []int{dmaIdle, dmaLoaded, dmaArmed, dmaStalled}, rec.states(smDMA))
}

func TestUSBCtlTruncatedArg(t *testing.T) {
	rec := new(traceRecorder)
	runUSBCtl([]byte{usbRun, usbDMALoad}, rec)
	assert.Equal(t, []int{dmaIdle}, rec.states(smDMA))
	// Commands wrap around.
	rec = new(traceRecorder)
	runUSBCtl([]byte{usbNumCommands + usbRun}, rec)
	assert.Equal(t, []int{ctlHalted, ctlRunning}, rec.states(smController))
}

func TestSession(t *testing.T) {
	tests := []struct {
		input   string
		session []int
		framing []int
	}{
		{
			"",
			[]int{sessStart},
			[]int{frameLine, frameEmpty},
		},
		{
			"HELLO\nAUTH token\nDATA\nfoo bar\n.\nQUIT",
			[]int{sessStart, sessGreeted, sessAuthed, sessData, sessAuthed, sessClosed},
			[]int{
				frameLine, frameCommand,
				frameLine, frameCommand, frameArgument,
				frameLine, frameCommand,
				frameLine, framePayload,
				frameLine, framePayload,
				frameLine, frameCommand,
			},
		},
		{
			"HELLO\r\nAUTH x\r\nHELLO\r\n",
			[]int{sessStart, sessGreeted, sessError, sessGreeted},
			[]int{
				frameLine, frameCommand,
				frameLine, frameCommand, frameArgument,
				frameLine, frameCommand,
				frameLine, frameEmpty,
			},
		},
		{
			"QUIT\nHELLO\n   \n" + strings.Repeat("A", maxLineLen+1),
			[]int{sessStart, sessClosed, sessError, sessError},
			[]int{
				frameLine, frameCommand,
				frameLine, frameCommand,
				frameLine, frameEmpty,
				frameLine, frameOverlong,
			},
		},
	}
	for _, test := range tests {
		rec := new(traceRecorder)
		runSession([]byte(test.input), rec)
		if diff := cmp.Diff(test.session, rec.states(smSession)); diff != "" {
			t.Errorf("%q: session:\n%v", test.input, diff)
		}
		if diff := cmp.Diff(test.framing, rec.states(smFraming)); diff != "" {
			t.Errorf("%q: framing:\n%v", test.input, diff)
		}
	}
}

func TestTargetsRandom(t *testing.T) {
	tab, err := statetable.New()
	require.NoError(t, err)
	defer tab.Close()
	rnd := rand.New(testutil.RandSource(t))
	for _, target := range List() {
		for i := 0; i < testutil.IterCount()/10; i++ {
			tab.Reset()
			data := testutil.RandInput(rnd, 64)
			func() {
				defer func() {
					if err := recover(); err != nil {
						msg, ok := err.(string)
						require.True(t, ok)
						require.True(t, strings.HasPrefix(msg, "usbctl: DMA from freed descriptor"), msg)
					}
				}()
				target.Fn(data, tab)
			}()
			for _, m := range tab.Current().Machines() {
				require.True(t, m <= smPort0+numPorts, "machine %v", m)
			}
		}
	}
}
