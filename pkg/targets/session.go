// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package targets

import (
	"bytes"
)

func init() {
	register(&Target{
		Name:        "session",
		Description: "line-oriented session protocol: HELLO, AUTH <token>, DATA, payload lines ended with '.', QUIT",
		Fn:          runSession,
		Seeds: [][]byte{
			[]byte("HELLO\nAUTH token\nDATA\nline\n.\nQUIT\n"),
			[]byte("HELLO\nQUIT\n"),
		},
	})
}

const (
	smSession = 0
	smFraming = 1
)

const (
	sessStart = iota
	sessGreeted
	sessAuthed
	sessData
	sessClosed
	sessError
)

const (
	frameLine = iota
	frameCommand
	frameArgument
	frameOverlong
	frameEmpty
	framePayload
)

const maxLineLen = 32

type session struct {
	rec   Recorder
	state int
}

func runSession(data []byte, rec Recorder) {
	s := &session{rec: rec}
	s.set(sessStart)
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		s.line(bytes.TrimSuffix(line, []byte{'\r'}))
	}
}

func (s *session) set(state int) {
	s.state = state
	s.rec.UpdateState(smSession, state)
}

func (s *session) line(line []byte) {
	s.rec.UpdateState(smFraming, frameLine)
	if len(line) == 0 {
		s.rec.UpdateState(smFraming, frameEmpty)
		return
	}
	if len(line) > maxLineLen {
		s.rec.UpdateState(smFraming, frameOverlong)
		s.set(sessError)
		return
	}
	if s.state == sessData {
		s.rec.UpdateState(smFraming, framePayload)
		if string(line) == "." {
			s.set(sessAuthed)
		}
		return
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		s.rec.UpdateState(smFraming, frameEmpty)
		return
	}
	s.rec.UpdateState(smFraming, frameCommand)
	if len(fields) > 1 {
		s.rec.UpdateState(smFraming, frameArgument)
	}
	switch cmd := string(fields[0]); {
	case s.state == sessClosed:
		s.set(sessError)
	case cmd == "HELLO" && (s.state == sessStart || s.state == sessError):
		s.set(sessGreeted)
	case cmd == "AUTH" && s.state == sessGreeted:
		if len(fields) == 2 && len(fields[1]) >= 4 {
			s.set(sessAuthed)
		} else {
			s.set(sessError)
		}
	case cmd == "DATA" && s.state == sessAuthed:
		s.set(sessData)
	case cmd == "QUIT":
		s.set(sessClosed)
	default:
		s.set(sessError)
	}
}
