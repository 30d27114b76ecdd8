// Copyright 2026 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/statefuzz/statefuzz/pkg/osutil"
	"github.com/statefuzz/statefuzz/pkg/signal"
	"github.com/ulikunitz/xz"
)

const snapshotExt = ".json.xz"

// Snapshot is the accumulated coverage of one worker at the end of an epoch.
type Snapshot struct {
	Campaign string        `json:"campaign"`
	Worker   int           `json:"worker"`
	Epoch    int           `json:"epoch"`
	Execs    int           `json:"execs"`
	Time     time.Time     `json:"time"`
	Signal   signal.Serial `json:"signal"`
}

func (snap *Snapshot) fileName() string {
	return fmt.Sprintf("%v-w%v-e%v%v", snap.Campaign, snap.Worker, snap.Epoch, snapshotExt)
}

// SaveSnapshot writes xz-compressed JSON.
func SaveSnapshot(file string, snap *Snapshot) error {
	buf := new(bytes.Buffer)
	w, err := xz.NewWriter(buf)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	return osutil.WriteFile(file, buf.Bytes())
}

func LoadSnapshot(file string) (*Snapshot, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %v: %w", file, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %v: %w", file, err)
	}
	snap := new(Snapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %v: %w", file, err)
	}
	return snap, nil
}

// LoadSnapshots merges signal of all snapshots in dir.
// A missing dir is not an error.
func LoadSnapshots(dir string) (signal.Signal, int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+snapshotExt))
	if err != nil {
		return nil, 0, err
	}
	var res signal.Signal
	for _, file := range files {
		snap, err := LoadSnapshot(file)
		if err != nil {
			return nil, 0, err
		}
		res.Merge(snap.Signal.Deserialize())
	}
	return res, len(files), nil
}
