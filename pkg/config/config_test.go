// Copyright 2016 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type NestedNested struct {
	Ccc int
	Ddd string
}

type Nested struct {
	Aaa  int
	Bbb  string
	More NestedNested
}

type Config struct {
	Foo int
	Bar string
	Baz string `json:"-"`
	Raw json.RawMessage
	Qux []string
	Box Nested
	Boq *Nested
	Arr []Nested
}

func TestLoad(t *testing.T) {
	tests := []struct {
		input  string
		output Config
		err    string
	}{
		{
			`{"foo": 42}`,
			Config{
				Foo: 42,
			},
			"",
		},
		{
			`{"BAR": "Baz", "foo": 42}`,
			Config{
				Foo: 42,
				Bar: "Baz",
			},
			"",
		},
		{
			`{"foobar": 42}`,
			Config{},
			`failed to parse config file: json: unknown field "foobar"`,
		},
		{
			`{"box": {"aaa": 12, "ccc": "bbb"}}`,
			Config{},
			`failed to parse config file: json: unknown field "ccc"`,
		},
		{
			`{"foo": 1, "box": {"aaa": 12, "bbb": "bbb"}}`,
			Config{
				Foo: 1,
				Box: Nested{
					Aaa: 12,
					Bbb: "bbb",
				},
			},
			"",
		},
		{
			`{"qux": ["aaa", "bbb"]}`,
			Config{
				Qux: []string{"aaa", "bbb"},
			},
			"",
		},
		{
			`{"foo": 1, "boq": {"aaa": 12, "more": {"ccc": 13, "ddd": "ddd"}}}`,
			Config{
				Foo: 1,
				Boq: &Nested{
					Aaa: 12,
					More: NestedNested{
						Ccc: 13,
						Ddd: "ddd",
					},
				},
			},
			"",
		},
		{
			`{"foo": 1, "arr": [{"aaa": 12, "bbb": "bbb"}, {"aaa": 13, "bbb": "ccc"}]}`,
			Config{
				Foo: 1,
				Arr: []Nested{
					{Aaa: 12, Bbb: "bbb"},
					{Aaa: 13, Bbb: "ccc"},
				},
			},
			"",
		},
		{
			`{"raw": {"zux": 11}}`,
			Config{
				Raw: []byte(`{"zux":11}`),
			},
			"",
		},
		{
			`{"foo": null, "qux": null}`,
			Config{},
			"",
		},
		{
			`
# comment
{
  # another comment
  "foo": 3
}`,
			Config{
				Foo: 3,
			},
			"",
		},
		{
			`
# yaml
foo: 7
bar: bar
arr:
  - aaa: 1
  - bbb: b
`,
			Config{
				Foo: 7,
				Bar: "bar",
				Arr: []Nested{{Aaa: 1}, {Bbb: "b"}},
			},
			"",
		},
		{
			"foo: [1",
			Config{},
			"failed to parse config file: error converting YAML to JSON",
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			var cfg Config
			err := LoadData([]byte(test.input), &cfg)
			if test.err != "" {
				require.Error(t, err)
				assert.True(t, strings.HasPrefix(err.Error(), test.err), "got %q", err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(test.output, cfg); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestLoadBadType(t *testing.T) {
	want := "config type is not pointer to struct"
	assert.EqualError(t, LoadData([]byte("{}"), 1), want)
	i := 0
	assert.EqualError(t, LoadData([]byte("{}"), &i), want)
	assert.EqualError(t, LoadData([]byte("{}"), struct{}{}), want)
}

func TestSaveLoad(t *testing.T) {
	cfg := Config{
		Foo: 1,
		Bar: "bar",
		Raw: json.RawMessage(`{"a":1}`),
		Qux: []string{"a", "b"},
		Boq: &Nested{Aaa: 2},
	}
	dir := t.TempDir()
	for _, name := range []string{"cfg.json", "cfg.yml"} {
		file := filepath.Join(dir, name)
		require.NoError(t, SaveFile(file, cfg))
		var cfg1 Config
		require.NoError(t, LoadFile(file, &cfg1))
		if diff := cmp.Diff(cfg, cfg1); diff != "" {
			t.Fatalf("%v: %v", name, diff)
		}
	}
	assert.EqualError(t, LoadFile("", &cfg), "no config file specified")
	assert.Error(t, LoadFile(filepath.Join(dir, "missing"), &cfg))
}
