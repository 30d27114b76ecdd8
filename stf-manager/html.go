// Copyright 2015 statefuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/statefuzz/statefuzz/pkg/log"
	"github.com/statefuzz/statefuzz/pkg/signal"
	"github.com/statefuzz/statefuzz/pkg/stat"
	"github.com/statefuzz/statefuzz/pkg/statetable"
)

func (mgr *Manager) initHTTP(ctx context.Context) error {
	ln, err := net.Listen("tcp", mgr.cfg.HTTP)
	if err != nil {
		return fmt.Errorf("failed to listen on %v: %w", mgr.cfg.HTTP, err)
	}
	log.Logf(0, "serving http on http://%v", ln.Addr())
	srv := &http.Server{
		Handler:           mgr.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve http: %v", err)
		}
	}()
	return nil
}

func (mgr *Manager) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", mgr.httpSummary)
	mux.HandleFunc("/cover", mgr.httpCover)
	mux.HandleFunc("/crash", mgr.httpCrash)
	mux.Handle("/metrics", promhttp.Handler())
	return handlers.CompressHandler(mux)
}

type UISummaryData struct {
	Name     string
	Target   string
	Campaign string
	Stats    []stat.UI
	Signal   []UISignalPrio
	Crashes  []UICrash
	Log      string
}

// UISignalPrio is the number of max signal features in one hit count bucket.
type UISignalPrio struct {
	Prio  int
	Count int
}

type UICrash struct {
	ID    string
	Title string
	Count int
	Size  int
}

type UICrashData struct {
	UICrash
	Input  string
	Report string
}

func (mgr *Manager) httpSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := &UISummaryData{
		Name:     mgr.cfg.Name,
		Target:   mgr.target.Name,
		Campaign: mgr.fuzzer.Config.Campaign,
		Stats:    stat.Collect(stat.All),
		Log:      log.CachedLogOutput(),
	}
	data.Stats = append(data.Stats, stat.UI{
		Name:  "exec time p99",
		Desc:  "99th percentile of execution time",
		Value: mgr.fuzzer.ExecTimeQuantile(0.99).String(),
	})
	data.Signal = signalPrios(mgr.fuzzer.Cover.CopyMaxSignal())
	for _, crash := range mgr.fuzzer.Crashes() {
		data.Crashes = append(data.Crashes, UICrash{
			ID:    crash.ID(),
			Title: crash.Title,
			Count: crash.Count,
			Size:  len(crash.Input),
		})
	}
	executeTemplate(w, summaryTemplate, data)
}

func signalPrios(sign signal.Signal) []UISignalPrio {
	counts := make(map[int]int)
	for _, elem := range sign.Elems() {
		prio, _ := sign.Prio(elem)
		counts[int(prio)]++
	}
	var res []UISignalPrio
	for prio := 0; prio <= int(signal.Prio(statetable.MaxCounter)); prio++ {
		if counts[prio] != 0 {
			res = append(res, UISignalPrio{Prio: prio, Count: counts[prio]})
		}
	}
	return res
}

func (mgr *Manager) httpCover(w http.ResponseWriter, r *http.Request) {
	all := r.FormValue("all") != ""
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := mgr.fuzzer.PrintCoverage(w, all); err != nil {
		http.Error(w, fmt.Sprintf("failed to print coverage: %v", err), http.StatusInternalServerError)
	}
}

func (mgr *Manager) httpCrash(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	for _, crash := range mgr.fuzzer.Crashes() {
		if crash.ID() != id {
			continue
		}
		executeTemplate(w, crashTemplate, &UICrashData{
			UICrash: UICrash{
				ID:    id,
				Title: crash.Title,
				Count: crash.Count,
				Size:  len(crash.Input),
			},
			Input:  fmt.Sprintf("%q", crash.Input),
			Report: string(crash.Output),
		})
		return
	}
	http.Error(w, fmt.Sprintf("can't find crash %v", id), http.StatusNotFound)
}

func executeTemplate(w http.ResponseWriter, templ *template.Template, data any) {
	if err := templ.Execute(w, data); err != nil {
		http.Error(w, fmt.Sprintf("failed to execute template: %v", err), http.StatusInternalServerError)
	}
}

var summaryTemplate = template.Must(template.New("").Parse(addStyle(`
<!doctype html>
<html>
<head>
	<title>{{.Name}} statefuzz</title>
	{{STYLE}}
</head>
<body>
<b>{{.Name}} statefuzz</b> target {{.Target}}, campaign {{.Campaign}}
<br>
<br>

<table>
	<caption>Stats:</caption>
	{{range $s := $.Stats}}
	<tr>
		<td title="{{$s.Desc}}">{{$s.Name}}</td>
		<td>{{$s.Value}}</td>
	</tr>
	{{end}}
	<tr>
		<td>coverage</td>
		<td><a href="/cover">hits</a> <a href="/cover?all=1">counters</a></td>
	</tr>
</table>
<br>

<table>
	<caption>Max signal by hit count bucket:</caption>
	<tr>
		<th>Bucket</th>
		<th>Features</th>
	</tr>
	{{range $p := $.Signal}}
	<tr>
		<td>{{$p.Prio}}</td>
		<td>{{$p.Count}}</td>
	</tr>
	{{end}}
</table>
<br>

<table>
	<caption>Crashes:</caption>
	<tr>
		<th>Description</th>
		<th>Count</th>
		<th>Input size</th>
	</tr>
	{{range $c := $.Crashes}}
	<tr>
		<td><a href="/crash?id={{$c.ID}}">{{$c.Title}}</a></td>
		<td>{{$c.Count}}</td>
		<td>{{$c.Size}}</td>
	</tr>
	{{end}}
</table>
<br>

<b>Log:</b>
<br>
<textarea id="log_textarea" readonly rows="20">
{{.Log}}
</textarea>
<script>
	var textarea = document.getElementById("log_textarea");
	textarea.scrollTop = textarea.scrollHeight;
</script>
</body></html>
`)))

var crashTemplate = template.Must(template.New("").Parse(addStyle(`
<!doctype html>
<html>
<head>
	<title>{{.Title}}</title>
	{{STYLE}}
</head>
<body>
<b>{{.Title}}</b>
<br><br>
Count: {{.Count}}
<br><br>
<b>Input ({{.Size}} bytes):</b>
<pre>{{.Input}}</pre>
<b>Report:</b>
<pre>{{.Report}}</pre>
</body></html>
`)))

func addStyle(html string) string {
	return strings.ReplaceAll(html, "{{STYLE}}", htmlStyle)
}

const htmlStyle = `
	<style type="text/css" media="screen">
		table {
			border-collapse:collapse;
			border:1px solid;
		}
		table caption {
			font-weight: bold;
		}
		table td {
			border:1px solid;
			padding: 3px;
		}
		table th {
			border:1px solid;
			padding: 3px;
		}
		textarea {
			width:100%;
		}
	</style>
`
