/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command apathy turns an HTTP access log into a path graph: vertices are
// distinct (method, URL) requests, edges are observed chronological
// transitions within a session. See spec.md / SPEC_FULL.md §6 for the full
// CLI contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/dchest/safefile"
	"github.com/inhies/go-bytesize"
	"golang.org/x/term"

	"github.com/gravwell/apathy/internal/apathyerr"
	"github.com/gravwell/apathy/internal/fmap"
	"github.com/gravwell/apathy/internal/lineconfig"
	"github.com/gravwell/apathy/internal/logging"
	"github.com/gravwell/apathy/internal/output"
	"github.com/gravwell/apathy/internal/pathgraph"
	"github.com/gravwell/apathy/internal/pattern"
	"github.com/gravwell/apathy/internal/reqset"
	"github.com/gravwell/apathy/internal/scanner"
	"github.com/gravwell/apathy/internal/sessionmap"
	"github.com/gravwell/apathy/internal/worker"
)

const version = "0.1.0"

var (
	concurrency = flag.Int("C", 0, "thread count (1-4096), 0 = auto")
	concurrencyLong = flag.Int("concurrency", 0, "alias of -C")
	format      = flag.String("f", "", "output format (default dot-graph)")
	formatLong  = flag.String("format", "", "alias of -f")
	indexSpec   = flag.String("i", "", "comma list of role=index overrides")
	indexLong   = flag.String("index", "", "alias of -i")
	truncPath   = flag.String("T", "", "path to truncation pattern file")
	truncLong   = flag.String("truncate-patterns", "", "alias of -T")
	outPath     = flag.String("o", "", "output path, - for stdout (default -)")
	outLong     = flag.String("output", "", "alias of -o")
	sessionSpec = flag.String("S", "", "comma list of session-contributing field roles")
	sessionLong = flag.String("session", "", "alias of -S")
	showVersion = flag.Bool("V", false, "print version and exit")
	showVersionLong = flag.Bool("version", false, "alias of -V")
)

func main() {
	debug.SetTraceback("all")
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("apathy %s\n", version)
		os.Exit(0)
	}

	log := logging.NewStderr()

	args := flag.Args()
	if len(args) != 1 {
		log.FatalCode(1, "exactly one access log path is required", logging.SD("args", fmt.Sprintf("%d", len(args))))
	}
	inPath := args[0]

	conc := firstNonZero(*concurrency, *concurrencyLong)
	fmt_ := firstNonEmpty(*format, *formatLong, string(output.DotGraph))
	idx := firstNonEmpty(*indexSpec, *indexLong, "")
	trunc := firstNonEmpty(*truncPath, *truncLong, "")
	out := firstNonEmpty(*outPath, *outLong, "-")
	sess := firstNonEmpty(*sessionSpec, *sessionLong, "")

	if !output.ValidFormat(fmt_) {
		log.FatalCode(1, "unknown output format", logging.SD("format", fmt_))
	}

	overrides, err := parseIndexSpec(idx)
	if err != nil {
		log.FatalCode(1, "invalid --index", logging.SD("error", err.Error()))
	}
	sessionRoles, err := parseSessionSpec(sess)
	if err != nil {
		log.FatalCode(1, "invalid --session", logging.SD("error", err.Error()))
	}

	var truncRules []pattern.Rule
	if trunc != "" {
		f, ferr := os.Open(trunc)
		if ferr != nil {
			log.FatalCode(1, "failed to open truncation pattern file", logging.SD("path", trunc), logging.SD("error", ferr.Error()))
		}
		truncRules, err = pattern.LoadRules(f)
		f.Close()
		if err != nil {
			log.FatalCode(1, "failed to parse truncation pattern file", logging.SD("path", trunc), logging.SD("error", err.Error()))
		}
	}
	truncEngine := pattern.NewEngine(truncRules)

	start := time.Now()
	mapped, err := fmap.Open(inPath)
	if err != nil {
		log.FatalCode(1, "failed to map input file", logging.SD("path", inPath), logging.SD("error", err.Error()))
	}
	defer mapped.Close()

	interactive := term.IsTerminal(int(os.Stderr.Fd()))
	if interactive {
		fmt.Fprintf(os.Stderr, "apathy: mapped %s (%s)\n", inPath, bytesize.New(float64(mapped.Size())))
	}

	firstLineEnd := scanner.SkipLine(mapped.Bytes, 0)
	firstLine := mapped.Bytes
	if firstLineEnd != scanner.EOF {
		firstLine = mapped.Bytes[:firstLineEnd-1]
	}
	firstFields, _ := scanner.Scan(firstLine, 0, nil)
	cfg, err := lineconfig.Infer(firstLine, firstFields, overrides, sessionRoles, log)
	if err != nil {
		log.FatalCode(1, "failed to derive line configuration", logging.SD("error", err.Error()))
	}

	threadCount, err := worker.ResolveThreadCount(mapped.Size(), conc)
	if err != nil {
		log.FatalCode(1, "invalid thread count", logging.SD("error", err.Error()))
	}

	requests := reqset.New()
	sessions := sessionmap.New()
	deps := worker.Deps{
		Buf:      mapped.Bytes,
		Cfg:      cfg,
		Trunc:    truncEngine,
		Requests: requests,
		Sessions: sessions,
		Log:      log,
	}

	stats, err := worker.Run(context.Background(), deps, threadCount)
	if err != nil {
		log.FatalCode(1, "worker pool aborted", logging.SD("error", err.Error()))
	}

	table := requests.BuildTable()
	graph := pathgraph.Build(sessions, requests.Len())

	if interactive {
		fmt.Fprintf(os.Stderr, "apathy: %d lines (%d skipped), %d requests, %d sessions, %d edges in %s\n",
			stats.LinesSeen, stats.LinesSkipped, requests.Len(), sessions.SessionCount(), graph.TotalEdges, time.Since(start))
	}

	if err := writeOutput(out, graph, table); err != nil {
		log.FatalCode(1, "failed to write output", logging.SD("path", out), logging.SD("error", err.Error()))
	}
}

// writeOutput renders the graph to stdout, or atomically to path via
// safefile so a crash mid-render never clobbers a previously-good file.
func writeOutput(path string, g *pathgraph.Graph, table *reqset.Table) error {
	if path == "-" {
		return output.Emit(os.Stdout, g, table)
	}
	f, err := safefile.Create(path, 0644)
	if err != nil {
		return err
	}
	if err := output.Emit(f, g, table); err != nil {
		f.Close()
		return err
	}
	return f.Commit()
}

func parseIndexSpec(spec string) (lineconfig.Overrides, error) {
	if spec == "" {
		return nil, nil
	}
	out := make(lineconfig.Overrides)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, apathyerr.Config("main.go", 0, "parseIndexSpec", fmt.Sprintf("malformed role=index pair %q", part))
		}
		role, ok := pattern.RoleFromString(strings.TrimSpace(kv[0]))
		if !ok {
			return nil, apathyerr.Config("main.go", 0, "parseIndexSpec", fmt.Sprintf("unknown role %q", kv[0]))
		}
		idx, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, apathyerr.Configf("main.go", 0, "parseIndexSpec", fmt.Sprintf("invalid index in %q", part), err)
		}
		out[role] = idx
	}
	return out, nil
}

func parseSessionSpec(spec string) (lineconfig.SessionRoles, error) {
	var sr lineconfig.SessionRoles
	if spec == "" {
		return sr, nil
	}
	for _, part := range strings.Split(spec, ",") {
		switch strings.TrimSpace(part) {
		case "ipaddr":
			sr.IPAddr = true
		case "useragent":
			sr.UserAgent = true
		case "":
		default:
			return sr, apathyerr.Config("main.go", 0, "parseSessionSpec", fmt.Sprintf("unknown session role %q", part))
		}
	}
	return sr, nil
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func usage() {
	fmt.Fprintf(os.Stderr, `apathy - build a request path graph from an HTTP access log

Usage: apathy [flags] <access-log>

Flags:
  -C, --concurrency <n>          thread count; 1 <= n <= 4096
  -f, --format <fmt>             output format (dot-graph)
  -i, --index <role=index,...>   field-role overrides
  -T, --truncate-patterns <path> path to URL truncation pattern file
  -o, --output <path>            output path, - for stdout (default -)
  -S, --session <role,...>       session-contributing roles (ipaddr, useragent)
  -h, --help                     this message
  -V, --version                  print version and exit
`)
}
