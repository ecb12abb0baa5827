/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package worker partitions the mapped byte range into per-thread chunks
// and runs the scan loop over each (spec.md §4.7). Workers share the
// Request Set and Session Map but hold no lock across the two (spec.md
// §5): a worker never calls into sessionmap while still holding a reqset
// bucket lock or vice versa.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gravwell/apathy/internal/apathyerr"
	"github.com/gravwell/apathy/internal/fnv1a"
	"github.com/gravwell/apathy/internal/lineconfig"
	"github.com/gravwell/apathy/internal/logging"
	"github.com/gravwell/apathy/internal/pattern"
	"github.com/gravwell/apathy/internal/reqset"
	"github.com/gravwell/apathy/internal/scanner"
	"github.com/gravwell/apathy/internal/sessionmap"
	"github.com/gravwell/apathy/internal/timeparse"
)

// smallFileThreshold is spec.md §4.7's 4 MiB cutoff below which T is forced
// to 1 regardless of user request.
const smallFileThreshold = 4 * 1024 * 1024

// MaxThreads is the hard cap from spec.md §4.7/§6.
const MaxThreads = 4096

// ResolveThreadCount implements spec.md §4.7's T selection: forced to 1 for
// small files, else the user's request (validated), else NumCPU falling
// back to 4.
func ResolveThreadCount(fileSize int64, requested int) (int, error) {
	if fileSize < smallFileThreshold {
		return 1, nil
	}
	if requested != 0 {
		if requested < 0 || requested > MaxThreads {
			return 0, apathyerr.Config("worker.go", 0, "ResolveThreadCount",
				fmt.Sprintf("thread count %d out of range [1,%d]", requested, MaxThreads))
		}
		return requested, nil
	}
	if n := runtime.NumCPU(); n > 0 {
		return n, nil
	}
	return 4, nil
}

// Stats tallies what the pool observed, for the human-readable summary.
type Stats struct {
	LinesSeen    int64
	LinesSkipped int64
}

// Deps bundles the shared, read-only-after-construction inputs every worker
// needs.
type Deps struct {
	Buf      []byte
	Cfg      *lineconfig.Config
	Trunc    *pattern.Engine
	Requests *reqset.Set
	Sessions *sessionmap.Map
	Log      *logging.Logger
}

// Run partitions Buf into n equal-sized chunks (remainder to the last) and
// runs one goroutine per chunk, returning aggregate Stats. The first
// ResourceError/fatal ParseError cancels the shared context so the other
// workers stop at their next record boundary (spec.md §5's "no cooperative
// yielding" preserved — workers only check for cancellation between
// records, never mid-record).
func Run(ctx context.Context, d Deps, n int) (Stats, error) {
	total := len(d.Buf)
	chunk := total / n
	if chunk == 0 {
		chunk = total
		n = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make([]Stats, n)
	for i := 0; i < n; i++ {
		i := i
		start := i * chunk
		end := start + chunk
		if i == n-1 {
			end = total
		}
		g.Go(func() error {
			s, err := scanChunk(gctx, d, start, end)
			results[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var agg Stats
	for _, s := range results {
		agg.LinesSeen += s.LinesSeen
		agg.LinesSkipped += s.LinesSkipped
	}
	return agg, nil
}

func scanChunk(ctx context.Context, d Deps, start, end int) (Stats, error) {
	var stats Stats
	buf := d.Buf
	cursor := start
	if start != 0 {
		// Scanning from start-1 keeps a record that begins exactly at start
		// (the previous chunk stops before it) and skips only a straddling one.
		cursor = scanner.SkipLine(buf, start-1)
	}

	var fields []scanner.Field
	for cursor != scanner.EOF && cursor < end {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		var next int
		fields, next = scanner.Scan(buf, cursor, fields)

		if len(fields) != d.Cfg.NumFields {
			stats.LinesSkipped++
		} else {
			stats.LinesSeen++
			if err := processLine(d, buf, fields); err != nil {
				return stats, err
			}
		}

		if next == scanner.EOF {
			break
		}
		cursor = next
	}
	return stats, nil
}

// processLine walks the scan plan to extract timestamp, session
// contribution, and request components, then calls the Request Set and the
// Session Map (spec.md §4.7 step d-e).
func processLine(d Deps, buf []byte, fields []scanner.Field) error {
	var (
		tsMs                                         int64
		haveTS                                       bool
		sidHash                                      = fnv1a.Seed
		method, protocol, domain, endpoint, request []byte
	)

	for _, step := range d.Cfg.Plan {
		fv := fields[step.Index].Bytes(buf)
		switch step.Role {
		case pattern.RFC3339:
			ms, err := timeparse.RFC3339Millis(fv)
			if err != nil {
				return apathyerr.ParseFatal("worker.go", 0, "processLine", "malformed rfc3339 timestamp")
			}
			tsMs = ms
			haveTS = true
		case pattern.DATE:
			ms, err := timeparse.DateMillis(fv)
			if err != nil {
				return apathyerr.ParseFatal("worker.go", 0, "processLine", "malformed date field")
			}
			tsMs += ms
			haveTS = true
		case pattern.TIME:
			ms, err := timeparse.TimeMillis(fv)
			if err != nil {
				return apathyerr.ParseFatal("worker.go", 0, "processLine", "malformed time field")
			}
			tsMs += ms
			haveTS = true
		case pattern.IPADDR, pattern.USERAGENT:
			if step.SessionPart {
				sidHash = fnv1a.Sum64Seed(sidHash, fv)
			}
		case pattern.REQUEST:
			request = fv
		case pattern.METHOD:
			method = fv
		case pattern.PROTOCOL:
			protocol = fv
		case pattern.DOMAIN:
			domain = fv
		case pattern.ENDPOINT:
			endpoint = fv
		}
	}
	if !haveTS {
		return apathyerr.ParseFatal("worker.go", 0, "processLine", "no timestamp extracted")
	}

	raw, err := assembleRequest(method, protocol, domain, endpoint, request)
	if err != nil {
		return err
	}
	canon := d.Trunc.Apply(raw)
	if len(canon) > pattern.MaxAliasWarnLen && d.Log != nil {
		d.Log.Warn("truncated request exceeds warn threshold",
			logging.SD("len", fmt.Sprintf("%d", len(canon))))
	}

	rid := d.Requests.Intern(canon)
	d.Sessions.Amend(sidHash, tsMs, rid)
	return nil
}

// assembleRequest builds the raw pre-truncation request string per spec.md
// §4.5 step 1: either a pre-joined REQUEST field truncated at '?' or '"',
// or method + " " + optional protocol + "://" + domain + endpoint.
func assembleRequest(method, protocol, domain, endpoint, request []byte) (string, error) {
	if request != nil {
		if i := bytes.IndexAny(request, "?\""); i >= 0 {
			request = request[:i]
		}
		if bytes.IndexByte(request, 0) >= 0 {
			return "", apathyerr.ParseFatal("worker.go", 0, "assembleRequest", "NUL byte inside request field")
		}
		return string(request), nil
	}

	for _, part := range [][]byte{method, domain, endpoint} {
		if bytes.IndexByte(part, 0) >= 0 || bytes.IndexAny(part, " \t\v") >= 0 {
			return "", apathyerr.ParseFatal("worker.go", 0, "assembleRequest", "unexpected whitespace inside request component")
		}
	}

	var b bytes.Buffer
	b.Write(method)
	b.WriteByte(' ')
	if len(protocol) > 0 {
		b.Write(protocol)
		b.WriteString("://")
	}
	b.Write(domain)
	b.Write(endpoint)
	return b.String(), nil
}
