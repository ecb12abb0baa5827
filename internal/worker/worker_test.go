/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package worker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/apathy/internal/lineconfig"
	"github.com/gravwell/apathy/internal/pathgraph"
	"github.com/gravwell/apathy/internal/pattern"
	"github.com/gravwell/apathy/internal/reqset"
	"github.com/gravwell/apathy/internal/scanner"
	"github.com/gravwell/apathy/internal/sessionmap"
)

func buildDeps(t *testing.T, buf []byte, session lineconfig.SessionRoles) Deps {
	t.Helper()
	firstLine := buf
	if i := strings.IndexByte(string(buf), '\n'); i >= 0 {
		firstLine = buf[:i]
	}
	fields, _ := scanner.Scan(firstLine, 0, nil)
	cfg, err := lineconfig.Infer(firstLine, fields, nil, session, nil)
	require.NoError(t, err)
	return Deps{
		Buf:      buf,
		Cfg:      cfg,
		Trunc:    pattern.NewEngine(nil),
		Requests: reqset.New(),
		Sessions: sessionmap.New(),
	}
}

func TestS1EndToEnd(t *testing.T) {
	buf := []byte(
		"2024-01-01T00:00:00.000 10.0.0.1 \"GET http://x/a\" \"Mozilla/5.0\"\n" +
			"2024-01-01T00:00:01.000 10.0.0.1 \"GET http://x/b\" \"Mozilla/5.0\"\n")
	d := buildDeps(t, buf, lineconfig.SessionRoles{UserAgent: true})

	stats, err := Run(context.Background(), d, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.LinesSeen)
	require.Equal(t, 2, d.Requests.Len())

	g := pathgraph.Build(d.Sessions, d.Requests.Len())
	require.Equal(t, int64(2), g.TotalHits)
	require.Equal(t, int64(1), g.TotalEdges)
}

func TestProtocolSchemeIncludedInCanonicalRequest(t *testing.T) {
	buf := []byte(
		"2024-01-01T00:00:00.000 10.0.0.1 GET HTTP/1.1 example.com /a \"Mozilla/5.0\"\n")
	firstLine := buf[:len(buf)-1]
	fields, _ := scanner.Scan(firstLine, 0, nil)
	overrides := lineconfig.Overrides{
		pattern.RFC3339:   0,
		pattern.IPADDR:    1,
		pattern.METHOD:    2,
		pattern.PROTOCOL:  3,
		pattern.DOMAIN:    4,
		pattern.ENDPOINT:  5,
		pattern.USERAGENT: 6,
	}
	cfg, err := lineconfig.Infer(firstLine, fields, overrides, lineconfig.SessionRoles{UserAgent: true}, nil)
	require.NoError(t, err)

	requests := reqset.New()
	d := Deps{
		Buf:      buf,
		Cfg:      cfg,
		Trunc:    pattern.NewEngine(nil),
		Requests: requests,
		Sessions: sessionmap.New(),
	}
	_, err = Run(context.Background(), d, 1)
	require.NoError(t, err)

	table := requests.BuildTable()
	require.Equal(t, []string{"GET HTTP/1.1://example.com/a"}, table.Canonical)
}

func TestS5SkipsMalformedLine(t *testing.T) {
	buf := []byte(
		"2024-01-01T00:00:00.000 10.0.0.1 \"GET http://x/a\" \"Mozilla/5.0\"\n" +
			"2024-01-01T00:00:01.000 10.0.0.1 \"GET http://x/b\"\n")
	d := buildDeps(t, buf, lineconfig.SessionRoles{UserAgent: true})

	stats, err := Run(context.Background(), d, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.LinesSeen)
	require.Equal(t, int64(1), stats.LinesSkipped)
}

func TestThreadCountIsomorphism(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("2024-01-01T00:00:")
		b.WriteByte(byte('0' + (i % 60) / 10))
		b.WriteString("0.000 10.0.0.1 \"GET http://x/a\" \"Mozilla/5.0\"\n")
	}
	buf := []byte(b.String())

	d1 := buildDeps(t, buf, lineconfig.SessionRoles{UserAgent: true})
	_, err := Run(context.Background(), d1, 1)
	require.NoError(t, err)

	d4 := buildDeps(t, buf, lineconfig.SessionRoles{UserAgent: true})
	_, err = Run(context.Background(), d4, 4)
	require.NoError(t, err)

	require.Equal(t, d1.Requests.Len(), d4.Requests.Len())
	require.Equal(t, d1.Sessions.SessionCount(), d4.Sessions.SessionCount())
}

func TestResolveThreadCount(t *testing.T) {
	n, err := ResolveThreadCount(1024, 7)
	require.NoError(t, err)
	require.Equal(t, 1, n) // small file forces T=1 regardless of request

	n, err = ResolveThreadCount(10*1024*1024, 3)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = ResolveThreadCount(10*1024*1024, MaxThreads+1)
	require.Error(t, err)
}
