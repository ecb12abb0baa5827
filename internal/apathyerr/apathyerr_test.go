/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package apathyerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigIsErrConfig(t *testing.T) {
	err := Config("foo.go", 12, "Bar", "bad value")
	require.True(t, errors.Is(err, ErrConfig))
	require.False(t, errors.Is(err, ErrIO))
	require.Contains(t, err.Error(), "foo.go:12")
	require.Contains(t, err.Error(), "Bar")
	require.Contains(t, err.Error(), "bad value")
}

func TestConfigfWrapsCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Configf("foo.go", 1, "Bar", "wrapping", cause)
	require.True(t, errors.Is(err, ErrConfig))
	require.Contains(t, err.Error(), "underlying")
}

func TestIOWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := IO("fmap.go", 44, "Open", "opening input file", cause)
	require.True(t, errors.Is(err, ErrIO))
	require.False(t, errors.Is(err, ErrParse))
	require.Contains(t, err.Error(), "disk full")
}

func TestParseFatalHasNoCause(t *testing.T) {
	err := ParseFatal("worker.go", 99, "processLine", "NUL byte inside request field")
	require.True(t, errors.Is(err, ErrParse))
	require.NotContains(t, err.Error(), "%!v")
}

func TestResourceWrapsCause(t *testing.T) {
	cause := errors.New("out of memory")
	err := Resource("reqset.go", 7, "New", "failed to allocate bucket table", cause)
	require.True(t, errors.Is(err, ErrResource))
	require.Contains(t, err.Error(), "out of memory")
}

func TestDistinctSentinelsAreDistinguishable(t *testing.T) {
	c := Config("a.go", 1, "A", "x")
	i := IO("b.go", 2, "B", "y", errors.New("z"))
	require.False(t, errors.Is(c, ErrIO))
	require.False(t, errors.Is(i, ErrConfig))
}
