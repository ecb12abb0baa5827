/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package timeparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRFC3339MillisMonotonic(t *testing.T) {
	a, err := RFC3339Millis([]byte("2024-01-01T00:00:00.000"))
	require.NoError(t, err)
	b, err := RFC3339Millis([]byte("2024-01-01T00:00:01.000"))
	require.NoError(t, err)
	require.Equal(t, int64(1000), b-a)
}

func TestDateTimeComposesToRFC3339(t *testing.T) {
	date, err := DateMillis([]byte("2024-01-01"))
	require.NoError(t, err)
	tm, err := TimeMillis([]byte("00:00:01"))
	require.NoError(t, err)
	rfc, err := RFC3339Millis([]byte("2024-01-01T00:00:01.000"))
	require.NoError(t, err)
	require.Equal(t, rfc, date+tm)
}

func TestBadDigit(t *testing.T) {
	_, err := RFC3339Millis([]byte("2024-0X-01T00:00:00.000"))
	require.ErrorIs(t, err, ErrBadDigit)
}
