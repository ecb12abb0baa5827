/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package lineconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/apathy/internal/pattern"
	"github.com/gravwell/apathy/internal/scanner"
)

func TestInferS1(t *testing.T) {
	line := []byte(`2024-01-01T00:00:00.000 10.0.0.1 "GET http://x/a" "Mozilla/5.0"`)
	fields, _ := scanner.Scan(line, 0, nil)
	cfg, err := Infer(line, fields, nil, SessionRoles{UserAgent: true}, nil)
	require.NoError(t, err)
	require.Equal(t, pattern.RFC3339, cfg.RoleOf[0])
	require.Equal(t, pattern.IPADDR, cfg.RoleOf[1])
	require.Equal(t, pattern.REQUEST, cfg.RoleOf[2])
	require.Equal(t, pattern.USERAGENT, cfg.RoleOf[3])
	require.Len(t, cfg.Plan, 3) // rfc3339, useragent(session), request
}

func TestInferMissingTimestampIsFatal(t *testing.T) {
	line := []byte(`10.0.0.1 "GET http://x/a"`)
	fields, _ := scanner.Scan(line, 0, nil)
	_, err := Infer(line, fields, nil, SessionRoles{}, nil)
	require.Error(t, err)
}

func TestInferOverrideWins(t *testing.T) {
	line := []byte(`10.0.0.1 2024-01-01T00:00:00.000 "GET http://x/a"`)
	fields, _ := scanner.Scan(line, 0, nil)
	overrides := Overrides{pattern.IPADDR: 0, pattern.RFC3339: 1, pattern.REQUEST: 2}
	cfg, err := Infer(line, fields, overrides, SessionRoles{}, nil)
	require.NoError(t, err)
	require.Equal(t, pattern.IPADDR, cfg.RoleOf[0])
	require.Equal(t, pattern.RFC3339, cfg.RoleOf[1])
}

func TestInferDateTimeSource(t *testing.T) {
	line := []byte(`2024-01-01 00:00:01 "GET http://x/a"`)
	fields, _ := scanner.Scan(line, 0, nil)
	cfg, err := Infer(line, fields, nil, SessionRoles{}, nil)
	require.NoError(t, err)
	require.Equal(t, pattern.DATE, cfg.Plan[0].Role)
	require.Equal(t, pattern.TIME, cfg.Plan[1].Role)
}

func TestInferMethodDomainEndpointPlanIncludesProtocol(t *testing.T) {
	line := []byte(`2024-01-01T00:00:00.000 GET HTTP/1.1 example.com /a`)
	fields, _ := scanner.Scan(line, 0, nil)
	overrides := Overrides{
		pattern.RFC3339:  0,
		pattern.METHOD:   1,
		pattern.PROTOCOL: 2,
		pattern.DOMAIN:   3,
		pattern.ENDPOINT: 4,
	}
	cfg, err := Infer(line, fields, overrides, SessionRoles{}, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Plan, 5) // rfc3339, method, protocol, domain, endpoint
	require.Equal(t, pattern.METHOD, cfg.Plan[1].Role)
	require.Equal(t, pattern.PROTOCOL, cfg.Plan[2].Role)
	require.Equal(t, pattern.DOMAIN, cfg.Plan[3].Role)
	require.Equal(t, pattern.ENDPOINT, cfg.Plan[4].Role)
}

func TestInferOutOfRangeOverride(t *testing.T) {
	line := []byte(`2024-01-01T00:00:00.000 "GET http://x/a"`)
	fields, _ := scanner.Scan(line, 0, nil)
	overrides := Overrides{pattern.IPADDR: 5}
	_, err := Infer(line, fields, overrides, SessionRoles{}, nil)
	require.Error(t, err)
}
