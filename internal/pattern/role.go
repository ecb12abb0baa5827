/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package pattern holds the compiled regular expressions used both for
// first-line field-role inference (spec.md §4.2) and for URL truncation
// (spec.md §4.4), plus the on-disk truncation-pattern file format (spec.md
// §6). Regexes are compiled once at startup and are read-only afterward, so
// they're safe to share across every worker goroutine (spec.md §5).
package pattern

import "regexp"

// Role is the tagged variant assigned to a field position on the first
// line.
type Role int

const (
	UNKNOWN Role = iota
	RFC3339
	DATE
	TIME
	IPADDR
	USERAGENT
	REQUEST
	METHOD
	PROTOCOL
	DOMAIN
	ENDPOINT
)

func (r Role) String() string {
	switch r {
	case RFC3339:
		return "rfc3339"
	case DATE:
		return "date"
	case TIME:
		return "time"
	case IPADDR:
		return "ipaddr"
	case USERAGENT:
		return "useragent"
	case REQUEST:
		return "request"
	case METHOD:
		return "method"
	case PROTOCOL:
		return "protocol"
	case DOMAIN:
		return "domain"
	case ENDPOINT:
		return "endpoint"
	}
	return "unknown"
}

// RoleFromString parses a CLI --index role name (spec.md §6).
func RoleFromString(s string) (Role, bool) {
	switch s {
	case "rfc3339":
		return RFC3339, true
	case "date":
		return DATE, true
	case "time":
		return TIME, true
	case "ipaddr":
		return IPADDR, true
	case "useragent":
		return USERAGENT, true
	case "request":
		return REQUEST, true
	case "method":
		return METHOD, true
	case "protocol":
		return PROTOCOL, true
	case "domain":
		return DOMAIN, true
	case "endpoint":
		return ENDPOINT, true
	}
	return UNKNOWN, false
}

// RoleOrder is the declared inference order from spec.md §4.2 and §9: "Role
// inference must iterate roles in the declared order and accept the first
// match per position." DATE is a prefix of RFC3339 so RFC3339 must be tried
// first; METHOD/PROTOCOL can also match a bare REQUEST string so REQUEST is
// tried before them; DOMAIN and ENDPOINT are anchored at start to avoid
// matching arbitrary substrings of a REQUEST field.
var RoleOrder = []Role{
	RFC3339, DATE, TIME, IPADDR, USERAGENT, REQUEST, METHOD, PROTOCOL, DOMAIN, ENDPOINT,
}

// roleRegex is the default inference pattern for a role. Anchored with ^...$
// where the teacher's field-boundary convention (a Field is the exact
// tokenized span, never a substring) makes a full match the right
// semantics.
var roleRegex = map[Role]*regexp.Regexp{
	RFC3339:   regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
	DATE:      regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	TIME:      regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`),
	IPADDR:    regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$|^[0-9a-fA-F:]+:[0-9a-fA-F:]*$`),
	USERAGENT: regexp.MustCompile(`^(Mozilla|curl|Wget|python-requests|Go-http-client|okhttp).*`),
	REQUEST:   regexp.MustCompile(`^(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS|CONNECT|TRACE)\s+\S+`),
	METHOD:    regexp.MustCompile(`^(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS|CONNECT|TRACE)$`),
	PROTOCOL:  regexp.MustCompile(`^HTTP/\d(\.\d)?$`),
	DOMAIN:    regexp.MustCompile(`^[A-Za-z0-9.-]+\.[A-Za-z]{2,}(:\d+)?$`),
	ENDPOINT:  regexp.MustCompile(`^/\S*$`),
}

// Match reports whether field matches role's inference regex.
func Match(r Role, field []byte) bool {
	re := roleRegex[r]
	if re == nil {
		return false
	}
	return re.Match(field)
}
