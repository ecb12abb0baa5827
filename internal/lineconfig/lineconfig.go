/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package lineconfig assigns a FieldRole to each field index on the access
// log's first line, honoring user --index overrides ahead of regex
// inference, and derives the scan plan the Worker Pool's hot loop walks on
// every subsequent line (spec.md §4.2).
package lineconfig

import (
	"fmt"

	"github.com/gravwell/apathy/internal/apathyerr"
	"github.com/gravwell/apathy/internal/logging"
	"github.com/gravwell/apathy/internal/pattern"
	"github.com/gravwell/apathy/internal/scanner"
)

// PlanStep is one instruction in the scan plan: read field at Index with
// Role, and if SessionPart, fold it into the session hash.
type PlanStep struct {
	Role        pattern.Role
	Index       int
	SessionPart bool
}

// Config is the fully resolved, read-only-after-construction first-line
// configuration (spec.md §3's LineConfig entity).
type Config struct {
	NumFields int
	RoleOf    []pattern.Role // indexed by field position, len == NumFields
	Plan      []PlanStep

	// Assigned is the full role->index map, including roles that Plan does
	// not read (for example IPADDR or USERAGENT when they are not selected
	// for the session hash). Read-only after Infer returns.
	Assigned map[pattern.Role]int
}

// Overrides is the parsed --index flag: role -> 0-based field index.
type Overrides map[pattern.Role]int

// SessionRoles is the parsed --session flag: which of {ipaddr, useragent}
// contribute to the session hash.
type SessionRoles struct {
	IPAddr    bool
	UserAgent bool
}

// Infer builds a Config from the tokenized first-line fields, applying
// overrides first and falling back to regex inference for any role the
// user didn't pin (spec.md §4.2).
func Infer(firstLine []byte, fields []scanner.Field, overrides Overrides, session SessionRoles, log *logging.Logger) (*Config, error) {
	n := len(fields)
	if n == 0 {
		return nil, apathyerr.Config("lineconfig.go", 0, "Infer", "first line has no fields")
	}
	roleOf := make([]pattern.Role, n)
	assignedTo := make(map[pattern.Role]int)

	for role, idx := range overrides {
		if idx < 0 || idx >= n {
			return nil, apathyerr.Config("lineconfig.go", 0, "Infer",
				fmt.Sprintf("--index override for %s is out of range (field count %d)", role, n))
		}
		if roleOf[idx] != pattern.UNKNOWN {
			return nil, apathyerr.Config("lineconfig.go", 0, "Infer",
				fmt.Sprintf("field %d assigned both %s and %s by --index", idx, roleOf[idx], role))
		}
		roleOf[idx] = role
		assignedTo[role] = idx
	}

	for _, role := range pattern.RoleOrder {
		if _, already := assignedTo[role]; already {
			continue // user override wins
		}
		matchIdx := -1
		for i := 0; i < n; i++ {
			if roleOf[i] != pattern.UNKNOWN {
				continue // position already claimed
			}
			if pattern.Match(role, fields[i].Bytes(firstLine)) {
				if matchIdx != -1 {
					if log != nil {
						log.Warn("ambiguous role inference, set --index explicitly",
							logging.SD("role", role.String()),
							logging.SD("field_a", fmt.Sprintf("%d", matchIdx)),
							logging.SD("field_b", fmt.Sprintf("%d", i)))
					}
					continue
				}
				matchIdx = i
			}
		}
		if matchIdx != -1 {
			roleOf[matchIdx] = role
			assignedTo[role] = matchIdx
		}
	}

	cfg := &Config{NumFields: n, RoleOf: roleOf, Assigned: assignedTo}
	if err := cfg.buildPlan(assignedTo, session); err != nil {
		return nil, err
	}
	if _, ok := assignedTo[pattern.REQUEST]; !ok && log != nil {
		if _, ok := assignedTo[pattern.PROTOCOL]; !ok {
			log.Warn("optional protocol field not found, request strings carry no scheme")
		}
	}
	return cfg, nil
}

// buildPlan assembles the ordered scan plan per spec.md §4.2: time inputs,
// then session-contributing fields, then request inputs.
func (c *Config) buildPlan(assignedTo map[pattern.Role]int, session SessionRoles) error {
	var plan []PlanStep

	if idx, ok := assignedTo[pattern.RFC3339]; ok {
		plan = append(plan, PlanStep{Role: pattern.RFC3339, Index: idx})
	} else {
		di, dok := assignedTo[pattern.DATE]
		ti, tok := assignedTo[pattern.TIME]
		if !dok || !tok {
			return apathyerr.Config("lineconfig.go", 0, "buildPlan",
				"no usable timestamp source: need rfc3339, or both date and time")
		}
		plan = append(plan, PlanStep{Role: pattern.DATE, Index: di}, PlanStep{Role: pattern.TIME, Index: ti})
	}

	if session.IPAddr {
		idx, ok := assignedTo[pattern.IPADDR]
		if !ok {
			return apathyerr.Config("lineconfig.go", 0, "buildPlan", "session requires ipaddr but no ipaddr field was assigned")
		}
		plan = append(plan, PlanStep{Role: pattern.IPADDR, Index: idx, SessionPart: true})
	}
	if session.UserAgent {
		idx, ok := assignedTo[pattern.USERAGENT]
		if !ok {
			return apathyerr.Config("lineconfig.go", 0, "buildPlan", "session requires useragent but no useragent field was assigned")
		}
		plan = append(plan, PlanStep{Role: pattern.USERAGENT, Index: idx, SessionPart: true})
	}

	if idx, ok := assignedTo[pattern.REQUEST]; ok {
		plan = append(plan, PlanStep{Role: pattern.REQUEST, Index: idx})
	} else {
		mi, mok := assignedTo[pattern.METHOD]
		doi, dook := assignedTo[pattern.DOMAIN]
		ei, eok := assignedTo[pattern.ENDPOINT]
		if !mok || !dook || !eok {
			return apathyerr.Config("lineconfig.go", 0, "buildPlan",
				"no usable request source: need request, or method+domain+endpoint")
		}
		plan = append(plan, PlanStep{Role: pattern.METHOD, Index: mi})
		if pi, pok := assignedTo[pattern.PROTOCOL]; pok {
			plan = append(plan, PlanStep{Role: pattern.PROTOCOL, Index: pi})
		}
		plan = append(plan,
			PlanStep{Role: pattern.DOMAIN, Index: doi},
			PlanStep{Role: pattern.ENDPOINT, Index: ei},
		)
	}

	c.Plan = plan
	return nil
}
