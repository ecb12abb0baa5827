/*************************************************************************
 * Copyright 2026 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package pattern

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// MaxPatterns is the cap on truncation patterns from spec.md §4.4/§6.
const MaxPatterns = 512

// MaxAliasWarnLen is the canonical-request byte length past which the Worker
// Pool logs a non-fatal warning after truncation (spec.md §7: "truncation
// over the 4096-byte cap"). Engine itself never logs.
const MaxAliasWarnLen = 4096

// Rule is a single (compiled regex -> alias) truncation substitution.
type Rule struct {
	Regex *regexp.Regexp
	Alias string
}

// Engine applies an ordered, immutable list of truncation Rules to a raw
// request string. The rule list never changes after LoadRules returns, so
// Engine is safe for concurrent read from every worker goroutine (spec.md
// §5).
type Engine struct {
	rules        []Rule
	maxAliasLen  int
}

// NewEngine builds an Engine from a rule list already capped to
// MaxPatterns by the caller.
func NewEngine(rules []Rule) *Engine {
	max := 0
	for _, r := range rules {
		if len(r.Alias) > max {
			max = len(r.Alias)
		}
	}
	return &Engine{rules: rules, maxAliasLen: max}
}

// MaxAliasLen returns the cached longest alias length.
func (e *Engine) MaxAliasLen() int {
	return e.maxAliasLen
}

// Apply runs every rule over raw in order, each operating on the result of
// the previous rule (spec.md §4.4). If no rule matches anywhere, raw is
// returned unmodified — the passthrough case.
func (e *Engine) Apply(raw string) string {
	if e == nil || len(e.rules) == 0 {
		return raw
	}
	cur := raw
	for _, rule := range e.rules {
		cur = applyRule(rule, cur)
	}
	return cur
}

// applyRule repeatedly finds the next non-overlapping match of rule.Regex
// in s, emitting the prefix plus the alias, then advancing past the match.
func applyRule(rule Rule, s string) string {
	locs := rule.Regex.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prev := 0
	for _, loc := range locs {
		b.WriteString(s[prev:loc[0]])
		b.WriteString(rule.Alias)
		prev = loc[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}

// LoadRules parses the truncation-pattern file format from spec.md §4.4/§6:
// UTF-8 text; blank lines and "#"-prefixed lines ignored, leading/trailing
// whitespace stripped; a line of the form "$NAME = REGEX" (spaces around
// "=" optional) declares an alias of "$NAME"; any other trimmed line is
// both pattern and alias. At most MaxPatterns rules.
func LoadRules(r io.Reader) ([]Rule, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var rules []Rule
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(rules) >= MaxPatterns {
			return nil, fmt.Errorf("truncate-patterns:%d: exceeds maximum of %d patterns", lineNo, MaxPatterns)
		}
		alias, pat := parseRuleLine(line)
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("truncate-patterns:%d: invalid pattern %q: %w", lineNo, pat, err)
		}
		rules = append(rules, Rule{Regex: re, Alias: alias})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// parseRuleLine splits "$NAME = REGEX" into (alias, pattern), or returns
// (line, line) for a bare pattern line.
func parseRuleLine(line string) (alias, pat string) {
	if !strings.HasPrefix(line, "$") {
		return line, line
	}
	idx := strings.Index(line, "=")
	if idx < 0 {
		return line, line
	}
	name := strings.TrimSpace(line[:idx])
	rest := strings.TrimSpace(line[idx+1:])
	if name == "" || rest == "" {
		return line, line
	}
	return name, rest
}
