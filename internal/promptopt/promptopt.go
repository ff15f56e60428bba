// Package promptopt rewrites a user message's phrasing to match the
// target model's tool-calling shape — pure function of its inputs, never
// touching the transcript. Grounded on agents/prompt_optimizer.py.
package promptopt

import (
	"regexp"
	"strings"

	"github.com/haasonsaas/nexus/internal/capability"
)

// WordThreshold is the minimum word count below which a message is
// treated as too short to rewrite.
const WordThreshold = 4

var continuationPhrases = []string{
	"continue", "ok", "okay", "keep going", "go on", "go ahead", "yes", "proceed",
}

var sequentialToParallel = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bfirst\s+(.+?)\s+then\s+(.+)`), "simultaneously $1 and $2"},
	{regexp.MustCompile(`(?i)\bone by one\b`), "all at once"},
	{regexp.MustCompile(`(?i)\bone at a time\b`), "all together"},
}

var parallelToSequential = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bsimultaneously\s+(.+?)\s+and\s+(.+)`), "first $1 then $2"},
	{regexp.MustCompile(`(?i)\ball at once\b`), "one by one"},
	{regexp.MustCompile(`(?i)\ball together\b`), "one at a time"},
}

// Hints maps (agentID, strategy) pairs to a hint string appended after
// rewriting, per spec.md §4.7's "agent-specific hints from a lookup table
// keyed by (agent, strategy)".
type Hints map[string]map[string]string

// Strategy names used as the second half of a Hints key.
const (
	StrategyParallel   = "parallel"
	StrategySequential = "sequential"
)

// IsContinuation reports whether text is a short acknowledgement/
// continuation message that should be passed through unmodified.
func IsContinuation(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range continuationPhrases {
		if trimmed == phrase {
			return true
		}
	}
	return false
}

// IsShort reports whether text falls below WordThreshold words.
func IsShort(text string) bool {
	return len(strings.Fields(text)) < WordThreshold
}

// Optimize rewrites text for modelID's capability record. agentID and
// hints may be empty/nil; when present, a matching hint is appended.
func Optimize(text, modelID, agentID string, rec capability.Record, hints Hints) string {
	if IsContinuation(text) || IsShort(text) {
		return text
	}

	var rewritten string
	var changed bool
	var strategy string
	if rec.MultiTool {
		strategy = StrategyParallel
		rewritten, changed = rewrite(text, sequentialToParallel)
		if !changed {
			rewritten += " (Where independent, these steps can be done simultaneously.)"
		}
	} else {
		strategy = StrategySequential
		rewritten, changed = rewrite(text, parallelToSequential)
		if !changed {
			rewritten += " (Please proceed one step at a time.)"
		}
	}

	if hint, ok := lookupHint(hints, agentID, strategy); ok {
		rewritten = rewritten + " " + hint
	}
	return rewritten
}

func rewrite(text string, rules []struct {
	pattern     *regexp.Regexp
	replacement string
}) (string, bool) {
	out := text
	changed := false
	for _, rule := range rules {
		if rule.pattern.MatchString(out) {
			out = rule.pattern.ReplaceAllString(out, rule.replacement)
			changed = true
		}
	}
	return out, changed
}

func lookupHint(hints Hints, agentID, strategy string) (string, bool) {
	if hints == nil || agentID == "" {
		return "", false
	}
	byStrategy, ok := hints[agentID]
	if !ok {
		return "", false
	}
	hint, ok := byStrategy[strategy]
	return hint, ok
}
