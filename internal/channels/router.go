package channels

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"
)

func timeNow() time.Time { return time.Now() }

// Router parses model output into channel messages and assigns
// session-wide monotone sequence numbers, honoring the streaming-partial
// reuse and non-partial-clears-pending rules (§4.3).
type Router struct {
	mu       sync.Mutex
	sessions map[string]*sessionSeq
}

type sessionSeq struct {
	next    int
	pending map[Channel]int // channel -> open partial sequence
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{sessions: make(map[string]*sessionSeq)}
}

var markerPatterns = map[Channel]*regexp.Regexp{
	ChannelAnalysis:   regexp.MustCompile(`(?is)(?:\[ANALYSIS\]|<analysis>|<thinking>)(.*?)(?:\[/ANALYSIS\]|</analysis>|</thinking>|$)`),
	ChannelCommentary: regexp.MustCompile(`(?is)(?:\[COMMENTARY\]|<commentary>|<tool_call>)(.*?)(?:\[/COMMENTARY\]|</commentary>|</tool_call>|$)`),
	ChannelFinal:       regexp.MustCompile(`(?is)(?:\[FINAL\]|<final>)(.*?)(?:\[/FINAL\]|</final>|$)`),
}

var toolCallShape = regexp.MustCompile(`(?s)^\s*\{.*"(name|tool|tool_name)"\s*:.*\}\s*$`)
var continuationMarker = regexp.MustCompile(`(?i)CONTINUE:\s*true`)

// Route parses raw model output for one session into zero or more channel
// messages, allocating sequence numbers. isPartial marks a streaming
// delta; a non-partial call closes the open partial sequence of each
// channel it routes to (reusing that number), then clears every other
// pending streaming sequence for the session, even for channels this call
// doesn't touch.
func (r *Router) Route(sessionID, raw string, isPartial bool) []Message {
	r.stateFor(sessionID)

	var parts map[Channel]string
	continued := false
	if obj, ok := tryParseStructured(raw); ok {
		parts, continued = r.routeStructured(sessionID, obj)
	} else {
		parts = routeMarkedText(raw)
	}

	out := make([]Message, 0, len(parts)+1)
	for _, ch := range []Channel{ChannelAnalysis, ChannelCommentary, ChannelFinal} {
		content, ok := parts[ch]
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		out = append(out, r.buildMessage(sessionID, ch, content, isPartial, nil))
	}
	if continued {
		out = append(out, r.buildMessage(sessionID, ChannelAnalysis, "CONTINUE: true", isPartial, map[string]any{"contains_continuation": true}))
	}

	if !isPartial {
		r.clearPending(sessionID)
	}
	return out
}

// routeStructured implements the JSON path: a response with all three
// channel keys splits verbatim. The second result reports
// metadata.continue==true, for which Route emits an extra synthetic
// analysis message (SUPPLEMENTED FEATURE #4).
func (r *Router) routeStructured(sessionID string, obj map[string]any) (map[Channel]string, bool) {
	parts := make(map[Channel]string)
	for key, ch := range map[string]Channel{"analysis": ChannelAnalysis, "commentary": ChannelCommentary, "final": ChannelFinal} {
		if v, ok := obj[key]; ok {
			if s, ok := v.(string); ok {
				parts[ch] = s
			}
		}
	}
	continued := false
	if meta, ok := obj["metadata"].(map[string]any); ok {
		if cont, ok := meta["continue"].(bool); ok && cont {
			continued = true
		}
	}
	return parts, continued
}

// routeMarkedText extracts marker spans, then routes any unmatched tail
// by heuristic: tool-call-shaped JSON to commentary, a continuation hint
// to analysis, otherwise to final.
func routeMarkedText(raw string) map[Channel]string {
	parts := make(map[Channel]string)
	remaining := raw
	matchedAny := false

	for ch, pattern := range markerPatterns {
		if loc := pattern.FindStringSubmatchIndex(remaining); loc != nil && loc[2] >= 0 {
			content := remaining[loc[2]:loc[3]]
			parts[ch] = strings.TrimSpace(content)
			remaining = remaining[:loc[0]] + remaining[loc[1]:]
			matchedAny = true
		}
	}

	tail := strings.TrimSpace(remaining)
	if tail == "" {
		return parts
	}

	switch {
	case toolCallShape.MatchString(tail):
		parts[ChannelCommentary] = appendPart(parts[ChannelCommentary], tail)
	case continuationMarker.MatchString(tail):
		parts[ChannelAnalysis] = appendPart(parts[ChannelAnalysis], "CONTINUE: true")
	case !matchedAny:
		parts[ChannelFinal] = appendPart(parts[ChannelFinal], tail)
	default:
		parts[ChannelFinal] = appendPart(parts[ChannelFinal], tail)
	}
	return parts
}

func appendPart(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

func tryParseStructured(raw string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false
	}
	_, hasA := obj["analysis"]
	_, hasC := obj["commentary"]
	_, hasF := obj["final"]
	if !hasA || !hasC || !hasF {
		return nil, false
	}
	return obj, true
}

func (r *Router) stateFor(sessionID string) *sessionSeq {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &sessionSeq{pending: make(map[Channel]int)}
		r.sessions[sessionID] = s
	}
	return s
}

// clearPending closes every open partial sequence for sessionID, so the
// next message on any channel allocates fresh. Route calls it at the end
// of every non-partial call, after that call's own channels have reused
// and closed their pending sequences.
func (r *Router) clearPending(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.pending = make(map[Channel]int)
	}
}

func (r *Router) buildMessage(sessionID string, ch Channel, content string, isPartial bool, custom map[string]any) Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[sessionID]

	var sequence int
	if isPartial {
		if existing, ok := s.pending[ch]; ok {
			sequence = existing
		} else {
			sequence = s.next
			s.next++
			s.pending[ch] = sequence
		}
	} else {
		if existing, ok := s.pending[ch]; ok {
			sequence = existing
			delete(s.pending, ch)
		} else {
			sequence = s.next
			s.next++
		}
	}

	return Message{
		Channel:   ch,
		Content:   content,
		Sequence:  sequence,
		Timestamp: timeNow(),
		SessionID: sessionID,
		IsPartial: isPartial,
		Custom:    custom,
	}
}
