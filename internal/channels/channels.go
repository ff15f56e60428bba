// Package channels implements the channel router and storage: parsing
// mixed-format model output into analysis/commentary/final channel
// messages, assigning strictly-monotone per-session sequence numbers, and
// keeping a bounded replay history per (session, channel).
//
// Grounded on original_source/src/mindswarm/channels/{router,storage,types}.py.
package channels

import "time"

// Channel is one of the three semantic output lanes.
type Channel string

const (
	ChannelAnalysis   Channel = "analysis"
	ChannelCommentary Channel = "commentary"
	ChannelFinal      Channel = "final"
)

// Message is one routed channel message.
type Message struct {
	Channel   Channel
	Content   string
	Sequence  int
	Timestamp time.Time
	AgentID   string
	SessionID string
	ToolCalls []string
	IsPartial bool
	Custom    map[string]any
}
