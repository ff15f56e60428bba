package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage_StoreAndReplay(t *testing.T) {
	s := NewStorage(10)
	s.Store(Message{SessionID: "s1", Channel: ChannelFinal, Content: "a", Sequence: 0})
	s.Store(Message{SessionID: "s1", Channel: ChannelAnalysis, Content: "b", Sequence: 1})

	msgs := s.Replay("s1", Query{})
	assert.Len(t, msgs, 2)
	assert.Equal(t, 0, msgs[0].Sequence)
	assert.Equal(t, 1, msgs[1].Sequence)
}

func TestStorage_ReplayFiltersByChannel(t *testing.T) {
	s := NewStorage(10)
	s.Store(Message{SessionID: "s1", Channel: ChannelFinal, Content: "a", Sequence: 0})
	s.Store(Message{SessionID: "s1", Channel: ChannelAnalysis, Content: "b", Sequence: 1})

	msgs := s.Replay("s1", Query{Channels: []Channel{ChannelFinal}})
	assert.Len(t, msgs, 1)
	assert.Equal(t, ChannelFinal, msgs[0].Channel)
}

func TestStorage_ReplaySinceSequence(t *testing.T) {
	s := NewStorage(10)
	for i := 0; i < 5; i++ {
		s.Store(Message{SessionID: "s1", Channel: ChannelFinal, Content: "x", Sequence: i})
	}
	msgs := s.Replay("s1", Query{SinceSequence: 2})
	assert.Len(t, msgs, 2) // sequences 3, 4
}

func TestStorage_ReplayLimitAppliedAfterMerge(t *testing.T) {
	s := NewStorage(10)
	for i := 0; i < 5; i++ {
		s.Store(Message{SessionID: "s1", Channel: ChannelFinal, Content: "x", Sequence: i})
	}
	msgs := s.Replay("s1", Query{Limit: 2})
	assert.Len(t, msgs, 2)
	assert.Equal(t, 3, msgs[0].Sequence)
	assert.Equal(t, 4, msgs[1].Sequence)
}

func TestStorage_CircularBufferEvictsOldest(t *testing.T) {
	s := NewStorage(3)
	for i := 0; i < 5; i++ {
		s.Store(Message{SessionID: "s1", Channel: ChannelFinal, Content: "x", Sequence: i})
	}
	msgs := s.Replay("s1", Query{})
	assert.Len(t, msgs, 3)
	assert.Equal(t, 2, msgs[0].Sequence)
}

func TestStorage_VisibilityDefaults(t *testing.T) {
	s := NewStorage(10)
	assert.True(t, s.Visible("s1", ChannelCommentary))
	assert.False(t, s.Visible("s1", ChannelAnalysis))
	assert.True(t, s.Visible("s1", ChannelFinal))
}

func TestStorage_SetVisibility(t *testing.T) {
	s := NewStorage(10)
	s.SetVisibility("s1", Visibility{ShowCommentary: false, ShowAnalysis: true})
	assert.False(t, s.Visible("s1", ChannelCommentary))
	assert.True(t, s.Visible("s1", ChannelAnalysis))
}
