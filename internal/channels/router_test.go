package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute_MarkedText(t *testing.T) {
	r := NewRouter()
	msgs := r.Route("s1", "[ANALYSIS]thinking it through[/ANALYSIS][FINAL]Here you go.[/FINAL]", false)
	require.Len(t, msgs, 2)

	byChannel := map[Channel]Message{}
	for _, m := range msgs {
		byChannel[m.Channel] = m
	}
	assert.Equal(t, "thinking it through", byChannel[ChannelAnalysis].Content)
	assert.Equal(t, "Here you go.", byChannel[ChannelFinal].Content)
}

func TestRoute_StructuredJSON(t *testing.T) {
	r := NewRouter()
	raw := `{"analysis":"a","commentary":"c","final":"f"}`
	msgs := r.Route("s1", raw, false)
	require.Len(t, msgs, 3)
}

func TestRoute_ContinuationSyntheticMarker(t *testing.T) {
	r := NewRouter()
	raw := `{"analysis":"a","commentary":"c","final":"f","metadata":{"continue":true}}`
	msgs := r.Route("s1", raw, false)

	var analysis Message
	for _, m := range msgs {
		if m.Channel == ChannelAnalysis {
			analysis = m
		}
	}
	assert.Contains(t, analysis.Content, "CONTINUE: true")
}

func TestRoute_PlainTextGoesToFinal(t *testing.T) {
	r := NewRouter()
	msgs := r.Route("s1", "just a plain reply", false)
	require.Len(t, msgs, 1)
	assert.Equal(t, ChannelFinal, msgs[0].Channel)
}

func TestRoute_SequenceMonotoneAcrossCalls(t *testing.T) {
	r := NewRouter()
	first := r.Route("s1", "[FINAL]one[/FINAL]", false)
	second := r.Route("s1", "[FINAL]two[/FINAL]", false)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Less(t, first[0].Sequence, second[0].Sequence)
}

func TestRoute_PartialReusesSequenceUntilClosed(t *testing.T) {
	r := NewRouter()
	p1 := r.Route("s1", "[FINAL]partial one[/FINAL]", true)
	p2 := r.Route("s1", "[FINAL]partial one plus two[/FINAL]", true)
	final := r.Route("s1", "[FINAL]complete[/FINAL]", false)

	require.Len(t, p1, 1)
	require.Len(t, p2, 1)
	require.Len(t, final, 1)
	assert.Equal(t, p1[0].Sequence, p2[0].Sequence)
	assert.Equal(t, p1[0].Sequence, final[0].Sequence)
}

func TestRoute_NonPartialClearsAllPendingFirst(t *testing.T) {
	r := NewRouter()
	r.Route("s1", "[ANALYSIS]thinking[/ANALYSIS]", true) // opens a pending analysis sequence

	// A non-partial final message should not reuse the pending analysis
	// sequence for an unrelated channel.
	final := r.Route("s1", "[FINAL]done[/FINAL]", false)
	require.Len(t, final, 1)

	// Subsequent analysis gets a fresh sequence, not the cleared one.
	again := r.Route("s1", "[ANALYSIS]more thinking[/ANALYSIS]", true)
	require.Len(t, again, 1)
	assert.NotEqual(t, again[0].Sequence, final[0].Sequence)
}

func TestRoute_ToolCallShapedTailGoesToCommentary(t *testing.T) {
	r := NewRouter()
	msgs := r.Route("s1", `{"name": "get_weather", "args": {"city": "NY"}}`, false)
	require.Len(t, msgs, 1)
	assert.Equal(t, ChannelCommentary, msgs[0].Channel)
}
