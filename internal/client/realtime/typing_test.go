package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 50 * time.Millisecond

func TestTypingDebounce(t *testing.T) {
	ch := newFakeChannel()
	ty := NewTypist(ch, testDelay)

	// Keystrokes arriving faster than the idle delay: one typing emit at
	// the first keystroke, one stopTyping after the last goes idle.
	for i := 0; i < 5; i++ {
		ty.Keystroke("a", "u1")
		time.Sleep(testDelay / 3)
	}

	require.Len(t, ch.emitted(EventTyping), 1)
	assert.Empty(t, ch.emitted(EventStopTyping))

	time.Sleep(2 * testDelay)
	assert.Len(t, ch.emitted(EventTyping), 1)
	assert.Len(t, ch.emitted(EventStopTyping), 1)
}

func TestTypingFlushOnSend(t *testing.T) {
	ch := newFakeChannel()
	ty := NewTypist(ch, time.Minute)

	ty.Keystroke("a", "u1")
	ty.Flush()

	assert.Len(t, ch.emitted(EventTyping), 1)
	assert.Len(t, ch.emitted(EventStopTyping), 1)

	// Nothing lingers after the flush.
	time.Sleep(2 * testDelay)
	assert.Len(t, ch.emitted(EventStopTyping), 1)
}

func TestFlushWithoutTypingIsNoop(t *testing.T) {
	ch := newFakeChannel()
	ty := NewTypist(ch, testDelay)

	ty.Flush()
	assert.Empty(t, ch.emitted(EventStopTyping))
}

func TestTypingRestartsAfterStop(t *testing.T) {
	ch := newFakeChannel()
	ty := NewTypist(ch, testDelay)

	ty.Keystroke("a", "u1")
	time.Sleep(2 * testDelay)
	ty.Keystroke("a", "u1")
	time.Sleep(2 * testDelay)

	assert.Len(t, ch.emitted(EventTyping), 2)
	assert.Len(t, ch.emitted(EventStopTyping), 2)
}

func TestTypingChatSwitchStopsOldChat(t *testing.T) {
	ch := newFakeChannel()
	ty := NewTypist(ch, time.Minute)

	ty.Keystroke("a", "u1")
	ty.Keystroke("b", "u1")

	stops := ch.emitted(EventStopTyping)
	require.Len(t, stops, 1)
	assert.Contains(t, string(stops[0].Data), `"chatId":"a"`)

	starts := ch.emitted(EventTyping)
	require.Len(t, starts, 2)
	assert.Contains(t, string(starts[1].Data), `"chatId":"b"`)
}
