package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillBuffer(b *historyBuffer, n int) {
	for i := 0; i < n; i++ {
		b.append(Message{Type: typeMessage, ID: fmt.Sprintf("id-%d", i), Message: fmt.Sprintf("m%d", i)})
	}
}

func TestHistoryBufferEvictsOldest(t *testing.T) {
	b := newHistoryBuffer(3)
	fillBuffer(b, 5)

	require.Equal(t, 3, b.len())
	msgs := b.recent(3)
	assert.Equal(t, "m2", msgs[0].Message)
	assert.Equal(t, "m4", msgs[2].Message)
}

func TestHistoryBufferRecent(t *testing.T) {
	b := newHistoryBuffer(10)
	fillBuffer(b, 4)

	assert.Nil(t, b.recent(0))
	assert.Nil(t, newHistoryBuffer(10).recent(5))

	msgs := b.recent(2)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].Message)
	assert.Equal(t, "m3", msgs[1].Message)

	// asking for more than is stored returns everything
	assert.Len(t, b.recent(99), 4)

	// the returned slice is detached from later appends
	snapshot := b.recent(4)
	b.append(Message{Message: "later"})
	assert.Equal(t, "m3", snapshot[3].Message)
}

func TestHistoryBufferCompact(t *testing.T) {
	b := newHistoryBuffer(10)
	fillBuffer(b, 6)

	evicted := b.compact(2)
	require.Len(t, evicted, 4)
	assert.Equal(t, "m0", evicted[0].Message)
	assert.Equal(t, "m3", evicted[3].Message)

	require.Equal(t, 2, b.len())
	kept := b.recent(2)
	assert.Equal(t, "m4", kept[0].Message)
	assert.Equal(t, "m5", kept[1].Message)
}

func TestHistoryBufferCompactNoop(t *testing.T) {
	b := newHistoryBuffer(10)
	fillBuffer(b, 3)

	assert.Nil(t, b.compact(5), "compact below current size evicts nothing")
	assert.Equal(t, 3, b.len())

	evicted := b.compact(-1)
	assert.Len(t, evicted, 3, "negative keep behaves like zero")
	assert.Equal(t, 0, b.len())
}
