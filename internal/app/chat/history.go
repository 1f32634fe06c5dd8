package chat

// historyBuffer is a bounded, ordered message buffer with FIFO eviction.
// It is owned by the hub run loop and needs no synchronization of its own.
type historyBuffer struct {
	capacity int
	msgs     []Message
}

func newHistoryBuffer(capacity int) *historyBuffer {
	return &historyBuffer{capacity: capacity}
}

// append adds a message, evicting the oldest entry once the buffer is full.
func (b *historyBuffer) append(m Message) {
	b.msgs = append(b.msgs, m)
	if len(b.msgs) > b.capacity {
		evicted := len(b.msgs) - b.capacity
		b.msgs = append(b.msgs[:0], b.msgs[evicted:]...)
	}
}

// recent returns up to n of the newest messages in chronological order.
// The returned slice is a copy and safe to hold across later appends.
func (b *historyBuffer) recent(n int) []Message {
	if n <= 0 || len(b.msgs) == 0 {
		return nil
	}
	if n > len(b.msgs) {
		n = len(b.msgs)
	}

	out := make([]Message, n)
	copy(out, b.msgs[len(b.msgs)-n:])
	return out
}

// compact trims the buffer down to keep messages, returning the evicted prefix
// (oldest first) for archival.
func (b *historyBuffer) compact(keep int) []Message {
	if keep < 0 {
		keep = 0
	}
	if len(b.msgs) <= keep {
		return nil
	}

	evictCount := len(b.msgs) - keep
	evicted := make([]Message, evictCount)
	copy(evicted, b.msgs[:evictCount])

	b.msgs = append(b.msgs[:0], b.msgs[evictCount:]...)
	return evicted
}

func (b *historyBuffer) len() int {
	return len(b.msgs)
}
