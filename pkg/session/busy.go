package session

import "sync"

// BusyState holds the two session flags. Every guard reads and sets under one lock,
// so two callers can never both pass a guard.
type BusyState struct {
	mu          sync.Mutex
	sending     bool
	summarizing bool
}

// TryBeginSend marks the session as sending if it is idle.
func (b *BusyState) TryBeginSend() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sending || b.summarizing {
		return false
	}
	b.sending = true
	return true
}

func (b *BusyState) EndSend() {
	b.mu.Lock()
	b.sending = false
	b.mu.Unlock()
}

// TryBeginSummarize marks the session as summarizing if it is idle.
func (b *BusyState) TryBeginSummarize() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sending || b.summarizing {
		return false
	}
	b.summarizing = true
	return true
}

func (b *BusyState) EndSummarize() {
	b.mu.Lock()
	b.summarizing = false
	b.mu.Unlock()
}

// Idle reports !sending && !summarizing.
func (b *BusyState) Idle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.sending && !b.summarizing
}

func (b *BusyState) Flags() (sending, summarizing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sending, b.summarizing
}
