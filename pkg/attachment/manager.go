package attachment

import "sync"

// Attachment is an image waiting to be sent. Data is base64 encoded.
type Attachment struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// Manager holds at most one pending attachment.
type Manager struct {
	mu      sync.Mutex
	pending *Attachment
}

func NewManager() *Manager {
	return &Manager{}
}

// Attach replaces whatever is pending.
func (m *Manager) Attach(filename, data string) {
	m.mu.Lock()
	m.pending = &Attachment{Filename: filename, Data: data}
	m.mu.Unlock()
}

// Peek returns a copy of the pending attachment without consuming it.
func (m *Manager) Peek() *Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return nil
	}
	a := *m.pending
	return &a
}

// Consume returns the pending attachment and clears it.
func (m *Manager) Consume() *Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.pending
	m.pending = nil
	return a
}

// Restore puts back an attachment consumed by a failed send.
func (m *Manager) Restore(a *Attachment) {
	if a == nil {
		return
	}
	m.mu.Lock()
	cp := *a
	m.pending = &cp
	m.mu.Unlock()
}

func (m *Manager) Clear() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}
