package feed

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// conn is the subset of *websocket.Conn the pool writes to.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Pool broadcasts frames to every connected feed client.
// A connection whose write fails is dropped and closed.
type Pool struct {
	mu    sync.Mutex
	conns map[conn]struct{}
}

func NewPool() *Pool {
	return &Pool{conns: map[conn]struct{}{}}
}

func (p *Pool) Add(c conn) {
	if p == nil || c == nil {
		return
	}
	p.mu.Lock()
	p.conns[c] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) Remove(c conn) {
	if c == nil {
		return
	}
	if p != nil {
		p.mu.Lock()
		delete(p.conns, c)
		p.mu.Unlock()
	}
	_ = c.Close()
}

func (p *Pool) Broadcast(data []byte) {
	if p == nil || len(data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.conns {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("component", "feed").Msg("ws broadcast failed, dropping connection")
			delete(p.conns, c)
			_ = c.Close()
		}
	}
}

func (p *Pool) Count() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *Pool) CloseAll() {
	if p == nil {
		return
	}
	p.mu.Lock()
	for c := range p.conns {
		_ = c.Close()
		delete(p.conns, c)
	}
	p.mu.Unlock()
}
