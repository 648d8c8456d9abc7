package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/moodchat/pkg/events"
)

// Path is where the feed handler is mounted.
const Path = "/ws"

var upgrader = websocket.Upgrader{
	// the feed is read-only and meant for local renderers
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades requests to websocket and registers them with pool.
// Incoming frames are read and discarded so close frames are noticed.
func Handler(pool *Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("component", "feed").Msg("websocket upgrade failed")
			return
		}
		pool.Add(ws)
		log.Debug().Str("component", "feed").Str("remote", r.RemoteAddr).Int("clients", pool.Count()).Msg("feed client connected")
		defer pool.Remove(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
}

// Forward broadcasts every event from in until ctx is done or in is closed.
func Forward(ctx context.Context, pool *Pool, in <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-in:
			if !ok {
				return
			}
			b, err := json.Marshal(e)
			if err != nil {
				log.Warn().Err(err).Str("component", "feed").Str("type", string(e.Type)).Msg("failed to encode event")
				continue
			}
			pool.Broadcast(b)
		}
	}
}

// Serve runs the feed on addr, forwarding events from the bus, until ctx is done.
func Serve(ctx context.Context, addr string, bus *events.Bus) error {
	in, err := bus.Subscribe(ctx, "feed")
	if err != nil {
		return errors.Wrap(err, "subscribe feed to bus")
	}

	pool := NewPool()
	mux := http.NewServeMux()
	mux.Handle(Path, Handler(pool))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		Forward(gctx, pool, in)
		return nil
	})
	eg.Go(func() error {
		log.Info().Str("component", "feed").Str("addr", addr).Msg("serving session feed")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "feed server")
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pool.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
