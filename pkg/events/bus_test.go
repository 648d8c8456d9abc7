package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/moodchat/pkg/timeline"
)

func TestBus_InMemoryRoundTrip(t *testing.T) {
	bus, err := NewBus(Settings{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "test")
	require.NoError(t, err)

	e := New(TypeMessageAppended)
	e.Message = &timeline.Message{Role: timeline.RoleAssistant, Content: "hi", Mood: "happy"}
	e.Length = 3
	bus.Publish(e)

	select {
	case got := <-ch:
		require.Equal(t, e.ID, got.ID)
		require.Equal(t, TypeMessageAppended, got.Type)
		require.Equal(t, "hi", got.Message.Content)
		require.Equal(t, 3, got.Length)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_InMemoryPreservesPublishOrder(t *testing.T) {
	bus, err := NewBus(Settings{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ui, err := bus.Subscribe(ctx, "ui")
	require.NoError(t, err)
	feed, err := bus.Subscribe(ctx, "feed")
	require.NoError(t, err)

	const n = 500
	go func() {
		for i := 1; i <= n; i++ {
			e := New(TypeMessageAppended)
			e.Length = i
			bus.Publish(e)
		}
	}()

	// both subscribers must be drained concurrently since publishing waits for acks
	read := func(ch <-chan Event) []int {
		var got []int
		for len(got) < n {
			select {
			case e := <-ch:
				got = append(got, e.Length)
			case <-time.After(5 * time.Second):
				return got
			}
		}
		return got
	}

	done := make(chan []int, 1)
	go func() { done <- read(feed) }()
	gotUI := read(ui)
	gotFeed := <-done
	require.Len(t, gotUI, n)
	require.Len(t, gotFeed, n)

	for i := 0; i < n; i++ {
		require.Equal(t, i+1, gotUI[i], "ui subscriber out of order at %d", i)
		require.Equal(t, i+1, gotFeed[i], "feed subscriber out of order at %d", i)
	}
}

func TestBus_ClosedBusRejectsSubscribers(t *testing.T) {
	bus, err := NewBus(Settings{})
	require.NoError(t, err)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, err = bus.Subscribe(context.Background(), "late")
	require.ErrorContains(t, err, "closed")

	// publishing after close is silently dropped
	bus.Publish(New(TypeAlert))
}

func TestRecorderAndFanout(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	s := Fanout(a, nil, b)
	s.Publish(New(TypeAlert))
	s.Publish(New(TypeMoodChanged))

	require.Len(t, a.Events(), 2)
	require.Len(t, b.OfType(TypeMoodChanged), 1)
	Discard.Publish(New(TypeAlert))
}
