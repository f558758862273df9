package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeSongIngested, Data: map[string]string{"id": "s1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: song.ingested") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"s1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain counts song and licks events currently buffered on ch.
func drain(ch chan []byte) (songs, licks int) {
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), TypeLicksUpdated) {
				licks++
			} else {
				songs++
			}
		default:
			return songs, licks
		}
	}
}

func TestPublishSongEvent_LicksThrottle(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSongEvent("ingested", "s1")
	b.PublishSongEvent("deleted", "s2")
	b.PublishSongEvent("ingested", "s3")

	time.Sleep(50 * time.Millisecond)
	songs, licks := drain(ch)
	if songs != 3 {
		t.Errorf("song events = %d, want 3", songs)
	}
	if licks != 1 {
		t.Errorf("licks events = %d, want 1 (throttled)", licks)
	}

	// The suppressed changes are flushed once the window closes.
	time.Sleep(400 * time.Millisecond)
	if _, licks := drain(ch); licks != 1 {
		t.Errorf("trailing licks events = %d, want 1", licks)
	}
}

func TestPublishSongEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSongEvent("renamed", "s1")
	time.Sleep(50 * time.Millisecond)
	if songs, licks := drain(ch); songs != 0 || licks != 0 {
		t.Errorf("got %d song and %d licks events for unknown kind", songs, licks)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishSongEvent("deleted", "s9")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: song.deleted") || !strings.Contains(body, "event: licks.updated") {
		t.Errorf("handler output missing events: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// One past the client buffer must not block the loop.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	if b.ClientCount() != 1 {
		t.Error("broker stalled")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	b.PublishSongEvent("ingested", "s1")
	b.PublishSongEvent("ingested", "s2") // arms the trailing timer

	b.Close()

	timeout := time.After(time.Second)
	for open := true; open; {
		select {
		case _, open = <-ch:
		case <-timeout:
			t.Fatal("timeout waiting for channel close")
		}
	}
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}
	b.Publish(Event{Type: TypeSongDeleted, Data: map[string]string{"id": "x"}})
	b.PublishSongEvent("deleted", "x")
}
