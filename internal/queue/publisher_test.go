package queue

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishGivesUpAtContextDeadline(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t), "")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, NewSeatEvent(SeatCreated, 1, 2, time.Now()))
	if err == nil {
		t.Fatal("expected publish to fail against a silent broker")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("publish blocked for %v", elapsed)
	}
}

func TestPublishSkipsDialWhenContextDone(t *testing.T) {
	p := NewAMQPPublisher(silentBroker(t), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, NewSeatEvent(SeatCreated, 1, 2, time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDialTimeout(t *testing.T) {
	if got := dialTimeout(context.Background()); got != defaultDialTimeout {
		t.Fatalf("no deadline: %v", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if got := dialTimeout(ctx); got <= 0 || got > time.Second {
		t.Fatalf("with deadline: %v", got)
	}
	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := dialTimeout(expired); got != time.Millisecond {
		t.Fatalf("expired deadline: %v", got)
	}
}
