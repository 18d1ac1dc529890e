package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
		return nil
	}
}

// TestBasicPubSub tests basic publish/subscribe functionality
func TestBasicPubSub(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	sub, err := ps.Subscribe(context.Background(), TopicNotifications)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ps.Publish(TopicNotifications, "Could not relocate asset a1")

	if msg := receive(t, sub); msg != "Could not relocate asset a1" {
		t.Errorf("got %v", msg)
	}
}

// TestMultipleSubscribers tests several host shells on the frame topic
func TestMultipleSubscribers(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	subs := make([]*Subscription, 3)
	for i := range subs {
		sub, err := ps.Subscribe(context.Background(), TopicFrame)
		if err != nil {
			t.Fatalf("Failed to subscribe %d: %v", i, err)
		}
		defer sub.Unsubscribe()
		subs[i] = sub
	}

	ps.Publish(TopicFrame, 42)

	for i, sub := range subs {
		if msg := receive(t, sub); msg != 42 {
			t.Errorf("Subscriber %d: got %v", i, msg)
		}
	}
}

// TestTopicIsolation checks that frames never reach notification subscribers
func TestTopicIsolation(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	frames, _ := ps.Subscribe(context.Background(), TopicFrame)
	notes, _ := ps.Subscribe(context.Background(), TopicNotifications)

	ps.Publish(TopicFrame, "frame-1")

	if msg := receive(t, frames); msg != "frame-1" {
		t.Errorf("frame subscriber got %v", msg)
	}
	select {
	case msg := <-notes.Channel():
		t.Errorf("notification subscriber received %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	sub, _ := ps.Subscribe(context.Background(), TopicFrame)
	if got := ps.GetSubscriberCount(TopicFrame); got != 1 {
		t.Fatalf("subscriber count = %d, want 1", got)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if got := ps.GetSubscriberCount(TopicFrame); got != 0 {
		t.Errorf("subscriber count after unsubscribe = %d, want 0", got)
	}
	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed after unsubscribe")
	}
	ps.Publish(TopicFrame, "after")
}

func TestContextCancellation(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := ps.Subscribe(ctx, TopicFrame)
	cancel()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on context cancel")
	}
	deadline := time.Now().Add(time.Second)
	for ps.GetSubscriberCount(TopicFrame) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := ps.GetSubscriberCount(TopicFrame); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
}

func TestDropPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		want    []any
		dropped int64
	}{
		{"drop newest keeps the first messages", DropNewest, []any{1, 2}, 2},
		{"keep latest keeps the last messages", KeepLatest, []any{3, 4}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := NewPubSub(nil)
			defer ps.Shutdown()

			sub, err := ps.SubscribeWith(context.Background(), TopicFrame, Options{Buffer: 2, Policy: tt.policy})
			if err != nil {
				t.Fatalf("Failed to subscribe: %v", err)
			}
			for i := 1; i <= 4; i++ {
				ps.Publish(TopicFrame, i)
			}

			for _, want := range tt.want {
				if got := receive(t, sub); got != want {
					t.Errorf("got %v, want %v", got, want)
				}
			}
			if sub.Dropped() != tt.dropped {
				t.Errorf("Dropped() = %d, want %d", sub.Dropped(), tt.dropped)
			}
		})
	}
}

func TestConcurrentPublish(t *testing.T) {
	ps := NewPubSub(nil)
	defer ps.Shutdown()

	sub, _ := ps.SubscribeWith(context.Background(), TopicNotifications, Options{Buffer: 1000})

	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ps.Publish(TopicNotifications, i)
			}
		}()
	}
	wg.Wait()

	if got := len(sub.Channel()); got != 500 {
		t.Errorf("buffered = %d, want 500", got)
	}
}

func TestShutdown(t *testing.T) {
	ps := NewPubSub(nil)
	sub, _ := ps.Subscribe(context.Background(), TopicFrame)

	ps.Shutdown()
	ps.Shutdown()

	if _, ok := <-sub.Channel(); ok {
		t.Error("channel should be closed after shutdown")
	}
	if _, err := ps.Subscribe(context.Background(), TopicFrame); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown error = %v, want ErrShutdown", err)
	}
	ps.Publish(TopicFrame, "ignored")
}
