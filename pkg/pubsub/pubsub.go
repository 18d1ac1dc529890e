// Package pubsub fans engine output out to host shells: rendered frames on
// one topic, user notifications on another.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-canvas/pkg/logging"
)

// Topics the engine publishes on
const (
	TopicFrame         = "frame"
	TopicNotifications = "notifications"
)

// DefaultBuffer is the channel capacity of a subscription
const DefaultBuffer = 64

// ErrShutdown is returned when subscribing to a closed PubSub
var ErrShutdown = errors.New("pubsub is shut down")

// Policy decides what happens when a subscriber's buffer is full
type Policy int

const (
	// DropNewest discards the message being published
	DropNewest Policy = iota
	// KeepLatest discards the oldest buffered message so the newest always
	// arrives. Suits frame streams where only the last frame matters.
	KeepLatest
)

// Options configures a subscription
type Options struct {
	Buffer int
	Policy Policy
}

// PubSub provides topic-based publish/subscribe between the engine loop and
// its host shells
type PubSub struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
	logger      logging.Logger
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan any
	policy    Policy
	sendMu    sync.Mutex
	closed    bool
	dropped   atomic.Int64
	ps        *PubSub
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPubSub creates a new PubSub instance
func NewPubSub(logger logging.Logger) *PubSub {
	return &PubSub{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
		logger:      logging.OrNop(logger).With(logging.Component("pubsub")),
	}
}

// Subscribe creates a subscription with default options
func (ps *PubSub) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	return ps.SubscribeWith(ctx, topic, Options{})
}

// SubscribeWith creates a subscription to a topic. It ends when ctx is
// cancelled, when Unsubscribe is called or on Shutdown.
func (ps *PubSub) SubscribeWith(ctx context.Context, topic string, opts Options) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	ps.shutdownMu.Unlock()

	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan any, opts.Buffer),
		policy:  opts.Policy,
		ps:      ps,
		cancel:  cancel,
	}

	ps.mu.Lock()
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]bool)
	}
	ps.subscribers[topic][sub] = true
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a message to every subscriber of a topic without blocking.
// Subscribers are snapshotted so sends happen outside the lock.
func (ps *PubSub) Publish(topic string, message any) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.shutdownMu.Unlock()

	ps.mu.RLock()
	topicSubs := ps.subscribers[topic]
	if len(topicSubs) == 0 {
		ps.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	for _, sub := range subs {
		if !sub.send(message) {
			ps.logger.Debug("subscriber buffer full, message dropped", logging.String("topic", topic))
		}
	}
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic := range ps.subscribers {
		for sub := range ps.subscribers[topic] {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Channel returns the subscription's message channel. It is closed when
// the subscription ends.
func (s *Subscription) Channel() <-chan any {
	return s.channel
}

// Dropped returns how many messages this subscriber lost to a full buffer
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if s.ps.subscribers[s.topic] != nil {
		delete(s.ps.subscribers[s.topic], s)
		if len(s.ps.subscribers[s.topic]) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

// send reports false when a message was lost
func (s *Subscription) send(message any) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return true
	}

	select {
	case s.channel <- message:
		return true
	default:
	}
	s.dropped.Add(1)
	if s.policy != KeepLatest {
		return false
	}
	select {
	case <-s.channel:
	default:
	}
	select {
	case s.channel <- message:
	default:
	}
	return false
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		s.closed = true
		close(s.channel)
	})
}
