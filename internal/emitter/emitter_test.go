package emitter

import (
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
)

type recordingSubscriber struct {
	name string
	mu   sync.Mutex
	seen []Kind
	fail bool
}

func (r *recordingSubscriber) Name() string { return r.name }

func (r *recordingSubscriber) OnEvent(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, ev.Kind)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func newTestLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestEmitDispatchesInRegistrationOrder(t *testing.T) {
	var order []string
	a := &orderTrackingSubscriber{name: "a", order: &order}
	b := &orderTrackingSubscriber{name: "b", order: &order}

	e := New(newTestLogger())
	e.Register(a)
	e.Register(b)

	e.Emit(PipelineStarted, nil)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}
}

type orderTrackingSubscriber struct {
	name  string
	order *[]string
}

func (o *orderTrackingSubscriber) Name() string { return o.name }
func (o *orderTrackingSubscriber) OnEvent(Event) error {
	*o.order = append(*o.order, o.name)
	return nil
}

func TestEmitContinuesAfterSubscriberFailure(t *testing.T) {
	failing := &recordingSubscriber{name: "failing", fail: true}
	after := &recordingSubscriber{name: "after"}

	e := New(newTestLogger())
	e.Register(failing)
	e.Register(after)

	e.Emit(ActionStarted, nil)

	if len(after.seen) != 1 {
		t.Fatalf("expected the subscriber after a failing one to still run, got %v", after.seen)
	}
}

func TestEmitStampsIDAndKind(t *testing.T) {
	e := New(newTestLogger())
	ev := e.Emit(TargetRan, map[string]interface{}{"target": "app:build"})

	if ev.ID == "" {
		t.Fatalf("expected a non-empty event id")
	}
	if ev.Kind != TargetRan {
		t.Fatalf("Kind = %v", ev.Kind)
	}
	if ev.Payload["target"] != "app:build" {
		t.Fatalf("payload not preserved: %v", ev.Payload)
	}
}

func TestNewWebhookSubscriberNilWhenURLEmpty(t *testing.T) {
	if NewWebhookSubscriber("", newTestLogger()) != nil {
		t.Fatalf("expected nil subscriber for empty url")
	}
}

func TestNewRemoteSessionSubscriberNilWhenSendNil(t *testing.T) {
	if NewRemoteSessionSubscriber(nil, newTestLogger()) != nil {
		t.Fatalf("expected nil subscriber for nil send func")
	}
}

func TestRemoteSessionSubscriberRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	sub := NewRemoteSessionSubscriber(func(Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, newTestLogger())

	if err := sub.OnEvent(Event{Kind: ActionFinished}); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestLocalCacheSubscriberInvokesHookOnArchiveEvents(t *testing.T) {
	var got Kind
	sub := NewLocalCacheSubscriber(func(ev Event) error {
		got = ev.Kind
		return nil
	}, 2, newTestLogger())

	if err := sub.OnEvent(Event{Kind: TargetOutputArchiving}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != TargetOutputArchiving {
		t.Fatalf("hook did not observe event kind, got %v", got)
	}
}

func TestSpinnerSubscriberNoOpWhenNotInteractive(t *testing.T) {
	s := &SpinnerSubscriber{interactive: false}
	if err := s.OnEvent(Event{Kind: PipelineStarted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildDefaultOrdersLocalCacheLast(t *testing.T) {
	e := New(newTestLogger())
	BuildDefault(e, "", nil, nil, 0, newTestLogger())

	if len(e.subscribers) == 0 {
		t.Fatalf("expected at least the spinner and local-cache subscribers")
	}
	last := e.subscribers[len(e.subscribers)-1]
	if last.Name() != "local-cache" {
		t.Fatalf("expected local-cache subscriber last, got %s", last.Name())
	}
}
