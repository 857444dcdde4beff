// Package emitter implements the Emitter & Subscribers component (C7): an
// ordered subscriber list (webhook -> remote session -> local cache, with
// the local cache always last) and a serial, ordered event dispatch loop.
//
// Grounded on turbo's daemon/lockfile and run.go patterns for logging
// shape (hclog target naming): retryablehttp backs the webhook
// subscriber, backoff/v4 backs the remote-session subscriber, go-gatedio
// bounds concurrent cache hydration writes, and go-isatty/briandowns-spinner
// back the interactive subscriber.
package emitter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-gatedio"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mattn/go-isatty"
)

// Kind enumerates the lifecycle events a pipeline run produces, from
// pipeline-level start/abort/finish down to per-action and per-target
// output archiving/hydrating transitions.
type Kind string

const (
	PipelineStarted       Kind = "PipelineStarted"
	PipelineAborted       Kind = "PipelineAborted"
	PipelineFinished      Kind = "PipelineFinished"
	ActionStarted         Kind = "ActionStarted"
	ActionFinished        Kind = "ActionFinished"
	TargetRunning         Kind = "TargetRunning"
	TargetRan             Kind = "TargetRan"
	TargetOutputArchiving Kind = "TargetOutputArchiving"
	TargetOutputArchived  Kind = "TargetOutputArchived"
	TargetOutputHydrating Kind = "TargetOutputHydrating"
	TargetOutputHydrated  Kind = "TargetOutputHydrated"
)

// Event is the payload dispatched to every subscriber.
type Event struct {
	ID      string                 `json:"id"`
	Kind    Kind                   `json:"kind"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Subscriber exposes the single operation an emitter calls sequentially in
// registration order for each event.
type Subscriber interface {
	Name() string
	OnEvent(Event) error
}

// Emitter dispatches events to subscribers in order, awaiting each one
// serially so per-subscriber mutation of shared state stays ordered, and
// logging (rather than propagating) a subscriber's failure.
type Emitter struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      hclog.Logger
}

// New returns an Emitter with no subscribers registered.
func New(logger hclog.Logger) *Emitter {
	return &Emitter{logger: logger.Named("emitter")}
}

// Register appends sub to the subscriber list. The LocalCacheSubscriber
// invariant (always last) is enforced by registration order at the
// call site, not by this method — see BuildDefault.
func (e *Emitter) Register(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// Emit constructs an Event of kind with payload, stamps it with a UUID and
// the current time, and dispatches it to every subscriber in order.
func (e *Emitter) Emit(kind Kind, payload map[string]interface{}) Event {
	ev := Event{ID: uuid.NewString(), Kind: kind, At: time.Now(), Payload: payload}

	e.mu.RLock()
	subs := append([]Subscriber(nil), e.subscribers...)
	e.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.OnEvent(ev); err != nil {
			e.logger.Warn("subscriber failed to handle event", "subscriber", sub.Name(), "kind", kind, "error", err)
		}
	}

	return ev
}

// WebhookSubscriber POSTs every event to a configured webhook URL using a
// retrying HTTP client, per the workspace notifier contract.
type WebhookSubscriber struct {
	url    string
	client *retryablehttp.Client
	logger hclog.Logger
}

// NewWebhookSubscriber returns nil if url is empty — no subscriber is
// registered when the workspace has no notifier configured.
func NewWebhookSubscriber(url string, logger hclog.Logger) *WebhookSubscriber {
	if url == "" {
		return nil
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil // hclog doesn't satisfy retryablehttp.LeveledLogger; keep it quiet
	return &WebhookSubscriber{url: url, client: client, logger: logger.Named("webhook")}
}

func (w *WebhookSubscriber) Name() string { return "webhook" }

func (w *WebhookSubscriber) OnEvent(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// RemoteSessionSubscriber wraps calls into an externally supplied
// remote-cache transport with exponential backoff, so transient network
// failures don't fail the whole emission.
type RemoteSessionSubscriber struct {
	send   func(Event) error
	policy backoff.BackOff
	logger hclog.Logger
}

// NewRemoteSessionSubscriber wraps send with a bounded exponential backoff
// retry policy. Returns nil when send is nil (no remote session
// configured).
func NewRemoteSessionSubscriber(send func(Event) error, logger hclog.Logger) *RemoteSessionSubscriber {
	if send == nil {
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 10 * time.Second
	return &RemoteSessionSubscriber{send: send, policy: policy, logger: logger.Named("remote-session")}
}

func (r *RemoteSessionSubscriber) Name() string { return "remote-session" }

func (r *RemoteSessionSubscriber) OnEvent(ev Event) error {
	return backoff.Retry(func() error {
		return r.send(ev)
	}, r.policy)
}

// LocalCacheSubscriber is the final line of defense: it hydrates/archives
// cached task outputs on disk. A gated writer caps concurrent disk I/O so
// a large batch of simultaneous TargetOutputHydrating events doesn't
// oversubscribe the filesystem.
type LocalCacheSubscriber struct {
	gate   gatedio.Writer
	hook   func(Event) error
	logger hclog.Logger
}

// NewLocalCacheSubscriber wraps hook (the actual archive/hydrate logic,
// supplied by the pipeline's cache integration) with an I/O gate.
func NewLocalCacheSubscriber(hook func(Event) error, maxConcurrentWrites int, logger hclog.Logger) *LocalCacheSubscriber {
	return &LocalCacheSubscriber{
		gate:   gatedio.NewWriter(new(bytes.Buffer), maxConcurrentWrites),
		hook:   hook,
		logger: logger.Named("local-cache"),
	}
}

func (l *LocalCacheSubscriber) Name() string { return "local-cache" }

func (l *LocalCacheSubscriber) OnEvent(ev Event) error {
	switch ev.Kind {
	case TargetOutputArchiving, TargetOutputHydrating:
		// Serialize against the gate's write capacity: a zero-length
		// write is enough to participate in gatedio's concurrency limit
		// without actually buffering event data.
		if _, err := l.gate.Write(nil); err != nil {
			return err
		}
	}
	if l.hook == nil {
		return nil
	}
	return l.hook(ev)
}

// SpinnerSubscriber renders a single spinner from PipelineStarted until
// PipelineFinished/PipelineAborted when attached to an interactive
// terminal; it no-ops entirely otherwise.
type SpinnerSubscriber struct {
	s           *spinner.Spinner
	interactive bool
}

// NewSpinnerSubscriber inspects fd for TTY-ness via go-isatty; pass the
// fd of the process's stdout.
func NewSpinnerSubscriber(fd uintptr) *SpinnerSubscriber {
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	return &SpinnerSubscriber{s: s, interactive: interactive}
}

func (s *SpinnerSubscriber) Name() string { return "spinner" }

func (s *SpinnerSubscriber) OnEvent(ev Event) error {
	if !s.interactive {
		return nil
	}
	switch ev.Kind {
	case PipelineStarted:
		s.s.Start()
	case PipelineFinished, PipelineAborted:
		s.s.Stop()
	}
	return nil
}

// BuildDefault assembles the canonical ordered subscriber list: webhook,
// then remote session, then the interactive spinner (CI-suppressed via
// IsTerminal), with the local cache subscriber always last.
func BuildDefault(e *Emitter, webhookURL string, remoteSend func(Event) error, cacheHook func(Event) error, stdoutFd uintptr, logger hclog.Logger) {
	if wh := NewWebhookSubscriber(webhookURL, logger); wh != nil {
		e.Register(wh)
	}
	if rs := NewRemoteSessionSubscriber(remoteSend, logger); rs != nil {
		e.Register(rs)
	}
	e.Register(NewSpinnerSubscriber(stdoutFd))
	e.Register(NewLocalCacheSubscriber(cacheHook, 4, logger))
}
