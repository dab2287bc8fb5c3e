// Package dispatcher delivers SMS notifications off the request path.
//
// Callers hand messages to Enqueue, which never blocks and never fails the
// caller. A single Run loop drains the queue at a bounded rate and sends
// through the configured gateway.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"barangay/internal/notification/gateway"
	"barangay/internal/notification/metrics"
	"barangay/pkg/platform/circuit"
)

// Kind names the event a notification announces.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindApproved  Kind = "approved"
	KindDenied    Kind = "denied"
)

// Message is one queued SMS.
type Message struct {
	Kind       Kind      `json:"kind"`
	Phone      string    `json:"phone"`
	Body       string    `json:"body"`
	RequestID  int64     `json:"requestId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

type Dispatcher struct {
	queue       Queue
	gateway     gateway.Gateway
	limiter     *rate.Limiter
	breaker     *circuit.Breaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	sendTimeout time.Duration
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRateLimit caps provider calls per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if perSecond <= 0 {
			d.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) { d.breaker = b }
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func New(queue Queue, gw gateway.Gateway, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:       queue,
		gateway:     gw,
		limiter:     rate.NewLimiter(rate.Limit(2), 5),
		breaker:     circuit.New("sms-"+gw.Name(), circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
		logger:      slog.Default(),
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands msg to the queue. Messages without a phone number, or that
// do not fit, are dropped and logged.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) {
	if msg.Phone == "" {
		d.drop(ctx, msg, "no_phone")
		return
	}
	if _, ok := d.gateway.(gateway.Disabled); ok {
		d.drop(ctx, msg, "disabled")
		return
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	if err := d.queue.Push(ctx, msg); err != nil {
		reason := "queue_error"
		if errors.Is(err, ErrQueueFull) {
			reason = "queue_full"
		}
		d.logger.WarnContext(ctx, "notification not queued", "error", err, "kind", msg.Kind, "request_id", msg.RequestID)
		d.drop(ctx, msg, reason)
		return
	}
	if d.metrics != nil {
		d.metrics.IncrementEnqueued(string(msg.Kind))
		d.metrics.SetQueueDepth(d.queue.Len())
	}
}

func (d *Dispatcher) drop(ctx context.Context, msg Message, reason string) {
	d.logger.DebugContext(ctx, "notification dropped", "reason", reason, "kind", msg.Kind, "request_id", msg.RequestID)
	if d.metrics != nil {
		d.metrics.IncrementDropped(reason)
	}
}

// Run sends queued messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.InfoContext(ctx, "notification dispatcher started", "provider", d.gateway.Name())
	for {
		msg, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.ErrorContext(ctx, "notification queue read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.SetQueueDepth(d.queue.Len())
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return nil
		}
		d.send(ctx, msg)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg Message) {
	if !d.breaker.Allow() {
		d.drop(ctx, msg, "circuit_open")
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	provider := d.gateway.Name()
	ok, err := d.gateway.SendSMS(sendCtx, msg.Phone, msg.Body)
	if err != nil || !ok {
		_, change := d.breaker.RecordFailure()
		if change.Opened {
			d.logger.WarnContext(ctx, "sms provider circuit opened", "provider", provider)
		}
		d.logger.WarnContext(ctx, "sms not delivered",
			"provider", provider,
			"kind", msg.Kind,
			"request_id", msg.RequestID,
			"error", err,
		)
		if d.metrics != nil {
			d.metrics.IncrementFailed(provider, string(msg.Kind))
		}
		return
	}
	if _, change := d.breaker.RecordSuccess(); change.Closed {
		d.logger.InfoContext(ctx, "sms provider circuit closed", "provider", provider)
	}
	d.logger.InfoContext(ctx, "sms sent", "provider", provider, "kind", msg.Kind, "request_id", msg.RequestID)
	if d.metrics != nil {
		d.metrics.IncrementSent(provider, string(msg.Kind))
	}
}
