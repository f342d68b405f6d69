package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/wavepick-backend/pkg/config"
	"github.com/angelmondragon/wavepick-backend/pkg/db/models"
	"github.com/angelmondragon/wavepick-backend/pkg/logger"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox"
	"github.com/angelmondragon/wavepick-backend/pkg/outbox/registry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	WarehousePublisher() *gcppubsub.Publisher
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id int64) error
	MarkFailedTx(tx *gorm.DB, id int64, err error) error
	MarkTerminalTx(tx *gorm.DB, id int64, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publisher is one topic's ordered Pub/Sub publisher.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	// ResumePublish unblocks an ordering key after a failed publish.
	ResumePublish(orderingKey string)
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// outcome is what a batch did with one outbox row.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetrying
	outcomeParked
	outcomeHeld
)

type batchTally struct {
	published int
	retrying  int
	parked    int
	held      int
}

func (b *batchTally) add(o outcome) {
	switch o {
	case outcomePublished:
		b.published++
	case outcomeRetrying:
		b.retrying++
	case outcomeParked:
		b.parked++
	case outcomeHeld:
		b.held++
	}
}

func (b batchTally) total() int { return b.published + b.retrying + b.parked + b.held }

// progressed reports whether any row left the queue.
func (b batchTally) progressed() bool { return b.published+b.parked > 0 }

func (b batchTally) fields() map[string]any {
	return map[string]any{
		"published": b.published,
		"retrying":  b.retrying,
		"parked":    b.parked,
		"held":      b.held,
	}
}

type RelayParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory func(topic string) publisher
}

// Relay moves warehouse events from the outbox table to Pub/Sub. Events of
// one aggregate leave in outbox order: each message carries the aggregate as
// its ordering key, and after one of them fails the aggregate's later rows
// wait for the next batch.
type Relay struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	newPublisher func(topic string) publisher
	publishers   map[string]publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			p := params.PubSub.Publisher(topic)
			if p == nil {
				return nil
			}
			p.EnableMessageOrdering = true
			return &gcpPublisher{Publisher: p}
		}
	}

	outboxCfg := params.Config.Outbox
	batch := outboxCfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := outboxCfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := outboxCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		newPublisher: factory,
		publishers:   make(map[string]publisher),
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (r *Relay) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", r.db.Ping},
		{"pubsub", r.pubsub.Ping},
	} {
		if err := dep.ping(ctx); err != nil {
			r.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	if r.pubsub.WarehousePublisher() == nil {
		return errors.New("warehouse events publisher not configured")
	}
	return nil
}

// Run relays batches until ctx ends. An idle or stuck outbox is polled at
// the configured interval; storage errors back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.ensureReadiness(ctx); err != nil {
		return err
	}
	defer r.stopPublishers()

	backoff := r.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		progressed, err := r.relayBatch(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			backoff = nextBackoff(backoff, r.pollInterval, maxBackoff)
		case progressed:
			backoff = r.pollInterval
			continue
		default:
			backoff = r.pollInterval
		}
		if err := r.sleep(ctx, withJitter(backoff)); err != nil {
			return err
		}
	}
}

// relayBatch settles one batch of rows inside a transaction and reports
// whether any row left the queue.
func (r *Relay) relayBatch(ctx context.Context) (bool, error) {
	var tally batchTally
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		tally = batchTally{}
		events, err := r.repo.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		blocked := make(map[string]struct{})
		for _, event := range events {
			key := orderingKey(event)
			if _, ok := blocked[key]; ok {
				tally.add(outcomeHeld)
				continue
			}
			o, err := r.settle(ctx, tx, event)
			if err != nil {
				return err
			}
			if o == outcomeRetrying {
				blocked[key] = struct{}{}
			}
			tally.add(o)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if tally.total() == 0 {
		r.logg.Debug(ctx, "outbox empty")
		return false, nil
	}
	r.logg.Info(r.logg.WithFields(ctx, tally.fields()), "outbox batch relayed")
	return tally.progressed(), nil
}

// settle publishes one row and records the result on it.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return r.park(ctx, tx, event, "non_retryable", err, r.eventFields(event, outbox.PayloadEnvelope{}, ""))
	}
	fields := r.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic)

	err = r.publish(ctx, event, resolved)
	if err == nil {
		if err := r.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return 0, fmt.Errorf("mark published %d: %w", event.ID, err)
		}
		r.logg.Debug(r.logg.WithFields(ctx, fields), "outbox event published")
		return outcomePublished, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return r.park(ctx, tx, event, "non_retryable", err, fields)
	}
	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		return r.park(ctx, tx, event, "max_attempts", fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", err.Error())
	r.logg.Warn(logCtx, "outbox publish failed; later events of the aggregate wait")
	if err := r.repo.MarkFailedTx(tx, event.ID, err); err != nil {
		return 0, fmt.Errorf("mark failure %d: %w", event.ID, err)
	}
	return outcomeRetrying, nil
}

// park stops retrying a row. The row keeps its payload and last error for
// inspection and drops out of later batches once its attempt count reaches
// the maximum.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, err error, fields map[string]any) (outcome, error) {
	fields["terminal_reason"] = reason
	logCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", err.Error())
	r.logg.Warn(logCtx, "outbox event parked")
	if markErr := r.repo.MarkTerminalTx(tx, event.ID, err, r.maxAttempts); markErr != nil {
		return 0, fmt.Errorf("mark terminal %d: %w", event.ID, markErr)
	}
	return outcomeParked, nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	key := orderingKey(event)
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes:  messageAttributes(event, resolved.Envelope),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		pub.ResumePublish(key)
		if permanentStatus(err) {
			return registry.NewNonRetryableError(err)
		}
		return err
	}
	return nil
}

func (r *Relay) publisherFor(topic string) publisher {
	if p, ok := r.publishers[topic]; ok {
		return p
	}
	p := r.newPublisher(topic)
	if p != nil {
		r.publishers[topic] = p
	}
	return p
}

// stopPublishers flushes pending messages before shutdown.
func (r *Relay) stopPublishers() {
	for topic, p := range r.publishers {
		p.Stop()
		delete(r.publishers, topic)
	}
}

// orderingKey serialises events per wave, order or tenant.
func orderingKey(event models.OutboxEvent) string {
	return fmt.Sprintf("%s/%d", event.AggregateType, event.AggregateID)
}

func messageAttributes(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	attrs := map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   strconv.FormatInt(event.AggregateID, 10),
		"schema_version": strconv.Itoa(envelope.Version),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
	if actor := envelope.Actor; actor != nil && actor.TenantID > 0 {
		attrs["tenant_id"] = strconv.FormatInt(actor.TenantID, 10)
	}
	return attrs
}

// permanentStatus reports gRPC failures that another attempt cannot fix.
func permanentStatus(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}

func (r *Relay) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":     event.ID,
		"event_type":    event.EventType,
		"ordering_key":  orderingKey(event),
		"attempt_count": event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
