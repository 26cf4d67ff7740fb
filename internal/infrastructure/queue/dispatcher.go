package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apiecommerce/identity-service/internal/api/metrics"
	"github.com/apiecommerce/identity-service/internal/core/domain"
	"github.com/apiecommerce/identity-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

var _ ports.EventSink = (*Dispatcher)(nil)

// Dispatcher fans auth events out to a fixed set of workers using consistent
// hashing on the user id, so events for one user are published in order.
type Dispatcher struct {
	workers   []chan domain.AuthEvent
	publisher ports.EventPublisher
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.AuthEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their queue and stop
// when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands the event to the worker responsible for its user. A full
// worker queue drops the event rather than stall the request.
func (d *Dispatcher) Enqueue(event domain.AuthEvent) {
	select {
	case d.workers[d.shardIndex(event.UserID)] <- event:
	default:
		metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
		d.log.Warn().
			Str("type", string(event.Type)).
			Str("user_id", event.UserID).
			Msg("event queue full, dropping event")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			d.publish(ctx, id, event)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.AuthEvent) {
	for {
		select {
		case event := <-ch:
			d.publish(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, id int, event domain.AuthEvent) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Str("user_id", event.UserID).
			Int("worker_id", id).
			Msg("event publish failed")
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "error").Inc()
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type), "ok").Inc()
}
