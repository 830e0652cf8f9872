package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// SubjectPrefix префикс subject'ов мира в NATS
const SubjectPrefix = "voxel"

// Subject возвращает subject NATS для типа события
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// Пределы асинхронной публикации
const (
	asyncMaxPending = 1024
	asyncAckTimeout = 5 * time.Second
	drainWait       = 2 * time.Second
)

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Publish не ждет подтверждения, ошибки подтверждений учитываются в Dropped.
type JetStreamBus struct {
	nc         *nats.Conn
	js         nats.JetStreamContext
	stream     string
	published  uint64
	consumed   uint64
	dropped    uint64
	failedAcks uint64
}

// NewJetStreamBus подключается к NATS и гарантирует наличие стрима (subjects: voxel.*).
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "VOXEL"
	}

	nc, err := nats.Connect(url, nats.Name("voxel-world"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	jb := &JetStreamBus{nc: nc, stream: stream}
	js, err := nc.JetStream(
		nats.PublishAsyncMaxPending(asyncMaxPending),
		nats.PublishAsyncTimeout(asyncAckTimeout),
		nats.PublishAsyncErrHandler(func(_ nats.JetStream, _ *nats.Msg, _ error) {
			// подтверждение не пришло: сообщение считаем потерянным
			atomic.AddUint64(&jb.dropped, 1)
			atomic.AddUint64(&jb.failedAcks, 1)
		}),
	)
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{SubjectPrefix + ".*"},
			Retention: nats.LimitsPolicy,
			MaxAge:    retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	jb.js = js
	return jb, nil
}

// Publish сериализует Envelope в JSON и отправляет в subject voxel.<type>
// без ожидания подтверждения. Msg-Id берется из ID конверта, JetStream
// отбрасывает повторы. При переполнении очереди подтверждений nats.go ждет
// не дольше своего stall-таймаута и возвращает ошибку.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	if err := ctx.Err(); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("сериализация конверта: %w", err)
	}

	var opts []nats.PubOpt
	if ev.ID != "" {
		opts = append(opts, nats.MsgId(ev.ID))
	}
	if _, err := jb.js.PublishAsync(Subject(ev.EventType), data, opts...); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт durable consumer и вызывает handler асинхронно.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := SubjectPrefix + ".*"
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	durable := nats.Durable(fmt.Sprintf("sub_%s_%d", strings.Join(f.Types, "_"), time.Now().UnixNano()))

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err == nil && matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.ManualAck(), durable, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  jb.js.PublishAsyncPending(),
	}
}

// FailedAcks число публикаций, для которых JetStream не подтвердил прием
func (jb *JetStreamBus) FailedAcks() uint64 {
	return atomic.LoadUint64(&jb.failedAcks)
}

// Close ждет оставшиеся подтверждения (не дольше drainWait) и закрывает соединение
func (jb *JetStreamBus) Close() error {
	select {
	case <-jb.js.PublishAsyncComplete():
	case <-time.After(drainWait):
	}
	return jb.nc.Drain()
}
