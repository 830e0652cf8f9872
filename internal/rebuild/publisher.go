// Package rebuild публикует сигналы пересборки чанков в шину событий.
package rebuild

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samsungplay/CS559-IP3/internal/eventbus"
	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world"
)

// EventType тип события пересборки
const EventType = "ChunkRebuild"

// Payload полезная нагрузка ChunkRebuild
type Payload struct {
	CX  int    `json:"cx"`
	CZ  int    `json:"cz"`
	Seq uint64 `json:"seq"` // номер пересборки чанка, растет монотонно
}

// DefaultPublishTimeout предел ожидания шины на одну публикацию
const DefaultPublishTimeout = 250 * time.Millisecond

// Publisher выдает RebuildTarget для чанков и превращает каждый Rebuild в событие.
// Rebuild вызывается из цикла мира, поэтому каждая публикация ограничена таймаутом.
type Publisher struct {
	bus     eventbus.EventBus
	source  string
	timeout time.Duration

	mu   sync.Mutex
	seqs map[vec.ChunkPos]uint64
}

// NewPublisher создает публикатор с именем источника source
func NewPublisher(bus eventbus.EventBus, source string) *Publisher {
	return &Publisher{
		bus:     bus,
		source:  source,
		timeout: DefaultPublishTimeout,
		seqs:    make(map[vec.ChunkPos]uint64),
	}
}

// SetTimeout меняет предел ожидания публикации (d <= 0 оставляет прежний)
func (p *Publisher) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

type handle struct {
	p   *Publisher
	key vec.ChunkPos
}

func (h handle) Rebuild() { h.p.publish(h.key) }

// Handle возвращает обработчик для регистрации в world.RegisterRebuildTarget
func (p *Publisher) Handle(cx, cz int) world.RebuildTarget {
	return handle{p: p, key: vec.ChunkPos{X: cx, Z: cz}}
}

// Seq номер последней пересборки чанка (0 если не было)
func (p *Publisher) Seq(cx, cz int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seqs[vec.ChunkPos{X: cx, Z: cz}]
}

// Forget сбрасывает счетчик выгруженного чанка
func (p *Publisher) Forget(cx, cz int) {
	p.mu.Lock()
	delete(p.seqs, vec.ChunkPos{X: cx, Z: cz})
	p.mu.Unlock()
}

func (p *Publisher) publish(key vec.ChunkPos) {
	p.mu.Lock()
	p.seqs[key]++
	seq := p.seqs[key]
	p.mu.Unlock()

	data, err := json.Marshal(Payload{CX: key.X, CZ: key.Z, Seq: seq})
	if err != nil {
		logging.Error("rebuild: сериализация (%d,%d): %v", key.X, key.Z, err)
		return
	}

	ev := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    p.source,
		EventType: EventType,
		Version:   1,
		Priority:  3,
		Payload:   data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, ev); err != nil {
		logging.Warn("rebuild: публикация (%d,%d) seq=%d: %v", key.X, key.Z, seq, err)
	}
}

// Decode разбирает полезную нагрузку события ChunkRebuild
func Decode(ev *eventbus.Envelope) (Payload, error) {
	var p Payload
	err := json.Unmarshal(ev.Payload, &p)
	return p, err
}
