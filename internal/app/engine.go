package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/observability"
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrEngineStopped движок не запущен или уже остановлен
var ErrEngineStopped = errors.New("движок мира остановлен")

// ChunkStore хранилище чанков, которое использует движок
type ChunkStore interface {
	LoadChunk(cx, cz int) (*world.Chunk, bool, error)
	SaveChunks(chunks []*world.Chunk) (int, error)
}

// TargetProvider выдает обработчики пересборки для загружаемых чанков
type TargetProvider interface {
	Handle(cx, cz int) world.RebuildTarget
	Forget(cx, cz int)
}

// Options параметры цикла движка
type Options struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration   // 0 отключает автосохранение
	GrassTrials      int             // попыток роста травы за тик
	Seed             int64
	Logger           *logging.Logger // nil = логгер компонента world
}

// Engine владеет миром и выполняет всю работу с ним в одной горутине.
// Внешний код обращается к миру только через Do.
type Engine struct {
	world     *world.World
	generator world.Generator
	store     ChunkStore
	targets   TargetProvider
	metrics   *observability.WorldMetrics
	tracer    trace.Tracer
	logger    *logging.Logger
	opts      Options
	rng       *rand.Rand

	cmds chan command
	quit chan struct{}
	done chan struct{}

	mu      sync.Mutex
	running bool
}

type command struct {
	fn   func(w *world.World)
	done chan struct{}
}

// NewEngine собирает движок. store, targets и metrics могут быть nil.
func NewEngine(w *world.World, gen world.Generator, store ChunkStore, targets TargetProvider, metrics *observability.WorldMetrics, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetWorldLogger()
	}
	return &Engine{
		world:     w,
		generator: gen,
		store:     store,
		targets:   targets,
		metrics:   metrics,
		tracer:    observability.Tracer(),
		logger:    logger,
		opts:      opts,
		rng:       rand.New(rand.NewSource(opts.Seed)),
		cmds:      make(chan command),
	}
}

// LoadOrGenerate подготавливает квадрат чанков радиуса radius вокруг (0,0).
// Вызывается до Start. Возвращает число загруженных из хранилища и сгенерированных чанков.
func (e *Engine) LoadOrGenerate(radius int) (loaded, generated int, err error) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		return 0, 0, errors.New("LoadOrGenerate нельзя вызывать на запущенном движке")
	}

	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			fromStore, err := e.loadChunk(cx, cz)
			if err != nil {
				return loaded, generated, err
			}
			if fromStore {
				loaded++
			} else {
				generated++
			}
		}
	}
	e.logger.Info("🌍 Стартовая область готова: загружено %d, сгенерировано %d чанков", loaded, generated)
	return loaded, generated, nil
}

// loadChunk ставит чанк в мир из хранилища или генератора и регистрирует обработчик
func (e *Engine) loadChunk(cx, cz int) (bool, error) {
	var chunk *world.Chunk
	fromStore := false

	if e.store != nil {
		c, ok, err := e.store.LoadChunk(cx, cz)
		if err != nil {
			return false, err
		}
		if ok {
			chunk, fromStore = c, true
		}
	}
	if chunk == nil {
		chunk = world.NewChunk(cx, cz)
		if e.generator != nil {
			e.generator.GenerateChunk(chunk)
		}
	}

	e.world.SetChunk(cx, cz, chunk)
	if e.targets != nil {
		e.world.RegisterRebuildTarget(cx, cz, e.targets.Handle(cx, cz))
	}
	return fromStore, nil
}

// LoadChunk загружает чанк на работающем движке
func (e *Engine) LoadChunk(ctx context.Context, cx, cz int) error {
	var loadErr error
	err := e.Do(ctx, func(w *world.World) {
		if w.GetChunk(cx, cz) != nil {
			return
		}
		_, loadErr = e.loadChunk(cx, cz)
	})
	if err != nil {
		return err
	}
	return loadErr
}

// UnloadChunk сохраняет и выгружает чанк
func (e *Engine) UnloadChunk(ctx context.Context, cx, cz int) error {
	var saveErr error
	err := e.Do(ctx, func(w *world.World) {
		chunk := w.GetChunk(cx, cz)
		if chunk == nil {
			return
		}
		if e.store != nil {
			if _, saveErr = e.store.SaveChunks([]*world.Chunk{chunk}); saveErr != nil {
				return
			}
		}
		w.UnregisterRebuildTarget(cx, cz)
		if e.targets != nil {
			e.targets.Forget(cx, cz)
		}
		w.RemoveChunk(cx, cz)
	})
	if err != nil {
		return err
	}
	return saveErr
}

// Start запускает цикл мира в отдельной горутине
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.quit = make(chan struct{})
	e.done = make(chan struct{})
	go e.run()
	e.logger.Info("▶ Цикл мира запущен (тик %s)", e.opts.TickInterval)
}

// Stop останавливает цикл и сохраняет измененные чанки
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.quit)
	done := e.done
	e.mu.Unlock()

	<-done
	n, err := e.saveAll()
	if err != nil {
		return err
	}
	e.logger.Info("⏹ Цикл мира остановлен, сохранено %d чанков", n)
	return nil
}

// Do выполняет fn в горутине мира и ждет завершения.
func (e *Engine) Do(ctx context.Context, fn func(w *world.World)) error {
	e.mu.Lock()
	running, quit := e.running, e.quit
	e.mu.Unlock()
	if !running {
		return ErrEngineStopped
	}

	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.cmds <- cmd:
	case <-quit:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Принятую команду цикл выполнит до проверки quit
	<-cmd.done
	return nil
}

func (e *Engine) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if e.opts.AutosaveInterval > 0 && e.store != nil {
		t := time.NewTicker(e.opts.AutosaveInterval)
		defer t.Stop()
		autosave = t.C
	}

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			e.tick(now.Sub(last))
			last = now
		case cmd := <-e.cmds:
			e.exec(cmd)
		case <-autosave:
			if n, err := e.saveAll(); err != nil {
				e.logger.Error("Ошибка автосохранения: %v", err)
			} else if n > 0 {
				e.logger.Debug("💾 Автосохранение: %d чанков", n)
			}
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) exec(cmd command) {
	defer close(cmd.done)
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Паника в команде мира: %v", r)
		}
	}()
	cmd.fn(e.world)
}

func (e *Engine) tick(dt time.Duration) {
	_, span := e.tracer.Start(context.Background(), "world.tick")
	defer span.End()

	start := time.Now()
	waves := e.world.StepWorld(dt)
	grown := 0
	if e.opts.GrassTrials > 0 {
		grown = e.world.RegrowGrass(e.rng, e.opts.GrassTrials)
	}
	elapsed := time.Since(start)

	stats := e.world.Stats()
	span.SetAttributes(
		attribute.Int("world.fluid_waves", waves),
		attribute.Int("world.grass_grown", grown),
		attribute.Int("world.spread_queue", stats.SpreadQueue),
		attribute.Int("world.retract_pending", stats.RetractPending),
	)
	if e.metrics != nil {
		e.metrics.Observe(stats, elapsed)
	}
	if elapsed > e.opts.TickInterval {
		e.logger.Warn("⚠ Тик занял %s при периоде %s", elapsed, e.opts.TickInterval)
	}
}

// saveAll пишет все измененные чанки. Вызывается только из горутины мира или после ее остановки.
func (e *Engine) saveAll() (int, error) {
	if e.store == nil {
		return 0, nil
	}
	positions := e.world.LoadedChunks()
	chunks := make([]*world.Chunk, 0, len(positions))
	for _, p := range positions {
		if c := e.world.GetChunk(p.X, p.Z); c != nil && c.HasChanges() {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	n, err := e.store.SaveChunks(chunks)
	if e.metrics != nil {
		e.metrics.AddSaved(n)
	}
	return n, err
}

// Save сохраняет измененные чанки из горутины мира
func (e *Engine) Save(ctx context.Context) (int, error) {
	var n int
	var saveErr error
	if err := e.Do(ctx, func(*world.World) { n, saveErr = e.saveAll() }); err != nil {
		return 0, err
	}
	return n, saveErr
}

// Loaded список загруженных чанков
func (e *Engine) Loaded(ctx context.Context) ([]vec.ChunkPos, error) {
	var out []vec.ChunkPos
	err := e.Do(ctx, func(w *world.World) { out = w.LoadedChunks() })
	return out, err
}
