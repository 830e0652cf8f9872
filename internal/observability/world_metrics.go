package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samsungplay/CS559-IP3/internal/world"
)

// WorldMetrics экспортирует world.Stats в Prometheus.
// Observe вызывается из цикла мира после каждого тика.
type WorldMetrics struct {
	prev world.Stats

	loadedChunks   prometheus.Gauge
	rebuildTargets prometheus.Gauge
	spreadQueue    prometheus.Gauge
	retractPending prometheus.Gauge
	fluidNodes     prometheus.Gauge

	blockWrites    prometheus.Counter
	rebuilds       prometheus.Counter
	fluidTicks     prometheus.Counter
	cellsProcessed prometheus.Counter
	staleCells     prometheus.Counter
	retractions    prometheus.Counter
	reactions      prometheus.Counter

	tickDuration prometheus.Histogram
	savedChunks  prometheus.Counter
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "voxel", Subsystem: "world", Name: name, Help: help})
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "voxel", Subsystem: "world", Name: name, Help: help})
}

// NewWorldMetrics создает метрики и регистрирует их в reg
func NewWorldMetrics(reg prometheus.Registerer) (*WorldMetrics, error) {
	m := &WorldMetrics{
		loadedChunks:   gauge("loaded_chunks", "Загруженные чанки."),
		rebuildTargets: gauge("rebuild_targets", "Чанки с зарегистрированным обработчиком пересборки."),
		spreadQueue:    gauge("fluid_spread_queue", "Длина очереди растекания."),
		retractPending: gauge("fluid_retract_pending", "Ключи, ожидающие отката."),
		fluidNodes:     gauge("fluid_nodes", "Узлы графа жидкостей."),

		blockWrites:    counter("block_writes_total", "Изменившие мир записи блоков."),
		rebuilds:       counter("rebuilds_total", "Вызовы обработчиков пересборки."),
		fluidTicks:     counter("fluid_ticks_total", "Выполненные волны жидкости."),
		cellsProcessed: counter("fluid_cells_processed_total", "Обработанные ячейки растекания."),
		staleCells:     counter("fluid_stale_cells_total", "Устаревшие записи очереди."),
		retractions:    counter("fluid_retractions_total", "Откатанные ячейки."),
		reactions:      counter("fluid_reactions_total", "Реакции воды и лавы."),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика цикла мира.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		savedChunks: counter("saved_chunks_total", "Чанки, записанные в хранилище."),
	}

	collectors := []prometheus.Collector{
		m.loadedChunks, m.rebuildTargets, m.spreadQueue, m.retractPending, m.fluidNodes,
		m.blockWrites, m.rebuilds, m.fluidTicks, m.cellsProcessed, m.staleCells, m.retractions, m.reactions,
		m.tickDuration, m.savedChunks,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}

// Observe переносит снимок статистики и длительность тика
func (m *WorldMetrics) Observe(s world.Stats, tick time.Duration) {
	m.loadedChunks.Set(float64(s.LoadedChunks))
	m.rebuildTargets.Set(float64(s.RebuildTargets))
	m.spreadQueue.Set(float64(s.SpreadQueue))
	m.retractPending.Set(float64(s.RetractPending))
	m.fluidNodes.Set(float64(s.FluidNodes))

	addDelta(m.blockWrites, s.BlockWrites, m.prev.BlockWrites)
	addDelta(m.rebuilds, s.Rebuilds, m.prev.Rebuilds)
	addDelta(m.fluidTicks, s.FluidTicks, m.prev.FluidTicks)
	addDelta(m.cellsProcessed, s.CellsProcessed, m.prev.CellsProcessed)
	addDelta(m.staleCells, s.StaleCells, m.prev.StaleCells)
	addDelta(m.retractions, s.Retractions, m.prev.Retractions)
	addDelta(m.reactions, s.Reactions, m.prev.Reactions)

	m.tickDuration.Observe(tick.Seconds())
	m.prev = s
}

// AddSaved учитывает сохраненные чанки
func (m *WorldMetrics) AddSaved(n int) {
	if n > 0 {
		m.savedChunks.Add(float64(n))
	}
}
