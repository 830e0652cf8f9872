package world

import (
	"sort"
	"time"

	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// Options параметры симуляции мира
type Options struct {
	FluidStepInterval time.Duration // период волны жидкости
	MaxSpreadPerTick  int           // сколько ячеек очереди растекания обрабатывается за тик
	MaxRetractPerTick int           // сколько ключей отката обрабатывается за тик
	SpongeRadius      int
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		FluidStepInterval: 150 * time.Millisecond,
		MaxSpreadPerTick:  128,
		MaxRetractPerTick: 3,
		SpongeRadius:      6,
	}
}

// World хранит загруженные чанки и состояние симуляции жидкостей.
// Не потокобезопасен: все вызовы должны идти из одной горутины цикла мира.
type World struct {
	registry *block.Registry
	opts     Options

	chunks  map[vec.ChunkPos]*Chunk
	targets map[vec.ChunkPos]RebuildTarget

	batch *batchSession

	fluids fluidState
	stats  Stats
}

// New создает пустой мир без загруженных чанков
func New(registry *block.Registry, opts Options) *World {
	defaults := DefaultOptions()
	if opts.FluidStepInterval <= 0 {
		opts.FluidStepInterval = defaults.FluidStepInterval
	}
	if opts.MaxSpreadPerTick <= 0 {
		opts.MaxSpreadPerTick = defaults.MaxSpreadPerTick
	}
	if opts.MaxRetractPerTick <= 0 {
		opts.MaxRetractPerTick = defaults.MaxRetractPerTick
	}
	if opts.SpongeRadius < 0 {
		opts.SpongeRadius = 0
	}

	return &World{
		registry: registry,
		opts:     opts,
		chunks:   make(map[vec.ChunkPos]*Chunk),
		targets:  make(map[vec.ChunkPos]RebuildTarget),
		fluids:   newFluidState(),
	}
}

// Registry возвращает таблицу блоков мира
func (w *World) Registry() *block.Registry {
	return w.registry
}

// Options возвращает действующие параметры
func (w *World) Options() Options {
	return w.opts
}

// GetChunk возвращает чанк или nil, если он не загружен
func (w *World) GetChunk(cx, cz int) *Chunk {
	return w.chunks[vec.ChunkPos{X: cx, Z: cz}]
}

// SetChunk устанавливает чанк в ячейку (cx, cz), заменяя предыдущий.
// Чанк с чужими координатами или уже установленный в другую ячейку отклоняется.
func (w *World) SetChunk(cx, cz int, chunk *Chunk) bool {
	if chunk == nil {
		logging.Warn("SetChunk(%d,%d): nil чанк, используйте RemoveChunk", cx, cz)
		return false
	}
	if chunk.X() != cx || chunk.Z() != cz {
		logging.Warn("SetChunk(%d,%d): координаты чанка (%d,%d) не совпадают", cx, cz, chunk.X(), chunk.Z())
		return false
	}

	key := vec.ChunkPos{X: cx, Z: cz}
	if prev := w.chunks[key]; prev != nil && prev != chunk {
		w.dropFluidNodesIn(key)
	}
	w.chunks[key] = chunk
	return true
}

// RemoveChunk выгружает чанк и забывает граф жидкости его ячеек.
// Обработчик перестройки должен быть снят до выгрузки.
func (w *World) RemoveChunk(cx, cz int) *Chunk {
	key := vec.ChunkPos{X: cx, Z: cz}
	chunk := w.chunks[key]
	if chunk == nil {
		return nil
	}
	if _, ok := w.targets[key]; ok {
		logging.Warn("RemoveChunk(%d,%d): обработчик перестройки не снят, удаляем его", cx, cz)
		delete(w.targets, key)
	}
	w.dropFluidNodesIn(key)
	delete(w.chunks, key)
	return chunk
}

// LoadedChunks возвращает координаты загруженных чанков в детерминированном порядке
func (w *World) LoadedChunks() []vec.ChunkPos {
	keys := make([]vec.ChunkPos, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// ChunkCount число загруженных чанков
func (w *World) ChunkCount() int {
	return len(w.chunks)
}

// locate переводит мировые координаты в чанк и локальные координаты
func (w *World) locate(wx, wy, wz int) (chunk *Chunk, key vec.ChunkPos, lx, lz int) {
	key = vec.ChunkOf(wx, wz, ChunkSize)
	lx, lz = vec.LocalIn(wx, wz, ChunkSize)
	return w.chunks[key], key, lx, lz
}

// IsLoaded проверяет, загружена ли колонка с мировыми координатами (wx, wz)
func (w *World) IsLoaded(wx, wz int) bool {
	chunk, _, _, _ := w.locate(wx, 0, wz)
	return chunk != nil
}

// GetBlockWorld возвращает блок по мировым координатам, воздух если чанк не загружен
func (w *World) GetBlockWorld(wx, wy, wz int) block.BlockID {
	chunk, _, lx, lz := w.locate(wx, wy, wz)
	if chunk == nil {
		return block.AirBlockID
	}
	return chunk.GetBlock(lx, wy, lz)
}

// GetMetaWorld возвращает метаданные по мировым координатам
func (w *World) GetMetaWorld(wx, wy, wz int) uint8 {
	chunk, _, lx, lz := w.locate(wx, wy, wz)
	if chunk == nil {
		return 0
	}
	return chunk.GetMeta(lx, wy, lz)
}

// Stats возвращает копию счетчиков мира
func (w *World) Stats() Stats {
	s := w.stats
	s.LoadedChunks = len(w.chunks)
	s.RebuildTargets = len(w.targets)
	s.SpreadQueue = w.fluids.queue.Len()
	s.RetractPending = w.fluids.retract.Len()
	s.FluidNodes = len(w.fluids.nodes)
	return s
}

// Stats счетчики мира для метрик и API
type Stats struct {
	LoadedChunks   int `json:"loaded_chunks"`
	RebuildTargets int `json:"rebuild_targets"`
	SpreadQueue    int `json:"spread_queue"`
	RetractPending int `json:"retract_pending"`
	FluidNodes     int `json:"fluid_nodes"`

	BlockWrites    uint64 `json:"block_writes"`
	Rebuilds       uint64 `json:"rebuilds"`
	FluidTicks     uint64 `json:"fluid_ticks"`
	CellsProcessed uint64 `json:"cells_processed"`
	StaleCells     uint64 `json:"stale_cells"`
	Retractions    uint64 `json:"retractions"`
	Reactions      uint64 `json:"reactions"`
}
