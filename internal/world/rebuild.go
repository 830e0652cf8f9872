package world

import "github.com/samsungplay/CS559-IP3/internal/vec"

// RebuildTarget получает сигнал о том, что данные чанка изменились и его
// представление (меш, кэш, подписчики) нужно пересобрать.
type RebuildTarget interface {
	Rebuild()
}

// RebuildFunc адаптер функции к RebuildTarget
type RebuildFunc func()

// Rebuild вызывает функцию
func (f RebuildFunc) Rebuild() { f() }

// RegisterRebuildTarget связывает обработчик с чанком (cx, cz).
// Мир хранит только ссылку, владелец обработчика другой.
func (w *World) RegisterRebuildTarget(cx, cz int, target RebuildTarget) {
	key := vec.ChunkPos{X: cx, Z: cz}
	if target == nil {
		delete(w.targets, key)
		return
	}
	w.targets[key] = target
}

// UnregisterRebuildTarget снимает обработчик чанка
func (w *World) UnregisterRebuildTarget(cx, cz int) {
	delete(w.targets, vec.ChunkPos{X: cx, Z: cz})
}

// scheduleRebuilds помечает чанк записи и соседей через шов
func (w *World) scheduleRebuilds(key vec.ChunkPos, lx, lz int) {
	w.requestRebuild(key)
	if lx == 0 {
		w.requestRebuild(key.Neighbor(-1, 0))
	}
	if lx == ChunkSize-1 {
		w.requestRebuild(key.Neighbor(1, 0))
	}
	if lz == 0 {
		w.requestRebuild(key.Neighbor(0, -1))
	}
	if lz == ChunkSize-1 {
		w.requestRebuild(key.Neighbor(0, 1))
	}
}

func (w *World) requestRebuild(key vec.ChunkPos) {
	if w.batch != nil {
		w.batch.add(key)
		return
	}
	w.rebuildNow(key)
}

func (w *World) rebuildNow(key vec.ChunkPos) {
	target := w.targets[key]
	if target == nil {
		return
	}
	w.stats.Rebuilds++
	target.Rebuild()
}
