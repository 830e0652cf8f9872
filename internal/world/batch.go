package world

import (
	"errors"

	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/vec"
)

// ErrBatchOpen возвращается при попытке открыть вложенную пакетную сессию
var ErrBatchOpen = errors.New("world: пакетная сессия уже открыта")

// batchSession множество чанков, ожидающих перестройки, в порядке добавления
type batchSession struct {
	dirty map[vec.ChunkPos]struct{}
	order []vec.ChunkPos
}

func (b *batchSession) add(key vec.ChunkPos) {
	if _, ok := b.dirty[key]; ok {
		return
	}
	b.dirty[key] = struct{}{}
	b.order = append(b.order, key)
}

// BeginBatch открывает пакетную сессию: перестройки копятся до EndBatch.
// Вложенные сессии не поддерживаются, открытая сессия при этом не трогается.
func (w *World) BeginBatch() error {
	if w.batch != nil {
		logging.Warn("BeginBatch: сессия уже открыта (%d чанков в ожидании)", len(w.batch.order))
		return ErrBatchOpen
	}
	w.batch = &batchSession{dirty: make(map[vec.ChunkPos]struct{})}
	return nil
}

// EndBatch закрывает сессию и перестраивает каждый помеченный чанк ровно один раз
func (w *World) EndBatch() {
	if w.batch == nil {
		logging.Warn("EndBatch: нет открытой сессии")
		return
	}
	pending := w.batch.order
	w.batch = nil

	for _, key := range pending {
		w.rebuildNow(key)
	}
}

// InBatch проверяет, открыта ли сессия
func (w *World) InBatch() bool {
	return w.batch != nil
}

// WithBatch выполняет fn в пакетной сессии. Если сессия уже открыта
// вызывающим, fn присоединяется к ней.
func (w *World) WithBatch(fn func()) {
	if w.batch != nil {
		fn()
		return
	}
	w.batch = &batchSession{dirty: make(map[vec.ChunkPos]struct{})}
	defer w.EndBatch()
	fn()
}
