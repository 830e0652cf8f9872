package world

import (
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// CellKey идентифицирует узел графа жидкости: тип жидкости и мировая позиция
type CellKey struct {
	Fluid block.BlockID
	X     int
	Y     int
	Z     int
}

func keyAt(fluid block.BlockID, pos vec.Vec3) CellKey {
	return CellKey{Fluid: fluid, X: pos.X, Y: pos.Y, Z: pos.Z}
}

// Pos возвращает позицию ячейки
func (k CellKey) Pos() vec.Vec3 {
	return vec.Vec3{X: k.X, Y: k.Y, Z: k.Z}
}

type fluidCell struct {
	pos   vec.Vec3
	fluid block.BlockID
}

const queueCompactThreshold = 1024

// spreadQueue FIFO ячеек к обработке. Голова сдвигается индексом,
// массив периодически уплотняется.
type spreadQueue struct {
	items []fluidCell
	head  int
}

func (q *spreadQueue) Push(c fluidCell) {
	q.items = append(q.items, c)
}

func (q *spreadQueue) Pop() (fluidCell, bool) {
	if q.head >= len(q.items) {
		return fluidCell{}, false
	}
	c := q.items[q.head]
	q.head++

	if q.head > queueCompactThreshold && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return c, true
}

func (q *spreadQueue) Len() int {
	return len(q.items) - q.head
}

// retractionSet множество ключей к откату. Повторная вставка ничего не меняет,
// выдача в порядке вставки.
type retractionSet struct {
	order   []CellKey
	head    int
	pending map[CellKey]struct{}
}

func newRetractionSet() retractionSet {
	return retractionSet{pending: make(map[CellKey]struct{})}
}

func (s *retractionSet) Add(k CellKey) bool {
	if _, ok := s.pending[k]; ok {
		return false
	}
	s.pending[k] = struct{}{}
	s.order = append(s.order, k)
	return true
}

func (s *retractionSet) Has(k CellKey) bool {
	_, ok := s.pending[k]
	return ok
}

// Remove отменяет откат. Запись в order пропускается при выдаче.
func (s *retractionSet) Remove(k CellKey) {
	delete(s.pending, k)
}

func (s *retractionSet) Take() (CellKey, bool) {
	for s.head < len(s.order) {
		k := s.order[s.head]
		s.head++
		if _, ok := s.pending[k]; !ok {
			continue
		}
		delete(s.pending, k)
		s.compact()
		return k, true
	}
	s.order = s.order[:0]
	s.head = 0
	return CellKey{}, false
}

func (s *retractionSet) compact() {
	if s.head > queueCompactThreshold && s.head*2 > len(s.order) {
		n := copy(s.order, s.order[s.head:])
		s.order = s.order[:n]
		s.head = 0
	}
}

func (s *retractionSet) Len() int {
	return len(s.pending)
}
