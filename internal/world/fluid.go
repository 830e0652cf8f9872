package world

import (
	"time"

	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// fluidNode узел леса жидкости. У корня (источника) нет родителя.
type fluidNode struct {
	parent    CellKey
	hasParent bool
	children  map[CellKey]struct{}
}

type fluidState struct {
	queue   spreadQueue
	retract retractionSet
	nodes   map[CellKey]*fluidNode
	acc     time.Duration
}

func newFluidState() fluidState {
	return fluidState{
		retract: newRetractionSet(),
		nodes:   make(map[CellKey]*fluidNode),
	}
}

// StepWorld продвигает симуляцию на dt. Волны жидкости идут с фиксированным
// периодом, остаток времени копится до следующего вызова.
// Возвращает число выполненных волн.
func (w *World) StepWorld(dt time.Duration) int {
	if dt <= 0 {
		return 0
	}
	w.fluids.acc += dt
	steps := 0
	for w.fluids.acc >= w.opts.FluidStepInterval {
		w.fluids.acc -= w.opts.FluidStepInterval
		w.TickFluids()
		steps++
	}
	return steps
}

// TickFluids одна волна: сначала растекание, затем откат, все записи
// в одной пакетной сессии.
func (w *World) TickFluids() {
	w.WithBatch(func() {
		count := w.fluids.queue.Len()
		if count > w.opts.MaxSpreadPerTick {
			count = w.opts.MaxSpreadPerTick
		}
		for i := 0; i < count; i++ {
			c, ok := w.fluids.queue.Pop()
			if !ok {
				break
			}
			w.processFluidCell(c)
		}

		// дети, добавленные в этой волне, ждут следующей
		count = w.fluids.retract.Len()
		if count > w.opts.MaxRetractPerTick {
			count = w.opts.MaxRetractPerTick
		}
		for i := 0; i < count; i++ {
			key, ok := w.fluids.retract.Take()
			if !ok {
				break
			}
			w.processRetraction(key)
		}
	})
	w.stats.FluidTicks++
}

// FluidIdle true когда нет ни ячеек к растеканию, ни ключей к откату
func (w *World) FluidIdle() bool {
	return w.fluids.queue.Len() == 0 && w.fluids.retract.Len() == 0
}

func (w *World) enqueueFluid(pos vec.Vec3, fluid block.BlockID) {
	w.fluids.queue.Push(fluidCell{pos: pos, fluid: fluid})
}

func (w *World) scheduleRetraction(key CellKey) {
	w.fluids.retract.Add(key)
}

func (w *World) node(key CellKey) *fluidNode {
	n := w.fluids.nodes[key]
	if n == nil {
		n = &fluidNode{children: make(map[CellKey]struct{})}
		w.fluids.nodes[key] = n
	}
	return n
}

// detach разрывает ребро от родителя к key
func (w *World) detach(key CellKey) {
	n := w.fluids.nodes[key]
	if n == nil || !n.hasParent {
		return
	}
	if p := w.fluids.nodes[n.parent]; p != nil {
		delete(p.children, key)
	}
	n.hasParent = false
}

// forget удаляет узел; его дети уходят в откат
func (w *World) forget(key CellKey) {
	n := w.fluids.nodes[key]
	if n == nil {
		return
	}
	for child := range n.children {
		w.scheduleRetraction(child)
	}
	w.detach(key)
	delete(w.fluids.nodes, key)
}

// placeRoot регистрирует новый источник, поставленный извне. Если по этому
// ключу ждал откат, он отменяется и источник снова кормит старых детей.
func (w *World) placeRoot(pos vec.Vec3, fluid block.BlockID) {
	key := keyAt(fluid, pos)
	w.fluids.retract.Remove(key)
	w.detach(key)
	w.node(key)
	w.enqueueFluid(pos, fluid)
}

type fluidEntry int

const (
	entryBlocked fluidEntry = iota
	entryOpen
	entryReacted
)

// fluidEntry решает, может ли жидкость уровня level войти в pos.
// Встреча с противоположной жидкостью превращает цель в продукт реакции.
func (w *World) fluidEntry(fluid block.BlockID, pos vec.Vec3, level uint8) fluidEntry {
	if pos.Y < YMin || pos.Y > YMax || !w.IsLoaded(pos.X, pos.Z) {
		return entryBlocked
	}
	if w.fluids.retract.Has(keyAt(fluid, pos)) {
		return entryBlocked
	}

	reg := w.registry
	id := w.GetBlockWorld(pos.X, pos.Y, pos.Z)
	switch {
	case reg.IsReplaceableByFluid(id):
		return entryOpen
	case id == fluid:
		if level < w.GetMetaWorld(pos.X, pos.Y, pos.Z) {
			return entryOpen
		}
		return entryBlocked
	}

	if other, ok := reg.Opposite(fluid); ok && id == other {
		w.react(pos, id)
		return entryReacted
	}
	return entryBlocked
}

// react превращает ячейку с вытесняемой жидкостью в продукт реакции.
// Учет вытесненного узла сбрасывается, его дети откатываются.
func (w *World) react(pos vec.Vec3, displaced block.BlockID) {
	w.stats.Reactions++
	w.forget(keyAt(displaced, pos))
	w.SetBlockWorld(pos.X, pos.Y, pos.Z, w.registry.ReactionProduct())
}

// placeFluid ставит ячейку жидкости с уровнем и родителем parent
func (w *World) placeFluid(pos vec.Vec3, fluid block.BlockID, level uint8, parent CellKey) {
	key := keyAt(fluid, pos)
	w.rawSetBlockWithMeta(pos, fluid, level)

	w.detach(key)
	n := w.node(key)
	n.parent = parent
	n.hasParent = true
	w.node(parent).children[key] = struct{}{}

	w.enqueueFluid(pos, fluid)
}

func (w *World) processFluidCell(c fluidCell) {
	pos := c.pos
	if w.GetBlockWorld(pos.X, pos.Y, pos.Z) != c.fluid {
		w.stats.StaleCells++
		return
	}
	key := keyAt(c.fluid, pos)
	if w.fluids.retract.Has(key) {
		w.stats.StaleCells++
		return
	}
	w.stats.CellsProcessed++

	level := w.GetMetaWorld(pos.X, pos.Y, pos.Z)

	// падение имеет приоритет над растеканием
	below := pos.Down()
	if w.fluidEntry(c.fluid, below, 0) == entryOpen {
		w.placeFluid(below, c.fluid, 0, key)
		return
	}

	if level >= w.registry.MaxLevel(c.fluid) {
		return
	}
	next := level + 1
	for _, off := range vec.HorizontalOffsets {
		n := pos.Add(off)
		if w.fluidEntry(c.fluid, n, next) == entryOpen {
			w.placeFluid(n, c.fluid, next, key)
		}
	}
}

func (w *World) processRetraction(key CellKey) {
	pos := key.Pos()
	if w.GetBlockWorld(pos.X, pos.Y, pos.Z) == key.Fluid {
		w.rawSetBlockWithMeta(pos, block.AirBlockID, 0)
	}
	w.forget(key)
	w.stats.Retractions++
}

// ApplySponge осушает жидкость в шаре радиуса radius вокруг (wx, wy, wz).
// Каждая осушенная ячейка запускает откат своих потомков.
func (w *World) ApplySponge(wx, wy, wz, radius int) int {
	r2 := radius * radius
	cleared := 0
	w.WithBatch(func() {
		for y := wy - radius; y <= wy+radius; y++ {
			if y < YMin || y > YMax {
				continue
			}
			for z := wz - radius; z <= wz+radius; z++ {
				for x := wx - radius; x <= wx+radius; x++ {
					dx, dy, dz := x-wx, y-wy, z-wz
					if dx*dx+dy*dy+dz*dz > r2 {
						continue
					}
					id := w.GetBlockWorld(x, y, z)
					if !w.registry.IsFluid(id) {
						continue
					}
					pos := vec.Vec3{X: x, Y: y, Z: z}
					w.rawSetBlockWithMeta(pos, block.AirBlockID, 0)
					w.scheduleRetraction(keyAt(id, pos))
					cleared++
				}
			}
		}
	})
	return cleared
}

// dropFluidNodesIn удаляет узлы графа, лежащие в чанке key.
// Их дети в других чанках остаются без родителя и ведут себя как источники.
func (w *World) dropFluidNodesIn(key vec.ChunkPos) {
	for k, n := range w.fluids.nodes {
		if vec.ChunkOf(k.X, k.Z, ChunkSize) != key {
			continue
		}
		for child := range n.children {
			if cn := w.fluids.nodes[child]; cn != nil {
				cn.hasParent = false
			}
		}
		w.detach(k)
		w.fluids.retract.Remove(k)
		delete(w.fluids.nodes, k)
	}
}

// FluidLevel уровень жидкости в ячейке, ok=false если там не жидкость
func (w *World) FluidLevel(wx, wy, wz int) (uint8, bool) {
	if !w.registry.IsFluid(w.GetBlockWorld(wx, wy, wz)) {
		return 0, false
	}
	return w.GetMetaWorld(wx, wy, wz), true
}

// FluidParent родитель узла; ok=false для корня или неизвестного ключа
func (w *World) FluidParent(key CellKey) (CellKey, bool) {
	n := w.fluids.nodes[key]
	if n == nil || !n.hasParent {
		return CellKey{}, false
	}
	return n.parent, true
}

// FluidChildren дети узла
func (w *World) FluidChildren(key CellKey) []CellKey {
	n := w.fluids.nodes[key]
	if n == nil {
		return nil
	}
	out := make([]CellKey, 0, len(n.children))
	for c := range n.children {
		out = append(out, c)
	}
	return out
}

// IsFluidTracked есть ли узел в графе
func (w *World) IsFluidTracked(key CellKey) bool {
	_, ok := w.fluids.nodes[key]
	return ok
}
