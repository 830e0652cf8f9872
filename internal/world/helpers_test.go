package world

import (
	"testing"

	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// countingTarget считает вызовы перестройки
type countingTarget struct {
	calls int
}

func (c *countingTarget) Rebuild() { c.calls++ }

// newTestWorld мир с чанками в квадрате [lo, hi] x [lo, hi]
func newTestWorld(t testing.TB, lo, hi int) *World {
	t.Helper()
	return newTestWorldWith(t, block.DefaultOptions(), lo, hi)
}

func newTestWorldWith(t testing.TB, blockOpts block.Options, lo, hi int) *World {
	t.Helper()
	w := New(block.DefaultRegistry(blockOpts), DefaultOptions())
	for cx := lo; cx <= hi; cx++ {
		for cz := lo; cz <= hi; cz++ {
			if !w.SetChunk(cx, cz, NewChunk(cx, cz)) {
				t.Fatalf("не удалось установить чанк (%d,%d)", cx, cz)
			}
		}
	}
	return w
}

// withFloor кладет каменный пол на высоте y во всех загруженных чанках
func withFloor(w *World, y int) {
	for _, key := range w.LoadedChunks() {
		w.GetChunk(key.X, key.Z).Fill(y, y, block.StoneBlockID)
	}
}

// attachTargets регистрирует счетчики перестроек для всех загруженных чанков
func attachTargets(w *World) map[vec.ChunkPos]*countingTarget {
	targets := make(map[vec.ChunkPos]*countingTarget)
	for _, key := range w.LoadedChunks() {
		ct := &countingTarget{}
		targets[key] = ct
		w.RegisterRebuildTarget(key.X, key.Z, ct)
	}
	return targets
}

// settle крутит волны, пока симуляция не затихнет
func settle(t testing.TB, w *World, maxTicks int) int {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if w.FluidIdle() {
			return i
		}
		w.TickFluids()
	}
	if !w.FluidIdle() {
		t.Fatalf("жидкость не успокоилась за %d волн: %+v", maxTicks, w.Stats())
	}
	return maxTicks
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// countFluid считает ячейки жидкости в прямоугольнике на высоте y
func countFluid(w *World, y, from, to int) int {
	n := 0
	for x := from; x <= to; x++ {
		for z := from; z <= to; z++ {
			if w.IsLiquidAt(x, y, z) {
				n++
			}
		}
	}
	return n
}
