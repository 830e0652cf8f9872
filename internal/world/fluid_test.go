package world

import (
	"testing"
	"time"

	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waterKey(x, y, z int) CellKey {
	return CellKey{Fluid: block.WaterBlockID, X: x, Y: y, Z: z}
}

func TestFluid_SourceAndFirstWave(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	level, ok := w.FluidLevel(0, 10, 0)
	require.True(t, ok)
	assert.Equal(t, uint8(0), level, "источник имеет уровень 0")

	w.TickFluids()
	level, _ = w.FluidLevel(0, 10, 0)
	assert.Equal(t, uint8(0), level)
	for _, p := range []vec.Vec3{{X: 1, Y: 10}, {X: -1, Y: 10}, {Y: 10, Z: 1}, {Y: 10, Z: -1}} {
		level, ok := w.FluidLevel(p.X, p.Y, p.Z)
		require.True(t, ok, "после первой волны вода в %v", p)
		assert.Equal(t, uint8(1), level)
	}
	assert.False(t, w.IsWaterAt(2, 10, 0), "за одну волну только один шаг")
}

func TestFluid_LateralSpreadIsManhattanDistance(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	maxLevel := int(w.Registry().MaxLevel(block.WaterBlockID))

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	for x := -6; x <= 6; x++ {
		for z := -6; z <= 6; z++ {
			d := abs(x) + abs(z)
			level, ok := w.FluidLevel(x, 10, z)
			if d <= maxLevel {
				require.True(t, ok, "вода должна быть в (%d,%d)", x, z)
				assert.Equal(t, uint8(d), level, "уровень в (%d,%d)", x, z)
			} else {
				assert.False(t, ok, "вода не должна дойти до (%d,%d)", x, z)
			}
		}
	}
	assert.Equal(t, 41, countFluid(w, 10, -8, 8))
	assert.Equal(t, 0, countFluid(w, 11, -8, 8), "жидкость не поднимается")
	assert.Equal(t, 41, w.Stats().FluidNodes, "каждая ячейка воды учтена в графе")
}

func TestFluid_GravityDominates(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 20, 0, block.WaterBlockID)
	for k := 1; k <= 10; k++ {
		w.TickFluids()
		assert.True(t, w.IsWaterAt(0, 20-k, 0), "после %d волн вода на высоте %d", k, 20-k)
		for y := 10; y <= 20; y++ {
			assert.Equal(t, 0, countFluid(w, y, -3, 3)-boolToInt(w.IsWaterAt(0, y, 0)), "пока есть путь вниз, растекания нет (y=%d, волна %d)", y, k)
		}
	}

	settle(t, w, 200)
	for y := 10; y <= 20; y++ {
		level, ok := w.FluidLevel(0, y, 0)
		require.True(t, ok)
		assert.Equal(t, uint8(0), level, "падающая вода имеет уровень 0")
	}
	level, _ := w.FluidLevel(1, 10, 0)
	assert.Equal(t, uint8(1), level)
	level, _ = w.FluidLevel(2, 10, 2)
	assert.Equal(t, uint8(4), level)
	assert.False(t, w.IsWaterAt(1, 11, 0), "над полом растекание только у дна")

	parent, ok := w.FluidParent(waterKey(0, 15, 0))
	require.True(t, ok)
	assert.Equal(t, waterKey(0, 16, 0), parent, "родитель падающей ячейки сверху")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestFluid_StopsAtUnloadedChunks(t *testing.T) {
	w := newTestWorld(t, 0, 0)
	withFloor(w, 9)

	w.SetBlockWorld(15, 10, 8, block.WaterBlockID)
	settle(t, w, 200)

	assert.False(t, w.IsLoaded(16, 8))
	assert.Equal(t, countFluid(w, 10, 0, 15), w.Stats().FluidNodes, "узлы только для реальных ячеек")
	level, ok := w.FluidLevel(11, 10, 8)
	require.True(t, ok)
	assert.Equal(t, uint8(4), level)
}

func TestFluid_WashesAwayPlants(t *testing.T) {
	w := newTestWorld(t, 0, 0)
	withFloor(w, 9)
	w.GetChunk(0, 0).SetBlock(5, 10, 4, block.DandelionBlockID)
	w.GetChunk(0, 0).SetBlock(4, 10, 5, block.TorchBlockID)
	w.GetChunk(0, 0).SetBlock(3, 10, 4, block.GlassBlockID)

	w.SetBlockWorld(4, 10, 4, block.WaterBlockID)
	w.TickFluids()

	assert.True(t, w.IsWaterAt(5, 10, 4), "растение смывается")
	assert.True(t, w.IsWaterAt(4, 10, 5), "факел смывается")
	assert.Equal(t, block.GlassBlockID, w.GetBlockWorld(3, 10, 4), "твердый блок держит воду")
}

func TestFluid_LavaWaterReaction(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	// неподвижная лава, как после генерации
	w.GetChunk(0, 0).SetBlock(2, 10, 0, block.LavaBlockID)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	assert.Equal(t, block.CobblestoneBlockID, w.GetBlockWorld(2, 10, 0), "встреча воды и лавы дает булыжник")
	assert.GreaterOrEqual(t, w.Stats().Reactions, uint64(1))
	assert.False(t, w.IsLavaAt(2, 10, 0))
}

func TestFluid_LavaFlowsIntoWater(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	w.GetChunk(0, 0).SetBlock(0, 10, 2, block.WaterBlockID)

	w.SetBlockWorld(0, 10, 0, block.LavaBlockID)
	settle(t, w, 200)

	assert.Equal(t, block.CobblestoneBlockID, w.GetBlockWorld(0, 10, 2))
	level, ok := w.FluidLevel(0, 10, 1)
	require.True(t, ok)
	assert.Equal(t, uint8(1), level)
	level, _ = w.FluidLevel(3, 10, 0)
	assert.Equal(t, uint8(3), level, "лава растекается на 3 ячейки")
	assert.False(t, w.IsLavaAt(4, 10, 0))
}

func TestFluid_ReactionDiscardsDisplacedNode(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.LavaBlockID)
	settle(t, w, 200)
	lavaEdge := CellKey{Fluid: block.LavaBlockID, X: 3, Y: 10, Z: 0}
	require.True(t, w.IsFluidTracked(lavaEdge))

	w.SetBlockWorld(5, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	assert.Equal(t, block.CobblestoneBlockID, w.GetBlockWorld(3, 10, 0))
	assert.False(t, w.IsFluidTracked(lavaEdge), "учет вытесненной лавы сброшен")
	for x := -3; x <= 10; x++ {
		for z := -5; z <= 5; z++ {
			if w.IsLavaAt(x, 10, z) {
				for _, off := range vec.HorizontalOffsets {
					assert.False(t, w.IsWaterAt(x+off.X, 10, z+off.Z), "лава (%d,%d) граничит с водой", x, z)
				}
			}
		}
	}
}

func TestFluid_ChannelRetractsOneCellPerTick(t *testing.T) {
	w := newTestWorldWith(t, block.Options{WaterMaxLevel: 10, LavaMaxLevel: 3}, -1, 0)
	withFloor(w, 9)
	c := w.GetChunk(0, 0)
	for x := 0; x <= 12; x++ {
		c.SetBlock(x, 10, 1, block.StoneBlockID)
	}
	w.GetChunk(-1, 0).SetBlock(15, 10, 0, block.StoneBlockID)
	for x := -1; x <= 12; x++ {
		w.GetChunk(vec.FloorDiv(x, 16), -1).SetBlock(vec.Mod(x, 16), 10, 15, block.StoneBlockID)
	}

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	for x := 0; x <= 10; x++ {
		level, ok := w.FluidLevel(x, 10, 0)
		require.True(t, ok, "канал заполнен до x=%d", x)
		assert.Equal(t, uint8(x), level)
	}
	assert.False(t, w.IsWaterAt(11, 10, 0))

	w.SetBlockWorld(0, 10, 0, block.AirBlockID)
	for k := 1; k <= 10; k++ {
		w.TickFluids()
		for x := 1; x <= 10; x++ {
			if x < k {
				assert.False(t, w.IsWaterAt(x, 10, 0), "после %d волн x=%d сухо", k, x)
			} else {
				assert.True(t, w.IsWaterAt(x, 10, 0), "после %d волн x=%d еще вода", k, x)
			}
		}
	}
	settle(t, w, 50)
	assert.Equal(t, 0, countFluid(w, 10, -2, 12))
	assert.Equal(t, 0, w.Stats().FluidNodes)
}

func TestFluid_SecondSourceKeepsItsBranch(t *testing.T) {
	w := newTestWorld(t, -1, 1)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	w.SetBlockWorld(6, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	level, _ := w.FluidLevel(4, 10, 0)
	assert.Equal(t, uint8(2), level, "более короткий путь улучшает уровень")
	parent, ok := w.FluidParent(waterKey(4, 10, 0))
	require.True(t, ok)
	assert.Equal(t, waterKey(5, 10, 0), parent, "ячейка переподчинена второму источнику")
	level, _ = w.FluidLevel(3, 10, 0)
	assert.Equal(t, uint8(3), level, "равный уровень не меняет владельца")

	w.SetBlockWorld(0, 10, 0, block.AirBlockID)
	settle(t, w, 500)

	for x := -6; x <= 12; x++ {
		for z := -6; z <= 6; z++ {
			dA := abs(x) + abs(z)
			dB := abs(x-6) + abs(z)
			owned := dB <= 4 && (dA > 4 || dB < dA)
			assert.Equal(t, owned, w.IsWaterAt(x, 10, z), "ячейка (%d,%d)", x, z)
		}
	}
	level, _ = w.FluidLevel(6, 10, 0)
	assert.Equal(t, uint8(0), level)
	level, _ = w.FluidLevel(10, 10, 0)
	assert.Equal(t, uint8(4), level)
}

func TestFluid_RemovingInnerCellDriesDescendants(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	w.SetBlockWorld(2, 10, 0, block.StoneBlockID)
	settle(t, w, 200)

	assert.Equal(t, block.StoneBlockID, w.GetBlockWorld(2, 10, 0))
	assert.True(t, w.IsWaterAt(0, 10, 0))
	assert.True(t, w.IsWaterAt(1, 10, 0))
	assert.False(t, w.IsWaterAt(3, 10, 0), "потомки убранной ячейки высыхают")
	assert.False(t, w.IsWaterAt(4, 10, 0))
}

func TestFluid_ReplacedSourceCancelsRetraction(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	before := countFluid(w, 10, -8, 8)

	w.SetBlockWorld(0, 10, 0, block.AirBlockID)
	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)

	assert.Equal(t, before, countFluid(w, 10, -8, 8), "возвращенный источник сохраняет воду")
	level, _ := w.FluidLevel(2, 10, 1)
	assert.Equal(t, uint8(3), level)
}

func TestFluid_SpongeClearsSphere(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	require.Equal(t, 41, countFluid(w, 10, -8, 8))

	w.SetBlockWorld(2, 10, 0, block.SpongeBlockID)
	assert.Equal(t, 0, countFluid(w, 10, -8, 8), "губка осушает шар сразу")
	assert.Equal(t, block.SpongeBlockID, w.GetBlockWorld(2, 10, 0))

	settle(t, w, 200)
	assert.Equal(t, 0, countFluid(w, 10, -8, 8))
	assert.Equal(t, 0, w.Stats().FluidNodes, "граф полностью разобран")
}

func TestFluid_SpongeRadiusBounded(t *testing.T) {
	w := newTestWorld(t, -1, 1)
	withFloor(w, 9)
	c := w.GetChunk(0, 0)
	c.SetBlock(8, 10, 8, block.WaterBlockID)
	c.SetBlock(15, 10, 8, block.WaterBlockID)

	cleared := w.ApplySponge(8, 10, 8, 6)
	assert.Equal(t, 1, cleared)
	assert.False(t, w.IsWaterAt(8, 10, 8))
	assert.True(t, w.IsWaterAt(15, 10, 8), "вне радиуса вода остается")
}

func TestFluid_TickRebuildsEachChunkOnce(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	targets := attachTargets(w)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	for i := 0; i < 6; i++ {
		before := make(map[vec.ChunkPos]int)
		for k, ct := range targets {
			before[k] = ct.calls
		}
		w.TickFluids()
		for k, ct := range targets {
			assert.LessOrEqual(t, ct.calls-before[k], 1, "чанк %v перестроен больше одного раза за волну", k)
		}
	}
}

func TestFluid_DrainTickIsBatched(t *testing.T) {
	w := newTestWorld(t, 0, 0)
	withFloor(w, 9)
	targets := attachTargets(w)

	require.NoError(t, w.BeginBatch())
	w.SetBlockWorld(8, 10, 8, block.WaterBlockID)
	w.TickFluids()
	assert.Equal(t, 0, targets[vec.ChunkPos{}].calls, "волна внутри внешней сессии не перестраивает сама")
	w.EndBatch()
	assert.Equal(t, 1, targets[vec.ChunkPos{}].calls)
}

func TestFluid_SpreadBudget(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	for x := -12; x <= 12; x += 2 {
		for z := -12; z <= 12; z += 2 {
			w.SetBlockWorld(x, 10, z, block.WaterBlockID)
		}
	}
	queued := w.Stats().SpreadQueue
	require.Greater(t, queued, w.Options().MaxSpreadPerTick)

	w.TickFluids()
	s := w.Stats()
	assert.Equal(t, uint64(w.Options().MaxSpreadPerTick), s.CellsProcessed+s.StaleCells, "за волну не больше бюджета")
}

func TestStepWorld_Accumulator(t *testing.T) {
	w := newTestWorld(t, 0, 0)

	assert.Equal(t, 0, w.StepWorld(100*time.Millisecond))
	assert.Equal(t, 1, w.StepWorld(100*time.Millisecond))
	assert.Equal(t, 2, w.StepWorld(300*time.Millisecond))
	assert.Equal(t, 0, w.StepWorld(0))
	assert.Equal(t, uint64(3), w.Stats().FluidTicks)
}

func TestFluid_EndToEndScenario(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	targets := attachTargets(w)

	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	assert.Equal(t, 1, targets[vec.ChunkPos{X: 0, Z: 0}].calls)
	assert.Equal(t, 1, targets[vec.ChunkPos{X: -1, Z: 0}].calls)
	assert.Equal(t, 1, targets[vec.ChunkPos{X: 0, Z: -1}].calls)

	w.TickFluids()
	for _, p := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		level, ok := w.FluidLevel(p[0], 10, p[1])
		require.True(t, ok)
		assert.Equal(t, uint8(1), level)
	}

	settle(t, w, 200)
	level, _ := w.FluidLevel(2, 10, 0)
	assert.Equal(t, uint8(2), level)
	level, _ = w.FluidLevel(1, 10, 1)
	assert.Equal(t, uint8(2), level)

	w.SetBlockWorld(0, 10, 0, block.AirBlockID)
	w.TickFluids()
	assert.False(t, w.IsWaterAt(0, 10, 0))
	assert.True(t, w.IsWaterAt(1, 10, 0), "откат постепенный")

	settle(t, w, 500)
	assert.Equal(t, 0, countFluid(w, 10, -8, 8))
	assert.True(t, w.FluidIdle())
}

func TestFluid_SwapFluidRetractsOldAndRootsNew(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	require.Equal(t, uint64(0), w.Stats().Reactions)

	w.SetBlockWorld(0, 10, 0, block.LavaBlockID)
	settle(t, w, 500)

	assert.True(t, w.IsLavaAt(0, 10, 0))
	for _, off := range vec.HorizontalOffsets {
		assert.Equal(t, block.CobblestoneBlockID, w.GetBlockWorld(off.X, 10, off.Z), "булыжник вокруг источника в %v", off)
	}
	assert.Equal(t, block.AirBlockID, w.GetBlockWorld(2, 10, 0), "прежняя вода высохла")
	assert.Equal(t, 1, countFluid(w, 10, -8, 8), "осталась только лава")
	assert.False(t, w.IsFluidTracked(waterKey(0, 10, 0)))
	assert.True(t, w.IsFluidTracked(CellKey{Fluid: block.LavaBlockID, X: 0, Y: 10, Z: 0}))

	stats := w.Stats()
	assert.Equal(t, 1, stats.FluidNodes, "в графе только корень лавы")
	assert.Equal(t, uint64(4), stats.Reactions)
}

func TestFluid_RaisedLevelSpreadsAgain(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	c := w.GetChunk(0, 0)
	c.SetBlock(0, 10, 0, block.WaterBlockID)
	c.SetMeta(0, 10, 0, 3)
	require.True(t, w.FluidIdle())

	w.SetBlockWorldWithMeta(0, 10, 0, block.WaterBlockID, 0)
	require.False(t, w.FluidIdle(), "ячейка с новым уровнем в очереди")

	w.TickFluids()
	level, ok := w.FluidLevel(1, 10, 0)
	require.True(t, ok)
	assert.Equal(t, uint8(1), level)
	parent, hasParent := w.FluidParent(waterKey(1, 10, 0))
	require.True(t, hasParent)
	assert.Equal(t, waterKey(0, 10, 0), parent)
}

func TestRemoveChunkForgetsFluidNodes(t *testing.T) {
	w := newTestWorld(t, -1, 0)
	withFloor(w, 9)
	w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
	settle(t, w, 200)
	require.True(t, w.IsFluidTracked(waterKey(2, 10, 0)))

	w.RemoveChunk(0, 0)
	assert.False(t, w.IsFluidTracked(waterKey(2, 10, 0)))
	assert.False(t, w.IsFluidTracked(waterKey(0, 10, 0)))
	assert.True(t, w.IsFluidTracked(waterKey(-1, 10, 0)), "узлы соседних чанков остаются")
	_, hasParent := w.FluidParent(waterKey(-1, 10, 0))
	assert.False(t, hasParent, "ребро к выгруженному родителю разорвано")
}

func BenchmarkFluidFlood(b *testing.B) {
	for i := 0; i < b.N; i++ {
		w := newTestWorld(b, -1, 0)
		withFloor(w, 9)
		w.SetBlockWorld(0, 10, 0, block.WaterBlockID)
		settle(b, w, 500)
	}
}
