package world

import (
	"math"
	"math/rand"

	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// IsWaterAt проверяет наличие воды
func (w *World) IsWaterAt(wx, wy, wz int) bool {
	return w.GetBlockWorld(wx, wy, wz) == block.WaterBlockID
}

// IsLavaAt проверяет наличие лавы
func (w *World) IsLavaAt(wx, wy, wz int) bool {
	return w.GetBlockWorld(wx, wy, wz) == block.LavaBlockID
}

// IsLiquidAt проверяет наличие любой жидкости
func (w *World) IsLiquidAt(wx, wy, wz int) bool {
	return w.registry.IsFluid(w.GetBlockWorld(wx, wy, wz))
}

// IsSolidAt твердый блок: не воздух, не жидкость, не растение
func (w *World) IsSolidAt(wx, wy, wz int) bool {
	id := w.GetBlockWorld(wx, wy, wz)
	return id != block.AirBlockID && !w.registry.IsFluid(id) && !w.registry.IsPlant(id)
}

// IsWalkable в ячейке воздух, а под ней есть опора (не воздух и не жидкость)
func (w *World) IsWalkable(wx, wy, wz int) bool {
	if w.GetBlockWorld(wx, wy, wz) != block.AirBlockID {
		return false
	}
	below := w.GetBlockWorld(wx, wy-1, wz)
	return below != block.AirBlockID && !w.registry.IsFluid(below)
}

// SampleSurfaceHeight высота верхнего твердого блока колонки.
// ok=false если чанк не загружен или в колонке нет твердых блоков.
func (w *World) SampleSurfaceHeight(wx, wz int) (int, bool) {
	chunk, _, lx, lz := w.locate(wx, 0, wz)
	if chunk == nil {
		return 0, false
	}
	for y := YMax; y >= YMin; y-- {
		id := chunk.GetBlock(lx, y, lz)
		if id != block.AirBlockID && !w.registry.IsFluid(id) && !w.registry.IsPlant(id) {
			return y, true
		}
	}
	return 0, false
}

// Explode уничтожает все не-воздушные блоки, центр которых лежит в шаре
// радиуса radius+0.5 вокруг точки.
// Возвращает число уничтоженных блоков.
func (w *World) Explode(x, y, z, radius float64) int {
	if radius <= 0 {
		return 0
	}
	center := vec.Vec3Float{X: x, Y: y, Z: z}
	reach := radius + 0.5
	r2 := reach * reach
	r := int(math.Ceil(reach))
	origin := center.Block()

	destroyed := 0
	w.WithBatch(func() {
		for by := origin.Y - r; by <= origin.Y+r; by++ {
			if by < YMin || by > YMax {
				continue
			}
			for bz := origin.Z - r; bz <= origin.Z+r; bz++ {
				for bx := origin.X - r; bx <= origin.X+r; bx++ {
					p := vec.Vec3{X: bx, Y: by, Z: bz}
					if p.Center().DistanceSq(center) > r2 {
						continue
					}
					id := w.GetBlockWorld(bx, by, bz)
					if id == block.AirBlockID {
						continue
					}
					w.SetBlockWorldWithMeta(bx, by, bz, block.AirBlockID, 0)
					destroyed++
				}
			}
		}
	})
	return destroyed
}

// RegrowGrass случайный тик: земля на поверхности рядом с блоком травы
// снова зарастает. trials попыток на каждый загруженный чанк.
func (w *World) RegrowGrass(rng *rand.Rand, trials int) int {
	grown := 0
	w.WithBatch(func() {
		for _, key := range w.LoadedChunks() {
			for i := 0; i < trials; i++ {
				wx := key.X*ChunkSize + rng.Intn(ChunkSize)
				wz := key.Z*ChunkSize + rng.Intn(ChunkSize)
				if w.tryRegrow(wx, wz) {
					grown++
				}
			}
		}
	})
	return grown
}

func (w *World) tryRegrow(wx, wz int) bool {
	top, ok := w.SampleSurfaceHeight(wx, wz)
	if !ok || w.GetBlockWorld(wx, top, wz) != block.DirtBlockID {
		return false
	}
	if w.GetBlockWorld(wx, top+1, wz) != block.AirBlockID {
		return false
	}
	for _, off := range vec.HorizontalOffsets {
		if w.GetBlockWorld(wx+off.X, top, wz+off.Z) == block.GrassBlockBlockID {
			w.SetBlockWorld(wx, top, wz, block.GrassBlockBlockID)
			return true
		}
	}
	return false
}
