package world

import (
	"math"
	"math/rand"

	"github.com/samsungplay/CS559-IP3/internal/util"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// Generator заполняет новый чанк. Пишет напрямую в Chunk, без побочных эффектов мира.
type Generator interface {
	GenerateChunk(chunk *Chunk)
}

// FlatGenerator плоский мир: коренная порода, камень, земля, трава
type FlatGenerator struct {
	Height int // уровень верхнего блока травы
}

// GenerateChunk генерирует плоскую колонку
func (g FlatGenerator) GenerateChunk(chunk *Chunk) {
	h := g.Height
	if h < YMin+1 {
		h = YMin + 1
	}
	if h > YMax {
		h = YMax
	}
	chunk.Fill(YMin, YMin, block.BedrockBlockID)
	if h-4 > YMin {
		chunk.Fill(YMin+1, h-4, block.StoneBlockID)
	}
	chunk.Fill(max(YMin+1, h-3), h-1, block.DirtBlockID)
	chunk.Fill(h, h, block.GrassBlockBlockID)
	chunk.ClearChanges()
}

// Константы высот для генерации
const (
	DefaultSeaLevel = 40
	baseHeight      = 36
	heightRange     = 28
)

// TerrainGenerator генерирует ландшафт по шуму Перлина
type TerrainGenerator struct {
	Seed         int64
	NoiseScale   float64 // Масштаб основного шума (высота)
	SeaLevel     int
	PlantDensity float64 // шанс растения на траве
	noise        *util.Noise
}

// NewTerrainGenerator создаёт новый генератор мира
func NewTerrainGenerator(seed int64, seaLevel int) *TerrainGenerator {
	if seaLevel <= YMin || seaLevel >= YMax {
		seaLevel = DefaultSeaLevel
	}
	return &TerrainGenerator{
		Seed:         seed,
		NoiseScale:   0.03, // Настройка сглаженности ландшафта
		SeaLevel:     seaLevel,
		PlantDensity: 0.04,
		noise:        util.NewNoise(seed),
	}
}

// HeightAt высота поверхности в мировой колонке
func (g *TerrainGenerator) HeightAt(wx, wz int) int {
	n := g.noise.Noise2D(float64(wx)*g.NoiseScale, float64(wz)*g.NoiseScale)
	h := baseHeight + int(math.Round(n*heightRange)) - heightRange/2
	if h < YMin+2 {
		h = YMin + 2
	}
	if h > YMax-8 {
		h = YMax - 8
	}
	return h
}

// GenerateChunk генерирует чанк по его координатам
func (g *TerrainGenerator) GenerateChunk(chunk *Chunk) {
	// Для каждого чанка уникальный сид на основе глобального сида и координат
	chunkSeed := g.Seed + int64(chunk.X()*31) + int64(chunk.Z()*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			wx := chunk.X()*ChunkSize + lx
			wz := chunk.Z()*ChunkSize + lz
			h := g.HeightAt(wx, wz)

			chunk.SetBlock(lx, YMin, lz, block.BedrockBlockID)
			for y := YMin + 1; y <= h; y++ {
				chunk.SetBlock(lx, y, lz, g.layerBlock(y, h))
			}

			if h < g.SeaLevel {
				// вода стоит спокойно до первого изменения рядом
				for y := h + 1; y <= g.SeaLevel; y++ {
					chunk.SetBlock(lx, y, lz, block.WaterBlockID)
				}
				continue
			}

			if h > g.SeaLevel+1 && rng.Float64() < g.PlantDensity {
				plants := []block.BlockID{block.GrassBlockID, block.DandelionBlockID, block.RoseBlockID}
				chunk.SetBlock(lx, h+1, lz, plants[rng.Intn(len(plants))])
			}
		}
	}
	chunk.ClearChanges()
}

func (g *TerrainGenerator) layerBlock(y, h int) block.BlockID {
	switch {
	case y == h && h <= g.SeaLevel+1:
		return block.SandBlockID
	case y == h:
		return block.GrassBlockBlockID
	case y >= h-3:
		if h <= g.SeaLevel+1 {
			return block.SandBlockID
		}
		return block.DirtBlockID
	default:
		return block.StoneBlockID
	}
}
