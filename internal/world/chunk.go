package world

import (
	"encoding/binary"
	"fmt"

	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// Геометрия мира
const (
	ChunkSize   = 16
	WorldHeight = 128
	WorldDepth  = 0

	YMin = -WorldDepth
	YMax = WorldHeight - 1

	// YCount число слоев по вертикали
	YCount = YMax - YMin + 1

	chunkVolume = ChunkSize * ChunkSize * YCount
)

// chunkFormatVersion версия бинарного формата чанка
const chunkFormatVersion byte = 1

// Chunk колонка мира 16 x YCount x 16 с плотными массивами блоков и метаданных.
// Координаты чанка после создания не меняются.
type Chunk struct {
	x, z   int
	blocks [chunkVolume]block.BlockID
	meta   [chunkVolume]uint8

	ChangeCounter int // Счетчик изменений с последнего сохранения
}

// NewChunk создаёт пустой (заполненный воздухом) чанк
func NewChunk(cx, cz int) *Chunk {
	return &Chunk{x: cx, z: cz}
}

// X координата чанка на сетке
func (c *Chunk) X() int { return c.x }

// Z координата чанка на сетке
func (c *Chunk) Z() int { return c.z }

// InBounds проверяет локальные координаты
func InBounds(lx, y, lz int) bool {
	return lx >= 0 && lx < ChunkSize && lz >= 0 && lz < ChunkSize && y >= YMin && y <= YMax
}

func index(lx, y, lz int) int {
	return (y-YMin)*ChunkSize*ChunkSize + lz*ChunkSize + lx
}

// GetBlock возвращает ID блока по локальным координатам, вне границ воздух
func (c *Chunk) GetBlock(lx, y, lz int) block.BlockID {
	if !InBounds(lx, y, lz) {
		return block.AirBlockID
	}
	return c.blocks[index(lx, y, lz)]
}

// SetBlock записывает блок, вне границ ничего не делает
func (c *Chunk) SetBlock(lx, y, lz int, id block.BlockID) {
	if !InBounds(lx, y, lz) {
		return
	}
	i := index(lx, y, lz)
	if c.blocks[i] == id {
		return
	}
	c.blocks[i] = id
	c.ChangeCounter++
}

// GetMeta возвращает метаданные ячейки, вне границ 0
func (c *Chunk) GetMeta(lx, y, lz int) uint8 {
	if !InBounds(lx, y, lz) {
		return 0
	}
	return c.meta[index(lx, y, lz)]
}

// SetMeta записывает метаданные ячейки
func (c *Chunk) SetMeta(lx, y, lz int, m uint8) {
	if !InBounds(lx, y, lz) {
		return
	}
	i := index(lx, y, lz)
	if c.meta[i] == m {
		return
	}
	c.meta[i] = m
	c.ChangeCounter++
}

// Fill заполняет горизонтальные слои [y0, y1] одним блоком
func (c *Chunk) Fill(y0, y1 int, id block.BlockID) {
	for y := y0; y <= y1; y++ {
		for lz := 0; lz < ChunkSize; lz++ {
			for lx := 0; lx < ChunkSize; lx++ {
				c.SetBlock(lx, y, lz, id)
			}
		}
	}
}

// HasChanges проверяет, изменялся ли чанк с последнего сохранения
func (c *Chunk) HasChanges() bool {
	return c.ChangeCounter > 0
}

// ClearChanges сбрасывает счетчик изменений
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// CountBlocks считает не-воздушные блоки
func (c *Chunk) CountBlocks() int {
	n := 0
	for _, id := range c.blocks {
		if id != block.AirBlockID {
			n++
		}
	}
	return n
}

const chunkHeaderSize = 1 + 4 + 4

// MarshalBinary кодирует чанк: [версия][cx][cz][блоки][метаданные]
func (c *Chunk) MarshalBinary() ([]byte, error) {
	buf := make([]byte, chunkHeaderSize+2*chunkVolume)
	buf[0] = chunkFormatVersion
	binary.LittleEndian.PutUint32(buf[1:5], uint32(int32(c.x)))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(int32(c.z)))

	off := chunkHeaderSize
	for i, id := range c.blocks {
		buf[off+i] = byte(id)
	}
	copy(buf[off+chunkVolume:], c.meta[:])
	return buf, nil
}

// UnmarshalBinary восстанавливает чанк. Координаты берутся из данных.
func (c *Chunk) UnmarshalBinary(data []byte) error {
	if len(data) != chunkHeaderSize+2*chunkVolume {
		return fmt.Errorf("неверный размер данных чанка: %d", len(data))
	}
	if data[0] != chunkFormatVersion {
		return fmt.Errorf("неподдерживаемая версия формата чанка: %d", data[0])
	}
	c.x = int(int32(binary.LittleEndian.Uint32(data[1:5])))
	c.z = int(int32(binary.LittleEndian.Uint32(data[5:9])))

	off := chunkHeaderSize
	for i := range c.blocks {
		c.blocks[i] = block.BlockID(data[off+i])
	}
	copy(c.meta[:], data[off+chunkVolume:])
	c.ChangeCounter = 0
	return nil
}
