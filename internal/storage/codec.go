package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/samsungplay/CS559-IP3/internal/world"
)

// ChunkCodec сжимает бинарное представление чанка zstd
type ChunkCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewChunkCodec создает кодек. Encoder и Decoder безопасны для конкурентного EncodeAll/DecodeAll.
func NewChunkCodec() (*ChunkCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}
	return &ChunkCodec{enc: enc, dec: dec}, nil
}

// Encode кодирует чанк
func (c *ChunkCodec) Encode(chunk *world.Chunk) ([]byte, error) {
	raw, err := chunk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/8)), nil
}

// Decode восстанавливает чанк
func (c *ChunkCodec) Decode(data []byte) (*world.Chunk, error) {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки чанка: %w", err)
	}
	chunk := &world.Chunk{}
	if err := chunk.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Close освобождает ресурсы
func (c *ChunkCodec) Close() {
	c.enc.Close()
	c.dec.Close()
}
