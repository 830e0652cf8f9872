package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world"
)

// ErrStorageClosed хранилище уже закрыто
var ErrStorageClosed = errors.New("хранилище не готово")

const chunkKeyPrefix = "chunk:"

// WorldStorage представляет собой хранилище чанков мира в BadgerDB
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	codec   *ChunkCodec
	mutex   sync.RWMutex
	isReady bool
}

// NewWorldStorage создает новое хранилище мира в dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	return open(opts, dbPath)
}

// NewInMemoryStorage хранилище без диска (для тестов и временных миров)
func NewInMemoryStorage() (*WorldStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, "")
}

func open(opts badger.Options, dbPath string) (*WorldStorage, error) {
	codec, err := NewChunkCodec()
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(opts)
	if err != nil {
		codec.Close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.codec.Close()
	return ws.db.Close()
}

func chunkKey(cx, cz int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", chunkKeyPrefix, cx, cz))
}

func parseChunkKey(key string) (vec.ChunkPos, bool) {
	var p vec.ChunkPos
	if !strings.HasPrefix(key, chunkKeyPrefix) {
		return p, false
	}
	if _, err := fmt.Sscanf(key[len(chunkKeyPrefix):], "%d:%d", &p.X, &p.Z); err != nil {
		return p, false
	}
	return p, true
}

// SaveChunk сохраняет чанк, если он менялся с прошлого сохранения.
// Возвращает true, если запись действительно произошла.
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) (bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return false, ErrStorageClosed
	}

	// Если нет изменений, пропускаем
	if !chunk.HasChanges() {
		return false, nil
	}

	data, err := ws.codec.Encode(chunk)
	if err != nil {
		return false, err
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(chunk.X(), chunk.Z()), data)
	})
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	chunk.ClearChanges()
	return true, nil
}

// SaveChunks сохраняет набор чанков одной транзакцией-батчем
func (ws *WorldStorage) SaveChunks(chunks []*world.Chunk) (int, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, ErrStorageClosed
	}

	wb := ws.db.NewWriteBatch()
	defer wb.Cancel()

	saved := make([]*world.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasChanges() {
			continue
		}
		data, err := ws.codec.Encode(chunk)
		if err != nil {
			return 0, err
		}
		if err := wb.Set(chunkKey(chunk.X(), chunk.Z()), data); err != nil {
			return 0, fmt.Errorf("ошибка записи батча: %w", err)
		}
		saved = append(saved, chunk)
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	for _, chunk := range saved {
		chunk.ClearChanges()
	}
	return len(saved), nil
}

// LoadChunk загружает чанк. ok=false если чанк еще не сохранялся.
func (ws *WorldStorage) LoadChunk(cx, cz int) (*world.Chunk, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, false, ErrStorageClosed
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(cx, cz))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	chunk, err := ws.codec.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("чанк (%d,%d) поврежден: %w", cx, cz, err)
	}
	if chunk.X() != cx || chunk.Z() != cz {
		return nil, false, fmt.Errorf("чанк под ключом (%d,%d) содержит координаты (%d,%d)", cx, cz, chunk.X(), chunk.Z())
	}
	return chunk, true, nil
}

// DeleteChunk удаляет сохраненный чанк
func (ws *WorldStorage) DeleteChunk(cx, cz int) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrStorageClosed
	}

	err := ws.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(cx, cz))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// ListChunks возвращает координаты всех сохраненных чанков
func (ws *WorldStorage) ListChunks() ([]vec.ChunkPos, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrStorageClosed
	}

	var out []vec.ChunkPos
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if p, ok := parseChunkKey(string(it.Item().Key())); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка обхода BadgerDB: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}
