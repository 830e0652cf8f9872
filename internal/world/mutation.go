package world

import (
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
)

// SetBlockWorld записывает блок по мировым координатам.
// Вне диапазона высот или в незагруженном чанке ничего не делает.
// Запись того же ID не вызывает ни перестройки, ни побочных эффектов.
func (w *World) SetBlockWorld(wx, wy, wz int, id block.BlockID) {
	old, ok := w.write(wx, wy, wz, id, 0, false)
	if !ok {
		return
	}
	if w.registry.IsFluid(id) {
		// новая жидкость без явного уровня всегда источник
		if chunk, _, lx, lz := w.locate(wx, wy, wz); chunk != nil {
			chunk.SetMeta(lx, wy, lz, 0)
		}
	}
	w.afterWrite(vec.Vec3{X: wx, Y: wy, Z: wz}, old, id)
}

// SetBlockWorldWithMeta записывает блок вместе с метаданными.
// Пустая операция только когда совпадают и ID, и метаданные.
func (w *World) SetBlockWorldWithMeta(wx, wy, wz int, id block.BlockID, meta uint8) {
	old, ok := w.write(wx, wy, wz, id, meta, true)
	if !ok {
		return
	}
	w.afterWrite(vec.Vec3{X: wx, Y: wy, Z: wz}, old, id)
}

// rawSetBlock пишет ID и планирует перестройку, не затрагивая жидкости
func (w *World) rawSetBlock(pos vec.Vec3, id block.BlockID) {
	w.write(pos.X, pos.Y, pos.Z, id, 0, false)
}

// rawSetBlockWithMeta как rawSetBlock, но вместе с метаданными
func (w *World) rawSetBlockWithMeta(pos vec.Vec3, id block.BlockID, meta uint8) {
	w.write(pos.X, pos.Y, pos.Z, id, meta, true)
}

// write общая часть всех путей записи. Возвращает прежний ID и признак изменения.
func (w *World) write(wx, wy, wz int, id block.BlockID, meta uint8, withMeta bool) (block.BlockID, bool) {
	if wy < YMin || wy > YMax {
		return block.AirBlockID, false
	}
	chunk, key, lx, lz := w.locate(wx, wy, wz)
	if chunk == nil {
		return block.AirBlockID, false
	}

	old := chunk.GetBlock(lx, wy, lz)
	if withMeta {
		if old == id && chunk.GetMeta(lx, wy, lz) == meta {
			return old, false
		}
		chunk.SetBlock(lx, wy, lz, id)
		chunk.SetMeta(lx, wy, lz, meta)
	} else {
		if old == id {
			return old, false
		}
		chunk.SetBlock(lx, wy, lz, id)
	}

	w.stats.BlockWrites++
	w.scheduleRebuilds(key, lx, lz)
	return old, true
}

// afterWrite побочные эффекты пользовательской записи: губка, корень жидкости,
// откат удаленной жидкости, пробуждение соседних жидкостей.
func (w *World) afterWrite(pos vec.Vec3, old, id block.BlockID) {
	reg := w.registry

	if reg.IsAbsorbent(id) {
		w.ApplySponge(pos.X, pos.Y, pos.Z, w.opts.SpongeRadius)
	}

	wasFluid := reg.IsFluid(old)
	isFluid := reg.IsFluid(id)

	if wasFluid && old != id {
		w.scheduleRetraction(CellKey{Fluid: old, X: pos.X, Y: pos.Y, Z: pos.Z})
	}

	if isFluid && old != id {
		w.placeRoot(pos, id)
	}

	// та же жидкость с новым уровнем: ячейка должна заново растечься
	if isFluid && old == id {
		w.enqueueFluid(pos, id)
	}

	if id == block.AirBlockID {
		for _, off := range vec.FaceOffsets {
			n := pos.Add(off)
			nid := w.GetBlockWorld(n.X, n.Y, n.Z)
			if reg.IsFluid(nid) {
				w.enqueueFluid(n, nid)
			}
		}
	}
}

// BlockEdit одна запись для ApplyEdits
type BlockEdit struct {
	Pos      vec.Vec3
	ID       block.BlockID
	Meta     uint8
	WithMeta bool
}

// ApplyEdits применяет набор записей (постройку) одной пакетной сессией.
// Возвращает число ячеек, попавших в загруженные чанки.
func (w *World) ApplyEdits(edits []BlockEdit) int {
	applied := 0
	w.WithBatch(func() {
		for _, e := range edits {
			if !w.IsLoaded(e.Pos.X, e.Pos.Z) || e.Pos.Y < YMin || e.Pos.Y > YMax {
				continue
			}
			if e.WithMeta {
				w.SetBlockWorldWithMeta(e.Pos.X, e.Pos.Y, e.Pos.Z, e.ID, e.Meta)
			} else {
				w.SetBlockWorld(e.Pos.X, e.Pos.Y, e.Pos.Z, e.ID)
			}
			applied++
		}
	})
	return applied
}

// PlaceBlock установка блока игроком: только в воздух, растение или жидкость.
// Для факела метаданные вычисляются по опорному блоку support.
func (w *World) PlaceBlock(pos vec.Vec3, id block.BlockID, support *vec.Vec3) bool {
	if !w.IsLoaded(pos.X, pos.Z) || pos.Y < YMin || pos.Y > YMax {
		return false
	}
	existing := w.GetBlockWorld(pos.X, pos.Y, pos.Z)
	if existing != block.AirBlockID && !w.registry.IsFluid(existing) && !w.registry.IsPlant(existing) {
		return false
	}
	if existing == id {
		return false
	}

	if id == block.TorchBlockID {
		meta := block.AttachFloor
		if support != nil {
			if m, ok := block.AttachmentFor(support.X-pos.X, support.Y-pos.Y, support.Z-pos.Z); ok {
				meta = m
			}
		}
		w.SetBlockWorldWithMeta(pos.X, pos.Y, pos.Z, id, meta)
		return true
	}

	w.SetBlockWorld(pos.X, pos.Y, pos.Z, id)
	return true
}

// BreakBlock разрушение блока игроком. Воздух и жидкость разрушить нельзя.
func (w *World) BreakBlock(pos vec.Vec3) (block.BlockID, bool) {
	id := w.GetBlockWorld(pos.X, pos.Y, pos.Z)
	if id == block.AirBlockID || w.registry.IsFluid(id) {
		return id, false
	}
	if !w.IsLoaded(pos.X, pos.Z) {
		return id, false
	}
	w.SetBlockWorldWithMeta(pos.X, pos.Y, pos.Z, block.AirBlockID, 0)
	return id, true
}
