package block

// Метаданные факела: к какой грани он прикреплен
const (
	AttachFloor uint8 = 0
	AttachNorth uint8 = 1
	AttachSouth uint8 = 2
	AttachEast  uint8 = 3
	AttachWest  uint8 = 4
)

// AttachmentFor возвращает метаданные факела по смещению опорного блока
// относительно ячейки факела. Опора сверху не поддерживается (ok=false).
func AttachmentFor(dx, dy, dz int) (meta uint8, ok bool) {
	switch {
	case dx == 0 && dy == -1 && dz == 0:
		return AttachFloor, true
	case dx == 0 && dy == 0 && dz == -1:
		return AttachNorth, true
	case dx == 0 && dy == 0 && dz == 1:
		return AttachSouth, true
	case dx == 1 && dy == 0 && dz == 0:
		return AttachEast, true
	case dx == -1 && dy == 0 && dz == 0:
		return AttachWest, true
	}
	return 0, false
}
