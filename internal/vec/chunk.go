package vec

// ChunkPos координаты колонки чанка на сетке (cx, cz)
type ChunkPos struct {
	X int `json:"cx"`
	Z int `json:"cz"`
}

// FloorDiv целочисленное деление с округлением вниз
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod остаток, всегда лежащий в [0, b)
func Mod(a, b int) int {
	return ((a % b) + b) % b
}

// ChunkOf возвращает чанк, содержащий мировые координаты (wx, wz)
func ChunkOf(wx, wz, size int) ChunkPos {
	return ChunkPos{X: FloorDiv(wx, size), Z: FloorDiv(wz, size)}
}

// LocalIn возвращает локальные координаты внутри чанка
func LocalIn(wx, wz, size int) (lx, lz int) {
	return Mod(wx, size), Mod(wz, size)
}

// Neighbor возвращает соседний чанк со смещением (dx, dz)
func (p ChunkPos) Neighbor(dx, dz int) ChunkPos {
	return ChunkPos{X: p.X + dx, Z: p.Z + dz}
}

// Less задает порядок для сортировки: сначала X, потом Z
func (p ChunkPos) Less(other ChunkPos) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	return p.Z < other.Z
}
