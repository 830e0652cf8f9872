package vec

import "math"

// Vec3 представляет трехмерный вектор с целочисленными координатами (позиция блока)
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// Соседи по граням в фиксированном порядке: +X, -X, +Y, -Y, +Z, -Z
var FaceOffsets = [6]Vec3{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Горизонтальные соседи: +X, -X, +Z, -Z
var HorizontalOffsets = [4]Vec3{
	{X: 1}, {X: -1},
	{Z: 1}, {Z: -1},
}

// DistanceTo возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Down возвращает позицию под блоком
func (v Vec3) Down() Vec3 {
	return Vec3{X: v.X, Y: v.Y - 1, Z: v.Z}
}

// Center возвращает центр блока
func (v Vec3) Center() Vec3Float {
	return Vec3Float{X: float64(v.X) + 0.5, Y: float64(v.Y) + 0.5, Z: float64(v.Z) + 0.5}
}

// Block возвращает блок, в котором лежит точка
func (v Vec3Float) Block() Vec3 {
	return Vec3{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// DistanceSq возвращает квадрат расстояния между точками
func (v Vec3Float) DistanceSq(other Vec3Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}
