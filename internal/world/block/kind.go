package block

// Kind задает форму блока. Возможные варианты: Solid, Cross, Fluid.
type Kind interface {
	kind() string
}

// Solid полный куб
type Solid struct {
	Occludes    bool // закрывает грани соседей
	Transparent bool
}

// Cross растение или факел из двух скрещенных спрайтов
type Cross struct {
	Size float64
}

// Fluid жидкость. Уровень 0 источник, MaxLevel самая слабая ячейка.
type Fluid struct {
	MaxLevel uint8
}

func (Solid) kind() string { return "solid" }
func (Cross) kind() string { return "cross" }
func (Fluid) kind() string { return "fluid" }

// KindName возвращает имя варианта для логов и API
func KindName(k Kind) string {
	if k == nil {
		return "none"
	}
	return k.kind()
}
