package block

import (
	"fmt"
	"sort"
)

// Definition описание типа блока
type Definition struct {
	ID        BlockID
	Name      string
	Kind      Kind
	Absorbent bool // губка: при установке осушает жидкость вокруг
}

// Registry таблица типов блоков. Вариант каждого блока вычисляется при регистрации.
type Registry struct {
	defs     [256]*Definition
	product  BlockID
	opposite map[BlockID]BlockID
}

// NewRegistry создает пустой регистр с воздухом
func NewRegistry() *Registry {
	r := &Registry{
		product:  CobblestoneBlockID,
		opposite: make(map[BlockID]BlockID),
	}
	r.defs[AirBlockID] = &Definition{ID: AirBlockID, Name: "air"}
	return r
}

// Register добавляет тип блока в регистр
func (r *Registry) Register(def Definition) error {
	if def.ID == AirBlockID {
		return fmt.Errorf("ID %d зарезервирован для воздуха", def.ID)
	}
	if r.defs[def.ID] != nil {
		return fmt.Errorf("блок с ID %d (%s) уже зарегистрирован", def.ID, r.defs[def.ID].Name)
	}
	if def.Kind == nil {
		def.Kind = Solid{Occludes: true}
	}
	if f, ok := def.Kind.(Fluid); ok && f.MaxLevel == 0 {
		return fmt.Errorf("жидкость %s без MaxLevel", def.Name)
	}
	d := def
	r.defs[def.ID] = &d
	return nil
}

// MustRegister как Register, но паникует при ошибке (для таблиц по умолчанию)
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// SetOpposites связывает две жидкости, реагирующие при встрече
func (r *Registry) SetOpposites(a, b BlockID) {
	r.opposite[a] = b
	r.opposite[b] = a
}

// SetReactionProduct задает блок, получающийся при встрече жидкостей
func (r *Registry) SetReactionProduct(id BlockID) {
	r.product = id
}

// ReactionProduct возвращает продукт реакции жидкостей
func (r *Registry) ReactionProduct() BlockID {
	return r.product
}

// Get возвращает описание для указанного ID
func (r *Registry) Get(id BlockID) (Definition, bool) {
	d := r.defs[id]
	if d == nil {
		return Definition{}, false
	}
	return *d, true
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func (r *Registry) IsValidBlockID(id BlockID) bool {
	return r.defs[id] != nil
}

// IsFluid проверяет, является ли блок жидкостью
func (r *Registry) IsFluid(id BlockID) bool {
	d := r.defs[id]
	if d == nil {
		return false
	}
	_, ok := d.Kind.(Fluid)
	return ok
}

// IsPlant проверяет, является ли блок растением (крестовый спрайт)
func (r *Registry) IsPlant(id BlockID) bool {
	d := r.defs[id]
	if d == nil {
		return false
	}
	_, ok := d.Kind.(Cross)
	return ok
}

// IsSolid проверяет, является ли блок полным кубом
func (r *Registry) IsSolid(id BlockID) bool {
	d := r.defs[id]
	if d == nil {
		return false
	}
	_, ok := d.Kind.(Solid)
	return ok
}

// IsReplaceableByFluid воздух и растения смываются жидкостью
func (r *Registry) IsReplaceableByFluid(id BlockID) bool {
	return id == AirBlockID || r.IsPlant(id)
}

// IsAbsorbent проверяет, осушает ли блок жидкость при установке
func (r *Registry) IsAbsorbent(id BlockID) bool {
	d := r.defs[id]
	return d != nil && d.Absorbent
}

// MaxLevel максимальный уровень растекания жидкости, 0 для не-жидкостей
func (r *Registry) MaxLevel(id BlockID) uint8 {
	d := r.defs[id]
	if d == nil {
		return 0
	}
	if f, ok := d.Kind.(Fluid); ok {
		return f.MaxLevel
	}
	return 0
}

// Opposite возвращает жидкость-антагонист
func (r *Registry) Opposite(id BlockID) (BlockID, bool) {
	o, ok := r.opposite[id]
	return o, ok
}

// Definitions возвращает все зарегистрированные типы по возрастанию ID
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, 64)
	for _, d := range r.defs {
		if d != nil {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
