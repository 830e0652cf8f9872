package block

// Options параметры таблицы блоков по умолчанию
type Options struct {
	WaterMaxLevel uint8
	LavaMaxLevel  uint8
}

// DefaultOptions уровни растекания воды и лавы
func DefaultOptions() Options {
	return Options{WaterMaxLevel: 4, LavaMaxLevel: 3}
}

var solidNames = []struct {
	id   BlockID
	name string
}{
	{StoneBlockID, "stone"},
	{GrassBlockBlockID, "grass_block"},
	{DirtBlockID, "dirt"},
	{PlanksBlockID, "planks"},
	{CobblestoneBlockID, "cobblestone"},
	{BedrockBlockID, "bedrock"},
	{SandBlockID, "sand"},
	{GravelBlockID, "gravel"},
	{WoodBlockID, "wood"},
	{GoldOreBlockID, "gold_ore"},
	{IronOreBlockID, "iron_ore"},
	{CoalOreBlockID, "coal_ore"},
	{GoldBlockID, "gold_block"},
	{RedWoolBlockID, "red_wool"},
	{OrangeWoolBlockID, "orange_wool"},
	{YellowWoolBlockID, "yellow_wool"},
	{ChartreuseWoolBlockID, "chartreuse_wool"},
	{GreenWoolBlockID, "green_wool"},
	{SpringGreenWoolID, "spring_green_wool"},
	{CyanWoolBlockID, "cyan_wool"},
	{CapriWoolBlockID, "capri_wool"},
	{UltramarineWoolID, "ultramarine_wool"},
	{VioletWoolBlockID, "violet_wool"},
	{PurpleWoolBlockID, "purple_wool"},
	{MagentaWoolBlockID, "magenta_wool"},
	{RoseWoolBlockID, "rose_wool"},
	{DarkGrayWoolBlockID, "dark_gray_wool"},
	{LightGrayWoolBlockID, "light_gray_wool"},
	{WhiteWoolBlockID, "white_wool"},
	{GlowstoneBlockID, "glowstone"},
}

var crossNames = []struct {
	id   BlockID
	name string
	size float64
}{
	{RoseBlockID, "rose", 0.9},
	{DandelionBlockID, "dandelion", 0.9},
	{SaplingBlockID, "sapling", 0.9},
	{RedMushroomBlockID, "red_mushroom", 0.9},
	{BrownMushroomBlockID, "brown_mushroom", 0.9},
	{GrassBlockID, "grass", 1.0},
	{TorchBlockID, "torch", 0.6},
}

// DefaultRegistry регистрирует полный набор блоков
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()

	for _, s := range solidNames {
		r.MustRegister(Definition{ID: s.id, Name: s.name, Kind: Solid{Occludes: true}})
	}
	r.MustRegister(Definition{ID: GlassBlockID, Name: "glass", Kind: Solid{Occludes: false, Transparent: true}})
	r.MustRegister(Definition{ID: LeavesBlockID, Name: "leaves", Kind: Solid{Occludes: false, Transparent: true}})
	r.MustRegister(Definition{ID: SpongeBlockID, Name: "sponge", Kind: Solid{Occludes: true}, Absorbent: true})

	for _, c := range crossNames {
		r.MustRegister(Definition{ID: c.id, Name: c.name, Kind: Cross{Size: c.size}})
	}

	r.MustRegister(Definition{ID: WaterBlockID, Name: "water", Kind: Fluid{MaxLevel: opts.WaterMaxLevel}})
	r.MustRegister(Definition{ID: LavaBlockID, Name: "lava", Kind: Fluid{MaxLevel: opts.LavaMaxLevel}})
	r.SetOpposites(WaterBlockID, LavaBlockID)
	r.SetReactionProduct(CobblestoneBlockID)

	return r
}
