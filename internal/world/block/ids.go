package block

// BlockID представляет идентификатор блока
type BlockID uint8

// Константы ID блоков. Нумерация совпадает с сохраненными мирами, менять нельзя.
const (
	AirBlockID            BlockID = 0
	StoneBlockID          BlockID = 1
	GrassBlockBlockID     BlockID = 2
	DirtBlockID           BlockID = 3
	PlanksBlockID         BlockID = 4
	RoseBlockID           BlockID = 5
	DandelionBlockID      BlockID = 6
	WaterBlockID          BlockID = 7
	SaplingBlockID        BlockID = 8
	CobblestoneBlockID    BlockID = 9
	BedrockBlockID        BlockID = 10
	SandBlockID           BlockID = 11
	GravelBlockID         BlockID = 12
	WoodBlockID           BlockID = 13
	LeavesBlockID         BlockID = 14
	RedMushroomBlockID    BlockID = 15
	BrownMushroomBlockID  BlockID = 16
	LavaBlockID           BlockID = 17
	GoldOreBlockID        BlockID = 18
	IronOreBlockID        BlockID = 19
	CoalOreBlockID        BlockID = 20
	GoldBlockID           BlockID = 21
	SpongeBlockID         BlockID = 22
	GlassBlockID          BlockID = 23
	RedWoolBlockID        BlockID = 24
	OrangeWoolBlockID     BlockID = 25
	YellowWoolBlockID     BlockID = 26
	ChartreuseWoolBlockID BlockID = 27
	GreenWoolBlockID      BlockID = 28
	SpringGreenWoolID     BlockID = 29
	CyanWoolBlockID       BlockID = 30
	CapriWoolBlockID      BlockID = 31
	UltramarineWoolID     BlockID = 32
	VioletWoolBlockID     BlockID = 33
	PurpleWoolBlockID     BlockID = 34
	MagentaWoolBlockID    BlockID = 35
	RoseWoolBlockID       BlockID = 36
	DarkGrayWoolBlockID   BlockID = 37
	LightGrayWoolBlockID  BlockID = 38
	WhiteWoolBlockID      BlockID = 39
	GrassBlockID          BlockID = 40 // трава-растение, не путать с GrassBlockBlockID
	GlowstoneBlockID      BlockID = 41
	TorchBlockID          BlockID = 42
)
