package world

import "fmt"

type ObjectID uint32

type ObjectClass uint8

const (
	ClassWeapon ObjectClass = iota + 1
	ClassArmor
	ClassTool
	ClassFood
	ClassCoin
	ClassGem
)

func (c ObjectClass) String() string {
	switch c {
	case ClassWeapon:
		return "weapon"
	case ClassArmor:
		return "armor"
	case ClassTool:
		return "tool"
	case ClassFood:
		return "food"
	case ClassCoin:
		return "coin"
	case ClassGem:
		return "gem"
	}
	return fmt.Sprintf("class(%d)", c)
}

type Material uint8

const (
	MatIron Material = iota + 1
	MatWood
	MatLeather
	MatVeggy
	MatFlesh
	MatGold
	MatMineral
)

func (m Material) String() string {
	switch m {
	case MatIron:
		return "iron"
	case MatWood:
		return "wood"
	case MatLeather:
		return "leather"
	case MatVeggy:
		return "veggy"
	case MatFlesh:
		return "flesh"
	case MatGold:
		return "gold"
	case MatMineral:
		return "mineral"
	}
	return fmt.Sprintf("material(%d)", m)
}

// BUC is the blessed/uncursed/cursed status of an object.
type BUC int8

const (
	Cursed   BUC = -1
	Uncursed BUC = 0
	Blessed  BUC = 1
)

func (b BUC) String() string {
	switch b {
	case Cursed:
		return "cursed"
	case Uncursed:
		return "uncursed"
	case Blessed:
		return "blessed"
	}
	return fmt.Sprintf("buc(%d)", b)
}

// ObjectKind is the closed set of object templates.
type ObjectKind uint8

const (
	KindPickAxe ObjectKind = iota + 1
	KindMattock
	KindDagger
	KindLongSword
	KindLeatherArmor
	KindFoodRation
	KindApple
	KindGold
	KindRock
	numKinds
)

// KindInfo is the static template for an object kind.
type KindInfo struct {
	Name        string
	Class       ObjectClass
	Material    Material
	DamageSides int
	Weight      int
	Nutrition   int
	Digs        bool
	Stacks      bool
}

var kindTable = [numKinds]KindInfo{
	KindPickAxe:      {Name: "pick-axe", Class: ClassTool, Material: MatIron, DamageSides: 6, Weight: 100, Digs: true},
	KindMattock:      {Name: "dwarvish mattock", Class: ClassWeapon, Material: MatIron, DamageSides: 12, Weight: 120, Digs: true},
	KindDagger:       {Name: "dagger", Class: ClassWeapon, Material: MatIron, DamageSides: 4, Weight: 10, Stacks: true},
	KindLongSword:    {Name: "long sword", Class: ClassWeapon, Material: MatIron, DamageSides: 8, Weight: 40},
	KindLeatherArmor: {Name: "leather armor", Class: ClassArmor, Material: MatLeather, Weight: 150},
	KindFoodRation:   {Name: "food ration", Class: ClassFood, Material: MatVeggy, Weight: 20, Nutrition: 800, Stacks: true},
	KindApple:        {Name: "apple", Class: ClassFood, Material: MatVeggy, Weight: 2, Nutrition: 50, Stacks: true},
	KindGold:         {Name: "gold piece", Class: ClassCoin, Material: MatGold, Stacks: true},
	KindRock:         {Name: "rock", Class: ClassGem, Material: MatMineral, DamageSides: 3, Weight: 10, Stacks: true},
}

// Info returns the kind template. It panics on an unknown kind.
func (k ObjectKind) Info() KindInfo {
	if k == 0 || k >= numKinds {
		panic(fmt.Sprintf("world: unknown object kind %d", k))
	}
	return kindTable[k]
}

func (k ObjectKind) String() string {
	if k == 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", k)
	}
	return kindTable[k].Name
}

// ParseObjectKind looks a kind up by name.
func ParseObjectKind(name string) (ObjectKind, error) {
	for k := KindPickAxe; k < numKinds; k++ {
		if kindTable[k].Name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown object kind %q: %w", name, ErrNotFound)
}

// LocKind says which container currently holds an object.
type LocKind uint8

const (
	LocNowhere LocKind = iota
	LocCarried
	LocGround
)

// Location is either an owner (player or monster) or a spot on a level.
type Location struct {
	Kind  LocKind
	Owner MonsterID
	Level LevelID
	Pos   Coord
}

// Carried locates an object in owner's inventory.
func Carried(owner MonsterID) Location { return Location{Kind: LocCarried, Owner: owner} }

// OnGround locates an object on the floor.
func OnGround(level LevelID, pos Coord) Location {
	return Location{Kind: LocGround, Level: level, Pos: pos}
}

// Object is owned by exactly one container at a time. Only Dungeon methods
// change Loc.
type Object struct {
	ID          ObjectID
	Kind        ObjectKind
	Quantity    int
	Enchantment int
	Erosion     int
	BUC         BUC
	// Letter is the inventory slot while the player carries the object.
	Letter byte
	Loc    Location
}

// NewObject returns an uncursed, unregistered object of kind k.
func NewObject(k ObjectKind, qty int) *Object {
	if qty < 1 {
		qty = 1
	}
	return &Object{Kind: k, Quantity: qty}
}

// Class is the object's class from its template.
func (o *Object) Class() ObjectClass { return o.Kind.Info().Class }

// Material is the object's material from its template.
func (o *Object) Material() Material { return o.Kind.Info().Material }

// CanDig reports whether the object is a digging tool.
func (o *Object) CanDig() bool { return o.Kind.Info().Digs }
