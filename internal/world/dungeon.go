package world

import (
	"fmt"
	"slices"
)

// Dungeon owns every level and every entity of a session. Entities refer to
// each other by ID only.
type Dungeon struct {
	levels   map[LevelID]*Level
	monsters map[MonsterID]*Monster
	objects  map[ObjectID]*Object
	carried  map[MonsterID][]ObjectID

	retiredMonsters map[MonsterID]struct{}
	retiredObjects  map[ObjectID]struct{}

	nextMonster MonsterID
	nextObject  ObjectID
	nextTrap    TrapID
}

func NewDungeon() *Dungeon {
	return &Dungeon{
		levels:          make(map[LevelID]*Level),
		monsters:        make(map[MonsterID]*Monster),
		objects:         make(map[ObjectID]*Object),
		carried:         make(map[MonsterID][]ObjectID),
		retiredMonsters: make(map[MonsterID]struct{}),
		retiredObjects:  make(map[ObjectID]struct{}),
		nextMonster:     1,
		nextObject:      1,
		nextTrap:        1,
	}
}

// AddLevel creates an empty level of solid rock.
func (d *Dungeon) AddLevel(id LevelID, w, h int) (*Level, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("level %d: bad dimensions %dx%d: %w", id, w, h, ErrOutOfBounds)
	}
	if _, ok := d.levels[id]; ok {
		return nil, fmt.Errorf("level %d already exists: %w", id, ErrInvalidState)
	}
	l := newLevel(id, w, h)
	d.levels[id] = l
	return l, nil
}

// Level looks a level up by ID.
func (d *Dungeon) Level(id LevelID) (*Level, error) {
	l, ok := d.levels[id]
	if !ok {
		return nil, fmt.Errorf("level %d: %w", id, ErrNotFound)
	}
	return l, nil
}

// Levels returns all levels ordered by ID.
func (d *Dungeon) Levels() []*Level {
	out := make([]*Level, 0, len(d.levels))
	for _, l := range d.levels {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *Level) int { return int(a.ID) - int(b.ID) })
	return out
}

// Cell is a shortcut for Level(id).Cell(c).
func (d *Dungeon) Cell(id LevelID, c Coord) (Cell, error) {
	l, err := d.Level(id)
	if err != nil {
		return Cell{}, err
	}
	return l.Cell(c)
}

// AddTrap places a new armed trap. Only one trap may occupy a square.
func (d *Dungeon) AddTrap(id LevelID, typ TrapType, pos Coord) (*Trap, error) {
	l, err := d.Level(id)
	if err != nil {
		return nil, err
	}
	if !l.InBounds(pos) {
		return nil, fmt.Errorf("trap at %s: %w", pos, ErrOutOfBounds)
	}
	if _, ok := l.TrapAt(pos); ok {
		return nil, fmt.Errorf("trap at %s already present: %w", pos, ErrInvalidState)
	}
	t := &Trap{ID: d.nextTrap, Type: typ, Pos: pos, State: TrapArmed, Charges: typ.DefaultCharges()}
	d.nextTrap++
	l.traps[t.ID] = t
	return t, nil
}

// NewMonsterID reserves the next unused monster ID.
func (d *Dungeon) NewMonsterID() MonsterID {
	id := d.nextMonster
	d.nextMonster++
	return id
}

// AddMonster registers m on its level. A zero ID is assigned automatically.
// Registering a live or retired ID is a programming error and panics.
func (d *Dungeon) AddMonster(m *Monster) error {
	l, err := d.Level(m.Level)
	if err != nil {
		return err
	}
	if !l.InBounds(m.Pos) {
		return fmt.Errorf("monster at %s: %w", m.Pos, ErrOutOfBounds)
	}
	if m.ID == OwnerYou {
		m.ID = d.NewMonsterID()
	} else {
		if _, dup := d.monsters[m.ID]; dup {
			panic(fmt.Sprintf("world: duplicate monster id %d", m.ID))
		}
		if _, gone := d.retiredMonsters[m.ID]; gone {
			panic(fmt.Sprintf("world: monster id %d reused after death", m.ID))
		}
		if m.ID >= d.nextMonster {
			d.nextMonster = m.ID + 1
		}
	}
	d.monsters[m.ID] = m
	l.monsters = insertSorted(l.monsters, m.ID)
	return nil
}

// Monster looks a live monster up by ID.
func (d *Dungeon) Monster(id MonsterID) (*Monster, error) {
	m, ok := d.monsters[id]
	if !ok {
		return nil, fmt.Errorf("monster %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// MonstersOn returns the live monsters of a level in ascending ID order.
func (d *Dungeon) MonstersOn(id LevelID) []*Monster {
	l, ok := d.levels[id]
	if !ok {
		return nil
	}
	out := make([]*Monster, 0, len(l.monsters))
	for _, mid := range l.monsters {
		out = append(out, d.monsters[mid])
	}
	return out
}

// Monsters returns every live monster in ascending ID order.
func (d *Dungeon) Monsters() []*Monster {
	out := make([]*Monster, 0, len(d.monsters))
	for _, m := range d.monsters {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *Monster) int { return int(a.ID) - int(b.ID) })
	return out
}

// MonsterAt returns the monster standing on c, if any.
func (d *Dungeon) MonsterAt(id LevelID, c Coord) (*Monster, bool) {
	l, ok := d.levels[id]
	if !ok {
		return nil, false
	}
	for _, mid := range l.monsters {
		if m := d.monsters[mid]; m.Pos == c {
			return m, true
		}
	}
	return nil, false
}

// MoveMonster relocates a monster within its level.
func (d *Dungeon) MoveMonster(id MonsterID, to Coord) error {
	m, err := d.Monster(id)
	if err != nil {
		return err
	}
	l := d.levels[m.Level]
	if !l.InBounds(to) {
		return fmt.Errorf("move monster %d to %s: %w", id, to, ErrOutOfBounds)
	}
	m.Pos = to
	return nil
}

// RemoveMonster deletes a monster from the registry. Whatever it carried is
// dropped where it stood. The ID is retired for the rest of the session.
func (d *Dungeon) RemoveMonster(id MonsterID) error {
	m, err := d.Monster(id)
	if err != nil {
		return err
	}
	for _, oid := range slices.Clone(d.carried[id]) {
		if err := d.PlaceObject(oid, m.Level, m.Pos); err != nil {
			return err
		}
	}
	delete(d.carried, id)

	l := d.levels[m.Level]
	l.monsters = removeSorted(l.monsters, id)
	delete(d.monsters, id)
	d.retiredMonsters[id] = struct{}{}
	return nil
}

// NewObjectID reserves the next unused object ID.
func (d *Dungeon) NewObjectID() ObjectID {
	id := d.nextObject
	d.nextObject++
	return id
}

// AddObject registers o in the container named by o.Loc. A zero ID is
// assigned automatically; a duplicate or destroyed ID panics. If o cannot be
// placed it is not registered.
func (d *Dungeon) AddObject(o *Object) error {
	if o.ID == 0 {
		o.ID = d.NewObjectID()
	} else {
		if _, dup := d.objects[o.ID]; dup {
			panic(fmt.Sprintf("world: duplicate object id %d", o.ID))
		}
		if _, gone := d.retiredObjects[o.ID]; gone {
			panic(fmt.Sprintf("world: object id %d reused after destruction", o.ID))
		}
		if o.ID >= d.nextObject {
			d.nextObject = o.ID + 1
		}
	}

	loc := o.Loc
	o.Loc = Location{}
	d.objects[o.ID] = o
	var err error
	switch loc.Kind {
	case LocGround:
		err = d.PlaceObject(o.ID, loc.Level, loc.Pos)
	case LocCarried:
		err = d.GiveObject(o.ID, loc.Owner)
	default:
		err = fmt.Errorf("object %d has no location: %w", o.ID, ErrInvalidState)
	}
	if err != nil {
		delete(d.objects, o.ID)
		o.Loc = loc
		return err
	}
	return nil
}

// Object looks an object up by ID.
func (d *Dungeon) Object(id ObjectID) (*Object, error) {
	o, ok := d.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %d: %w", id, ErrNotFound)
	}
	return o, nil
}

// detach removes o from whatever container holds it.
func (d *Dungeon) detach(o *Object) {
	switch o.Loc.Kind {
	case LocGround:
		if l, ok := d.levels[o.Loc.Level]; ok {
			l.objects = removeSorted(l.objects, o.ID)
		}
	case LocCarried:
		list := d.carried[o.Loc.Owner]
		if i := slices.Index(list, o.ID); i >= 0 {
			d.carried[o.Loc.Owner] = slices.Delete(list, i, i+1)
		}
		o.Letter = 0
	case LocNowhere:
	}
	o.Loc = Location{}
}

// PlaceObject moves an object onto the floor.
func (d *Dungeon) PlaceObject(id ObjectID, level LevelID, pos Coord) error {
	o, err := d.Object(id)
	if err != nil {
		return err
	}
	l, err := d.Level(level)
	if err != nil {
		return err
	}
	if !l.InBounds(pos) {
		return fmt.Errorf("place object %d at %s: %w", id, pos, ErrOutOfBounds)
	}
	d.detach(o)
	o.Loc = OnGround(level, pos)
	l.objects = insertSorted(l.objects, id)
	return nil
}

// GiveObject moves an object into owner's inventory. The owner must be the
// player or a live monster.
func (d *Dungeon) GiveObject(id ObjectID, owner MonsterID) error {
	o, err := d.Object(id)
	if err != nil {
		return err
	}
	if owner != OwnerYou {
		if _, err := d.Monster(owner); err != nil {
			return err
		}
	}
	d.detach(o)
	o.Loc = Carried(owner)
	d.carried[owner] = append(d.carried[owner], id)
	return nil
}

// DestroyObject removes an object from the session. The ID is retired for
// the rest of the session.
func (d *Dungeon) DestroyObject(id ObjectID) error {
	o, err := d.Object(id)
	if err != nil {
		return err
	}
	d.detach(o)
	delete(d.objects, id)
	d.retiredObjects[id] = struct{}{}
	return nil
}

// Carried returns the IDs owner is carrying in acquisition order.
func (d *Dungeon) Carried(owner MonsterID) []ObjectID {
	return slices.Clone(d.carried[owner])
}

// ObjectsAt returns the IDs of floor objects at c in ascending order.
func (d *Dungeon) ObjectsAt(level LevelID, c Coord) []ObjectID {
	l, ok := d.levels[level]
	if !ok {
		return nil
	}
	var out []ObjectID
	for _, id := range l.objects {
		if d.objects[id].Loc.Pos == c {
			out = append(out, id)
		}
	}
	return out
}

// Objects returns every object in ascending ID order.
func (d *Dungeon) Objects() []*Object {
	out := make([]*Object, 0, len(d.objects))
	for _, o := range d.objects {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b *Object) int { return int(a.ID) - int(b.ID) })
	return out
}
