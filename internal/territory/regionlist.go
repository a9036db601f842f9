package territory

// regionList is an insertion-ordered set of region ids. Add, remove and
// membership are O(1) amortized; removed slots are compacted lazily.
type regionList struct {
	slots []slot
	pos   map[string]int
	dead  int
}

type slot struct {
	id   string
	live bool
}

func newRegionList() regionList {
	return regionList{pos: make(map[string]int)}
}

func (l *regionList) has(id string) bool {
	_, ok := l.pos[id]
	return ok
}

func (l *regionList) len() int { return len(l.pos) }

func (l *regionList) add(id string) bool {
	if l.has(id) {
		return false
	}
	l.pos[id] = len(l.slots)
	l.slots = append(l.slots, slot{id: id, live: true})
	return true
}

func (l *regionList) remove(id string) bool {
	i, ok := l.pos[id]
	if !ok {
		return false
	}
	delete(l.pos, id)
	l.slots[i] = slot{}
	l.dead++
	if l.dead > 16 && l.dead*2 > len(l.slots) {
		l.compact()
	}
	return true
}

func (l *regionList) compact() {
	live := l.slots[:0]
	for _, s := range l.slots {
		if s.live {
			l.pos[s.id] = len(live)
			live = append(live, s)
		}
	}
	clear(l.slots[len(live):])
	l.slots = live
	l.dead = 0
}

// ids returns the live ids in insertion order.
func (l *regionList) ids() []string {
	out := make([]string, 0, len(l.pos))
	for _, s := range l.slots {
		if s.live {
			out = append(out, s.id)
		}
	}
	return out
}
