package search

// mask is a competitor bitset owned by a single branch or trial.
type mask []uint64

func newMask(n int) mask { return make(mask, (n+63)/64) }

func (m mask) has(id int) bool { return m[id>>6]&(1<<(uint(id)&63)) != 0 }
func (m mask) set(id int)      { m[id>>6] |= 1 << (uint(id) & 63) }
func (m mask) clear(id int)    { m[id>>6] &^= 1 << (uint(id) & 63) }

func (m mask) reset(from mask) { copy(m, from) }

func (m mask) clone() mask {
	c := make(mask, len(m))
	copy(c, m)
	return c
}
