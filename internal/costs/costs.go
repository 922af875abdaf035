// Package costs holds per-symbol instruction self costs aggregated from a
// profile, one parallel value per tracked cost type.
package costs

// Type is one cost metric tracked by a profile, such as cycles or
// cache-misses, together with its grand total across all samples.
type Type struct {
	Name  string
	Total uint64
}

// Self is the self-cost vector of a single instruction address. Its entries
// parallel Results.Types; a missing trailing entry means zero.
type Self []uint64

// At returns the cost for type index i, treating short vectors as zero.
func (s Self) At(i int) uint64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// Symbol holds the sampled self costs of one function, keyed by the virtual
// address of the instruction the cost was attributed to.
type Symbol struct {
	Name string
	Self map[uint64]Self
}

// Results is the cost context for a whole profile: the cost-type catalog and
// the per-symbol address cost maps.
type Results struct {
	Types   []Type
	Symbols map[string]*Symbol
}

// NumTypes returns the number of tracked cost types. Safe on a nil receiver.
func (r *Results) NumTypes() int {
	if r == nil {
		return 0
	}
	return len(r.Types)
}

// Entry returns the cost entry for the named symbol. Symbols without any
// recorded cost yield an empty entry, never nil. Safe on a nil receiver.
func (r *Results) Entry(name string) *Symbol {
	if r != nil {
		if s := r.Symbols[name]; s != nil {
			return s
		}
	}
	return &Symbol{Name: name}
}

// Add accumulates cost for type typeIndex at addr of the named symbol.
func (r *Results) Add(name string, addr uint64, typeIndex int, cost uint64) {
	if r.Symbols == nil {
		r.Symbols = make(map[string]*Symbol)
	}
	sym := r.Symbols[name]
	if sym == nil {
		sym = &Symbol{Name: name, Self: make(map[uint64]Self)}
		r.Symbols[name] = sym
	}
	vec := sym.Self[addr]
	for len(vec) <= typeIndex {
		vec = append(vec, 0)
	}
	vec[typeIndex] += cost
	sym.Self[addr] = vec
}
