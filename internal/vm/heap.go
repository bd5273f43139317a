package vm

// Cell is one slot of the managed heap: a boxed Value plus the mark bit
// the collector flips during the mark phase of a sweep.
type Cell struct {
	value  Value
	marked bool
}

// Ref is a handle to a heap Cell. Values never embed other values
// directly inside containers; a Vector holds Refs, so two containers
// can share an element and an element can outlive the container that
// first held it.
type Ref struct {
	cell *Cell
}

// Get reads the Cell's current Value.
func (r Ref) Get() Value {
	if r.cell == nil {
		return Nil{}
	}
	return r.cell.value
}

// Set overwrites the Cell's Value in place; every Ref aliasing this
// cell observes the new value.
func (r Ref) Set(v Value) {
	if r.cell != nil {
		r.cell.value = v
	}
}

// Valid reports whether this Ref points at a live cell (the zero Ref
// does not, and is used as a sentinel in a few lookup paths).
func (r Ref) Valid() bool { return r.cell != nil }

// NewConstRef wraps v in a standalone Cell that is never registered with
// any Heap and therefore never swept: used for the builtins scope, whose
// function values live for the process's whole lifetime and are always
// reachable from the builtins scope the sweep never scans.
func NewConstRef(v Value) Ref { return Ref{cell: &Cell{value: v, marked: true}} }

// Heap is the append-only store of all values ever allocated by a
// running program: a single flat collection of cells, grown by Alloc,
// shrunk only by Sweep.
type Heap struct {
	cells     []*Cell
	threshold int // Alloc count that triggers the next automatic sweep
	sinceGC   int

	nilCell   *Cell
	trueCell  *Cell
	falseCell *Cell
}

// DefaultSweepThreshold is the default number of allocations between
// automatic sweeps, overridable via configuration.
const DefaultSweepThreshold = 4096

// NewHeap builds an empty heap with interned Nil/True/False singletons,
// so that `nil`, `true`, and `false` never need fresh allocations.
func NewHeap(threshold int) *Heap {
	if threshold <= 0 {
		threshold = DefaultSweepThreshold
	}
	h := &Heap{threshold: threshold}
	h.nilCell = &Cell{value: Nil{}, marked: true}
	h.trueCell = &Cell{value: Bool{true}, marked: true}
	h.falseCell = &Cell{value: Bool{false}, marked: true}
	return h
}

// NilRef, TrueRef, FalseRef return the shared singleton Refs.
func (h *Heap) NilRef() Ref   { return Ref{h.nilCell} }
func (h *Heap) TrueRef() Ref  { return Ref{h.trueCell} }
func (h *Heap) FalseRef() Ref { return Ref{h.falseCell} }

// BoolRef returns the shared True/False singleton matching b.
func (h *Heap) BoolRef(b bool) Ref {
	if b {
		return h.TrueRef()
	}
	return h.FalseRef()
}

// Alloc boxes v in a fresh Cell and returns a Ref to it. The singleton
// values (Nil, Bool) are folded onto the interned cells instead of
// allocating.
func (h *Heap) Alloc(v Value) Ref {
	switch x := v.(type) {
	case Nil:
		return h.NilRef()
	case Bool:
		return h.BoolRef(x.Val)
	}
	c := &Cell{value: v}
	h.cells = append(h.cells, c)
	h.sinceGC++
	return Ref{c}
}

// ShouldSweep reports whether enough allocations have happened since
// the last sweep to warrant another automatic collection.
func (h *Heap) ShouldSweep() bool { return h.sinceGC >= h.threshold }

// Len returns the number of live, non-singleton cells currently held.
func (h *Heap) Len() int { return len(h.cells) }

// Root is anything that can mark the Refs it reaches during a sweep:
// the scope stack and the eval stack both implement it.
type Root interface {
	MarkRoots(mark func(Ref))
}

// Sweep performs one mark-and-sweep collection over the non-singleton
// cells: every reachable cell (transitively, through Vector elements
// and Function captures) is marked, then unmarked cells are discarded
// and the mark bits are cleared for the next cycle.
func (h *Heap) Sweep(roots ...Root) int {
	visited := make(map[*Cell]bool, len(h.cells))
	var mark func(r Ref)
	mark = func(r Ref) {
		c := r.cell
		if c == nil || c == h.nilCell || c == h.trueCell || c == h.falseCell {
			return
		}
		if visited[c] {
			return
		}
		visited[c] = true
		c.marked = true
		markChildren(c.value, mark)
	}

	for _, root := range roots {
		root.MarkRoots(mark)
	}

	kept := h.cells[:0]
	swept := 0
	for _, c := range h.cells {
		if c.marked {
			c.marked = false
			kept = append(kept, c)
		} else {
			swept++
		}
	}
	h.cells = kept
	h.sinceGC = 0
	return swept
}

// markChildren marks every Ref directly reachable from v: a Vector's
// elements, or a Function's captured scope chain and curried args.
func markChildren(v Value, mark func(Ref)) {
	switch x := v.(type) {
	case Vector:
		for _, e := range x.Elems {
			mark(e)
		}
	case FunctionValue:
		if x.Fn != nil {
			x.Fn.markCaptures(mark)
		}
	}
}
