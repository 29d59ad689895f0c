package main

import "github.com/pkg/errors"

// regAllocator is a small stack of free register names plus a spill
// signal: no graph coloring, no live-range analysis, just a LIFO pool
// handed out to codegen as it lowers one expression tree at a time and
// given back as each subexpression's value is consumed. Spilling to the
// stack is codegen's responsibility once Acquire reports none free.
type regAllocator struct {
	free     []reg
	everUsed map[reg]bool
}

// newRegAllocator seeds the pool with axis's fixed temporary set: the
// callee-saved registers not already reserved for argument passing or
// the frame/stack pointers.
func newRegAllocator() *regAllocator {
	free := make([]reg, len(calleeSavedPool))
	copy(free, calleeSavedPool)
	return &regAllocator{free: free, everUsed: make(map[reg]bool)}
}

// reset clears everUsed tracking for the next function, reseeding the
// free stack to its full pool.
func (a *regAllocator) reset() {
	a.free = a.free[:0]
	a.free = append(a.free, calleeSavedPool...)
	a.everUsed = make(map[reg]bool)
}

// Acquire pops one free register, or reports a spill (ok=false) when
// the pool is exhausted; codegen falls back to pushing the value onto
// the stack in that case. Acquired registers are remembered in
// everUsed even after Release, so the prologue knows what to save.
func (a *regAllocator) Acquire() (reg, bool) {
	if len(a.free) == 0 {
		return 0, false
	}
	r := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.everUsed[r] = true
	return r, true
}

// EverUsed returns the callee-saved registers this allocator handed out
// at least once since the last reset, in calleeSavedPool order.
func (a *regAllocator) EverUsed() []reg {
	var out []reg
	for _, r := range calleeSavedPool {
		if a.everUsed[r] {
			out = append(out, r)
		}
	}
	return out
}

// Release returns r to the pool, to be handed out again. Double-release
// of a register codegen never acquired is a bug in lowering, not user
// error, so it returns an error instead of silently corrupting state.
func (a *regAllocator) Release(r reg) error {
	for _, f := range a.free {
		if f == r {
			return errors.Errorf("register %v released twice", r)
		}
	}
	a.free = append(a.free, r)
	return nil
}

// snapshot/restore let codegen save and rewind allocator state around a
// loop body or call boundary where register lifetime must not cross.
func (a *regAllocator) snapshot() []reg {
	cp := make([]reg, len(a.free))
	copy(cp, a.free)
	return cp
}

func (a *regAllocator) restore(snap []reg) {
	a.free = snap
}
