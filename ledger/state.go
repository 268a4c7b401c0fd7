package ledger

// Put writes m[k] = v and journals the previous value.
func Put[K comparable, V any](tx *Tx, m map[K]V, k K, v V) {
	old, existed := m[k]
	tx.OnRevert(func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

// Append appends v to the slice stored under k.
func Append[K comparable, V any](tx *Tx, m map[K][]V, k K, v V) {
	old, existed := m[k]
	tx.OnRevert(func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = append(old, v)
}

// Set overwrites *p.
func Set[T any](tx *Tx, p *T, v T) {
	old := *p
	tx.OnRevert(func() { *p = old })
	*p = v
}

// Sequence allocates identifiers starting at 1. Identifiers consumed by a
// reverted transaction are handed out again; committed ones never are.
type Sequence struct {
	last uint64
}

func (s *Sequence) Next(tx *Tx) uint64 {
	Set(tx, &s.last, s.last+1)
	return s.last
}

// Current returns the last allocated identifier, which equals the number of
// committed allocations.
func (s *Sequence) Current() uint64 {
	return s.last
}
