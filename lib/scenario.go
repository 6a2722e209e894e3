package lib

// Act is one contiguous range of iteration indices, carrying the union of
// diagnostic/mixing flags that covered it (spec.md §3 Scenario, GLOSSARY
// "Act"). First and Last are both inclusive.
type Act struct {
	First uint64
	Last  uint64
	Flags Flag
}

// Len returns the number of iteration indices this act covers.
func (a Act) Len() uint64 { return a.Last - a.First + 1 }

// Contains reports whether idx falls within [First, Last].
func (a Act) Contains(idx uint64) bool { return idx >= a.First && idx <= a.Last }

// Scenario is the ordered, sorted, disjoint sequence of acts that names
// exactly what the walker should run (spec.md §3, invariant 2).
type Scenario struct {
	Acts []Act
}

// TotalIters returns the number of iteration indices covered by s.
func (s *Scenario) TotalIters() uint64 {
	var total uint64
	for _, a := range s.Acts {
		total += a.Len()
	}
	return total
}
