package emit

type Category int

const (
	CategoryStruct Category = iota
	CategoryEnum
	CategoryAlias
	CategoryFunction
	CategoryMethod
	CategoryShim
	NumCategories
)

func (c Category) String() string {
	switch c {
	case CategoryStruct:
		return "struct"
	case CategoryEnum:
		return "enum"
	case CategoryAlias:
		return "alias"
	case CategoryFunction:
		return "function"
	case CategoryMethod:
		return "method"
	case CategoryShim:
		return "shim"
	default:
		panic("invalid category")
	}
}

// Stats counts emitted and skipped declarations per category.
type Stats struct {
	Emitted [NumCategories]int
	Skipped [NumCategories]int
}

func (s *Stats) Add(other Stats) {
	for i := range NumCategories {
		s.Emitted[i] += other.Emitted[i]
		s.Skipped[i] += other.Skipped[i]
	}
}
