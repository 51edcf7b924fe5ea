package pipeline

// Priority orders resources into build buckets. Every resource of a lower
// priority is built before the first resource of a higher one starts.
type Priority int

const (
	// PriorityLeaf media without references
	PriorityLeaf Priority = iota
	// PriorityDependent single purpose assets referencing leaves
	PriorityDependent
	// PriorityAggregate pages linking to many resources
	PriorityAggregate
	// PriorityIndex site wide indexes over pages
	PriorityIndex
)

// Priorities returns all priorities in build order
func Priorities() []Priority {
	return []Priority{PriorityLeaf, PriorityDependent, PriorityAggregate, PriorityIndex}
}

func (p Priority) String() string {
	switch p {
	case PriorityLeaf:
		return "leaf"
	case PriorityDependent:
		return "dependent"
	case PriorityAggregate:
		return "aggregate"
	case PriorityIndex:
		return "index"
	default:
		return "unknown"
	}
}
