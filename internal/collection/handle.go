package collection

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// OpKind identifies the operation a plan node applies to its inputs.
type OpKind string

const (
	OpSource       OpKind = "source"
	OpFilterBounds OpKind = "filter-bounds"
	OpFilter       OpKind = "filter"
	OpMap          OpKind = "map"
	OpSelect       OpKind = "select"
	OpUnion        OpKind = "union"
	OpJoin         OpKind = "join"
	OpAggregate    OpKind = "aggregate"
)

// BandMapping selects the band From and exposes it as To.
type BandMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Op is the operation recorded by a plan node. Only the fields relevant to
// Kind are set.
type Op struct {
	Kind OpKind

	// SourceID names the remote collection of a source node.
	SourceID string

	// Region, Start and End bound a filter-bounds node. Records are kept when
	// their footprint intersects Region and Start <= time < End.
	Region *geojson.Geometry
	Start  time.Time
	End    time.Time

	// Filter is the CQL2 metadata predicate of a filter node.
	Filter *filter.Filter

	// Mapper and Label describe a map node.
	Mapper Mapper
	Label  string

	// Mappings lists the bands kept by a select node, in output order.
	Mappings []BandMapping

	Join      JoinSpec
	Aggregate AggregateSpec
}

// Handle is an immutable node of a deferred evaluation plan. Every
// operation returns a new Handle referring to its inputs; nothing is
// evaluated until a backend walks the plan.
type Handle struct {
	id     uuid.UUID
	op     Op
	inputs []*Handle
	bands  []string
}

// New returns a source node reading the remote collection sourceID, whose
// records expose bands.
func New(sourceID string, bands []string) *Handle {
	return newHandle(Op{Kind: OpSource, SourceID: sourceID}, bands)
}

func newHandle(op Op, bands []string, inputs ...*Handle) *Handle {
	return &Handle{
		id:     uuid.New(),
		op:     op,
		inputs: inputs,
		bands:  slices.Clone(bands),
	}
}

// ID returns the node identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Op returns the node operation.
func (h *Handle) Op() Op { return h.op }

// Inputs returns the nodes this node reads from.
func (h *Handle) Inputs() []*Handle { return slices.Clone(h.inputs) }

// Bands returns the band names every record produced by this node exposes.
func (h *Handle) Bands() []string { return slices.Clone(h.bands) }

// FilterBounds keeps records intersecting region and acquired in [start, end).
func (h *Handle) FilterBounds(region *geojson.Geometry, start, end time.Time) *Handle {
	return newHandle(Op{Kind: OpFilterBounds, Region: region.Clone(), Start: start, End: end}, h.bands, h)
}

// Filter keeps records whose properties satisfy f.
func (h *Handle) Filter(f *filter.Filter) *Handle {
	return newHandle(Op{Kind: OpFilter, Filter: f}, h.bands, h)
}

// Map applies m to every record. bands is the resulting band schema.
func (h *Handle) Map(label string, m Mapper, bands []string) *Handle {
	return newHandle(Op{Kind: OpMap, Mapper: m, Label: label}, bands, h)
}

// Select keeps and renames bands.
func (h *Handle) Select(mappings []BandMapping) (*Handle, error) {
	if len(mappings) == 0 {
		return nil, fmt.Errorf("select: %w: no bands selected", ErrBandNotFound)
	}
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if !slices.Contains(h.bands, m.From) {
			return nil, fmt.Errorf("select: %w: %q", ErrBandNotFound, m.From)
		}
		out = append(out, m.To)
	}
	return newHandle(Op{Kind: OpSelect, Mappings: slices.Clone(mappings)}, out, h), nil
}

// Union concatenates the records of h and others. The schema of h is kept.
func (h *Handle) Union(others ...*Handle) *Handle {
	inputs := append([]*Handle{h}, others...)
	return newHandle(Op{Kind: OpUnion}, h.bands, inputs...)
}

// Join pairs records of h with records of other according to spec.
func (h *Handle) Join(other *Handle, spec JoinSpec) *Handle {
	bands := slices.Clone(h.bands)
	for _, b := range other.bands {
		bands = append(bands, spec.Prefix+b)
	}
	spec.Clip = spec.Clip.Clone()
	return newHandle(Op{Kind: OpJoin, Join: spec}, bands, h, other)
}

// Aggregate reduces records into one record per bucket.
func (h *Handle) Aggregate(spec AggregateSpec) *Handle {
	spec.Buckets = slices.Clone(spec.Buckets)
	return newHandle(Op{Kind: OpAggregate, Aggregate: spec}, h.bands, h)
}

// Count returns how many nodes of the given kind the plan rooted at h holds.
// Shared nodes are counted once.
func (h *Handle) Count(kind OpKind) int {
	n := 0
	h.Walk(func(node *Handle) {
		if node.op.Kind == kind {
			n++
		}
	})
	return n
}

// Walk calls fn for every node of the plan, inputs before their consumers.
func (h *Handle) Walk(fn func(*Handle)) {
	seen := make(map[uuid.UUID]bool)
	var visit func(*Handle)
	visit = func(node *Handle) {
		if seen[node.id] {
			return
		}
		seen[node.id] = true
		for _, in := range node.inputs {
			visit(in)
		}
		fn(node)
	}
	visit(h)
}

// Sources returns the distinct source IDs the plan reads from.
func (h *Handle) Sources() []string {
	var ids []string
	h.Walk(func(node *Handle) {
		if node.op.Kind == OpSource && !slices.Contains(ids, node.op.SourceID) {
			ids = append(ids, node.op.SourceID)
		}
	})
	return ids
}

// String renders the plan as a nested expression, for logging.
func (h *Handle) String() string {
	args := make([]string, 0, len(h.inputs)+1)
	switch h.op.Kind {
	case OpSource:
		args = append(args, h.op.SourceID)
	case OpMap:
		args = append(args, h.op.Label)
	case OpAggregate:
		args = append(args, h.op.Aggregate.Reducer)
	}
	for _, in := range h.inputs {
		args = append(args, in.String())
	}
	return describe(string(h.op.Kind), args)
}
