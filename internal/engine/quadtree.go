package engine

// Bounded is anything the spatial index can hold.
type Bounded interface {
	Bounds() Rect
}

// Quad-tree tuning. A bucket splits once it holds more than
// defaultMaxObjects entries, unless it already sits at defaultMaxDepth.
const (
	defaultMaxObjects = 8
	defaultMaxDepth   = 6
)

// QuadTree is an adaptive bucket index over bounded objects. An object
// lives in the smallest bucket whose region fully contains its bounds;
// objects that straddle a bucket's midlines stay in that bucket rather
// than being duplicated across children. The index exists for broad-phase
// hit testing only: Retrieve may return extra candidates, never fewer.
type QuadTree struct {
	root       *quadBucket
	maxObjects int
	maxDepth   int
}

type quadBucket struct {
	region   Rect
	depth    int
	objects  []Bounded
	children *[4]*quadBucket // NW, NE, SW, SE once split
}

// NewQuadTree creates an index over the given region with default
// split threshold and depth limit.
func NewQuadTree(region Rect) *QuadTree {
	return &QuadTree{
		root:       &quadBucket{region: region},
		maxObjects: defaultMaxObjects,
		maxDepth:   defaultMaxDepth,
	}
}

// NewQuadTreeWithLimits creates an index with explicit split threshold
// and maximum depth.
func NewQuadTreeWithLimits(region Rect, maxObjects, maxDepth int) *QuadTree {
	if maxObjects < 1 {
		maxObjects = 1
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &QuadTree{
		root:       &quadBucket{region: region},
		maxObjects: maxObjects,
		maxDepth:   maxDepth,
	}
}

// Insert stores an object in the smallest bucket that fully contains its
// bounds. Objects outside the root region are kept in the root bucket so
// they are never lost to queries.
func (q *QuadTree) Insert(obj Bounded) {
	q.insertAt(q.root, obj)
}

func (q *QuadTree) insertAt(b *quadBucket, obj Bounded) {
	if b.children != nil {
		if i := quadrantFor(b.region, obj.Bounds()); i >= 0 {
			q.insertAt(b.children[i], obj)
			return
		}
	}

	b.objects = append(b.objects, obj)

	if b.children == nil && len(b.objects) > q.maxObjects && b.depth < q.maxDepth {
		q.split(b)
	}
}

// split subdivides a bucket into four equal child regions and moves each
// held object into the single quadrant that fully contains it. Straddlers
// stay behind.
func (q *QuadTree) split(b *quadBucket) {
	halfW := b.region.Width / 2
	halfH := b.region.Height / 2
	x, y := b.region.X, b.region.Y
	d := b.depth + 1

	b.children = &[4]*quadBucket{
		{region: Rect{X: x, Y: y, Width: halfW, Height: halfH}, depth: d},
		{region: Rect{X: x + halfW, Y: y, Width: halfW, Height: halfH}, depth: d},
		{region: Rect{X: x, Y: y + halfH, Width: halfW, Height: halfH}, depth: d},
		{region: Rect{X: x + halfW, Y: y + halfH, Width: halfW, Height: halfH}, depth: d},
	}

	kept := b.objects[:0]
	for _, obj := range b.objects {
		if i := quadrantFor(b.region, obj.Bounds()); i >= 0 {
			b.children[i].objects = append(b.children[i].objects, obj)
		} else {
			kept = append(kept, obj)
		}
	}
	b.objects = kept
}

// quadrantFor returns the index of the child quadrant that fully contains
// r, or -1 if r crosses the bucket's horizontal or vertical midline. An
// object sitting exactly on a midline counts as straddling — it stays in
// the parent rather than being forced to a side.
func quadrantFor(region, r Rect) int {
	midX := region.X + region.Width/2
	midY := region.Y + region.Height/2

	var west, east bool
	switch {
	case r.X+r.Width < midX:
		west = true
	case r.X > midX:
		east = true
	default:
		return -1
	}

	north := r.Y+r.Height < midY
	south := r.Y > midY
	if !north && !south {
		return -1
	}

	switch {
	case north && west:
		return 0
	case north && east:
		return 1
	case south && west:
		return 2
	default:
		return 3
	}
}

// Retrieve collects every stored object whose bounds may intersect the
// query rectangle: all local objects that intersect plus everything from
// child buckets whose regions intersect. Exact filtering for point
// queries is the caller's job.
func (q *QuadTree) Retrieve(query Rect) []Bounded {
	var out []Bounded
	retrieveFrom(q.root, query, &out)
	return out
}

func retrieveFrom(b *quadBucket, query Rect, out *[]Bounded) {
	for _, obj := range b.objects {
		if obj.Bounds().Intersects(query) {
			*out = append(*out, obj)
		}
	}
	if b.children == nil {
		return
	}
	for _, child := range b.children {
		if child.region.Intersects(query) {
			retrieveFrom(child, query, out)
		}
	}
}

// RetrieveAt probes the index with a zero-area rectangle and filters the
// candidates for exact point containment.
func (q *QuadTree) RetrieveAt(x, y float64) []Bounded {
	candidates := q.Retrieve(Rect{X: x, Y: y})
	out := candidates[:0]
	for _, obj := range candidates {
		if obj.Bounds().Contains(x, y) {
			out = append(out, obj)
		}
	}
	return out
}

// Remove deletes an object from the index, searching local objects first
// and then children depth-first. First match wins. Returns whether the
// object was found.
func (q *QuadTree) Remove(obj Bounded) bool {
	return removeFrom(q.root, obj)
}

func removeFrom(b *quadBucket, obj Bounded) bool {
	for i, o := range b.objects {
		if o == obj {
			b.objects = append(b.objects[:i], b.objects[i+1:]...)
			return true
		}
	}
	if b.children == nil {
		return false
	}
	for _, child := range b.children {
		if removeFrom(child, obj) {
			return true
		}
	}
	return false
}

// Update relocates an object after its bounds changed. This is a plain
// remove-then-reinsert; the object's Bounds method must already report
// the new bounds. Rebuild cost stays bounded under frequent small moves,
// which is the common case during interactive dragging.
func (q *QuadTree) Update(obj Bounded) {
	q.Remove(obj)
	q.Insert(obj)
}

// Clear drops every object and collapses the tree back to the root
// bucket.
func (q *QuadTree) Clear() {
	q.root = &quadBucket{region: q.root.region}
}

// Len returns the total number of stored objects.
func (q *QuadTree) Len() int {
	return bucketLen(q.root)
}

func bucketLen(b *quadBucket) int {
	n := len(b.objects)
	if b.children != nil {
		for _, child := range b.children {
			n += bucketLen(child)
		}
	}
	return n
}
