package engine

import (
	"fmt"
	"testing"
)

// boxItem is a minimal Bounded for index tests.
type boxItem struct {
	id string
	r  Rect
}

func (b *boxItem) Bounds() Rect { return b.r }

func box(id string, x, y, w, h float64) *boxItem {
	return &boxItem{id: id, r: Rect{X: x, Y: y, Width: w, Height: h}}
}

func testRegion() Rect {
	return Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
}

func idsOf(objs []Bounded) map[string]bool {
	out := make(map[string]bool, len(objs))
	for _, o := range objs {
		out[o.(*boxItem).id] = true
	}
	return out
}

// --- Insert / Retrieve ---

func TestQuadTreeInsertAndLen(t *testing.T) {
	q := NewQuadTree(testRegion())
	for i := 0; i < 20; i++ {
		q.Insert(box(fmt.Sprintf("n%d", i), float64(i*40), float64(i*40), 10, 10))
	}
	if q.Len() != 20 {
		t.Errorf("Len = %d, want 20", q.Len())
	}
}

func TestQuadTreeRetrieveIsSuperset(t *testing.T) {
	q := NewQuadTree(testRegion())
	items := []*boxItem{
		box("a", 10, 10, 20, 20),
		box("b", 600, 50, 20, 20),
		box("c", 50, 700, 20, 20),
		box("d", 800, 800, 20, 20),
		box("e", 490, 490, 20, 20), // straddles the center
	}
	for _, it := range items {
		q.Insert(it)
	}

	got := idsOf(q.Retrieve(Rect{X: 0, Y: 0, Width: 100, Height: 100}))
	if !got["a"] {
		t.Error("query over a's region must return a")
	}
	if got["d"] {
		t.Error("far-away object should have been culled")
	}
}

func TestQuadTreeSplitRedistributes(t *testing.T) {
	// Force a split with a low threshold; everything lives in one
	// quadrant so the split must push the objects down a level while
	// queries still find them all.
	q := NewQuadTreeWithLimits(testRegion(), 2, 4)
	for i := 0; i < 6; i++ {
		q.Insert(box(fmt.Sprintf("n%d", i), float64(10+i*5), 10, 4, 4))
	}

	if q.Len() != 6 {
		t.Fatalf("Len = %d, want 6", q.Len())
	}
	got := q.Retrieve(Rect{X: 0, Y: 0, Width: 100, Height: 100})
	if len(got) != 6 {
		t.Errorf("Retrieve found %d objects after split, want 6", len(got))
	}
}

func TestQuadTreeStraddlerStaysInParent(t *testing.T) {
	q := NewQuadTreeWithLimits(testRegion(), 1, 4)
	straddler := box("mid", 480, 480, 40, 40) // crosses both midlines
	q.Insert(straddler)
	q.Insert(box("nw", 10, 10, 5, 5))
	q.Insert(box("ne", 900, 10, 5, 5)) // forces a split

	// The straddler must be reachable from any quadrant's query.
	for _, query := range []Rect{
		{X: 0, Y: 0, Width: 500, Height: 500},
		{X: 500, Y: 500, Width: 500, Height: 500},
	} {
		if !idsOf(q.Retrieve(query))["mid"] {
			t.Errorf("straddler missing from query %+v", query)
		}
	}
}

func TestQuadTreeOutsideRegionIsKept(t *testing.T) {
	q := NewQuadTree(testRegion())
	q.Insert(box("out", -500, -500, 10, 10))
	if q.Len() != 1 {
		t.Fatal("out-of-region object was dropped")
	}
	if !idsOf(q.Retrieve(Rect{X: -600, Y: -600, Width: 200, Height: 200}))["out"] {
		t.Error("out-of-region object should still be retrievable")
	}
}

// --- Point probes ---

func TestQuadTreeRetrieveAtExact(t *testing.T) {
	q := NewQuadTree(testRegion())
	q.Insert(box("hit", 100, 100, 50, 50))
	q.Insert(box("near", 160, 100, 50, 50))

	got := idsOf(q.RetrieveAt(120, 120))
	if !got["hit"] || got["near"] {
		t.Errorf("RetrieveAt(120,120) = %v, want only hit", got)
	}
	if len(q.RetrieveAt(500, 900)) != 0 {
		t.Error("empty-space probe should return nothing")
	}
}

func TestQuadTreeRetrieveAtEdge(t *testing.T) {
	q := NewQuadTree(testRegion())
	q.Insert(box("a", 100, 100, 50, 50))
	if !idsOf(q.RetrieveAt(150, 150))["a"] {
		t.Error("probe on the bounds edge should hit")
	}
}

// --- Remove / Update / Clear ---

func TestQuadTreeRemove(t *testing.T) {
	q := NewQuadTree(testRegion())
	a := box("a", 10, 10, 5, 5)
	q.Insert(a)
	if !q.Remove(a) {
		t.Fatal("Remove should report true for a stored object")
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", q.Len())
	}
	if q.Remove(a) {
		t.Error("second Remove should report false")
	}
}

func TestQuadTreeRemoveFromChildBucket(t *testing.T) {
	q := NewQuadTreeWithLimits(testRegion(), 1, 4)
	a := box("a", 10, 10, 5, 5)
	q.Insert(a)
	q.Insert(box("b", 900, 900, 5, 5))
	q.Insert(box("c", 900, 10, 5, 5))

	if !q.Remove(a) {
		t.Fatal("Remove should find the object after a split")
	}
	if idsOf(q.Retrieve(testRegion()))["a"] {
		t.Error("removed object still retrievable")
	}
}

func TestQuadTreeUpdateRelocates(t *testing.T) {
	q := NewQuadTreeWithLimits(testRegion(), 1, 4)
	a := box("a", 10, 10, 5, 5)
	q.Insert(a)
	q.Insert(box("b", 900, 900, 5, 5))
	q.Insert(box("c", 900, 10, 5, 5))

	a.r.X, a.r.Y = 800, 800
	q.Update(a)

	if q.Len() != 3 {
		t.Errorf("Len = %d after update, want 3", q.Len())
	}
	if !idsOf(q.RetrieveAt(802, 802))["a"] {
		t.Error("updated object not found at its new position")
	}
	if idsOf(q.Retrieve(Rect{X: 0, Y: 0, Width: 100, Height: 100}))["a"] {
		t.Error("updated object still found at its old position")
	}
}

func TestQuadTreeClear(t *testing.T) {
	q := NewQuadTreeWithLimits(testRegion(), 1, 4)
	for i := 0; i < 10; i++ {
		q.Insert(box(fmt.Sprintf("n%d", i), float64(i*90), float64(i*90), 5, 5))
	}
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len = %d after clear, want 0", q.Len())
	}
	if len(q.Retrieve(testRegion())) != 0 {
		t.Error("Retrieve should find nothing after clear")
	}
}
