package engine

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// AnimationState is the animator's explicit state machine.
type AnimationState int

const (
	AnimIdle AnimationState = iota
	AnimAnimating
	AnimCancelled
)

// nodeTween eases one node toward its layout target.
type nodeTween struct {
	node *Node
	x    *gween.Tween
	y    *gween.Tween
}

// Animator applies a layout result over a duration by sampling eased
// positions on successive ticks. It has a single Tick entry point driven
// by the host's scheduler; cancellation is a state transition checked at
// the top of each tick, never a forced interrupt. Ticks are serialized by
// the single-threaded document model, so there is nothing to lock.
type Animator struct {
	graph  *SceneGraph
	state  AnimationState
	tweens []nodeTween
	edges  []LayoutResultEdge // routed paths, applied on completion
	last   time.Time
}

// NewAnimator creates an idle animator over the graph.
func NewAnimator(graph *SceneGraph) *Animator {
	return &Animator{graph: graph}
}

// State returns the current animation state.
func (a *Animator) State() AnimationState { return a.state }

// Start begins animating node positions toward the layout result over
// the given duration. A layout already in flight is replaced. Locked and
// unknown nodes are skipped; edge routes are written once the animation
// completes.
func (a *Animator) Start(result LayoutResult, duration time.Duration, fn ease.TweenFunc) {
	if fn == nil {
		fn = ease.OutQuad
	}
	secs := float32(duration.Seconds())
	if secs <= 0 {
		a.graph.ApplyLayout(result)
		a.state = AnimIdle
		a.tweens = nil
		return
	}

	a.tweens = a.tweens[:0]
	for _, rn := range result.Nodes {
		node, ok := a.graph.Node(rn.ID)
		if !ok || node.Locked() {
			continue
		}
		x, y := node.Position()
		a.tweens = append(a.tweens, nodeTween{
			node: node,
			x:    gween.New(float32(x), float32(rn.Position.X), secs, fn),
			y:    gween.New(float32(y), float32(rn.Position.Y), secs, fn),
		})
	}
	a.edges = result.Edges
	a.last = time.Time{}
	a.state = AnimAnimating
}

// Cancel requests cooperative cancellation. The next tick observes the
// transition and stops without touching the document further.
func (a *Animator) Cancel() {
	if a.state == AnimAnimating {
		a.state = AnimCancelled
	}
}

// Tick advances the animation to now. Returns true while the animation is
// still running. Position updates for one tick flush as one batch.
func (a *Animator) Tick(now time.Time) bool {
	switch a.state {
	case AnimIdle:
		return false
	case AnimCancelled:
		a.tweens = nil
		a.edges = nil
		a.state = AnimIdle
		return false
	}

	if a.last.IsZero() {
		a.last = now
		return true
	}
	dt := float32(now.Sub(a.last).Seconds())
	a.last = now

	done := true
	a.graph.BeginBatch()
	for _, tw := range a.tweens {
		x, finishedX := tw.x.Update(dt)
		y, finishedY := tw.y.Update(dt)
		tw.node.SetPosition(float64(x), float64(y))
		if !finishedX || !finishedY {
			done = false
		}
	}
	a.graph.EndBatch()

	if !done {
		return true
	}

	if len(a.edges) > 0 {
		a.graph.ApplyLayout(LayoutResult{Edges: a.edges})
	}
	a.tweens = nil
	a.edges = nil
	a.state = AnimIdle
	return false
}
