package lightbox

import (
	"guest-gallery/internal/models"
)

// Action is what a key press asks the viewer to do.
type Action string

const (
	ActionNone  Action = ""
	ActionClose Action = "close"
	ActionPrev  Action = "prev"
	ActionNext  Action = "next"
)

// ActionForKey maps a keyboard key (in browser KeyboardEvent.key form)
// to a viewer action.
func ActionForKey(key string) Action {
	switch key {
	case "Escape":
		return ActionClose
	case "ArrowLeft":
		return ActionPrev
	case "ArrowRight":
		return ActionNext
	}
	return ActionNone
}

// Neighbors locates a record in gallery order and returns the IDs on
// either side. There is no wraparound: the newest record has no prev
// and the oldest has no next. An unknown ID yields empty neighbors
// with found=false.
func Neighbors(records []models.MediaRecord, id string) (prev, next string, found bool) {
	for i, rec := range records {
		if rec.ID != id {
			continue
		}
		if i > 0 {
			prev = records[i-1].ID
		}
		if i < len(records)-1 {
			next = records[i+1].ID
		}
		return prev, next, true
	}
	return "", "", false
}

// Zoom bounds. A transform at MinScale is the untouched fit-to-screen
// view; panning is only meaningful above it.
const (
	MinScale = 1.0
	MaxScale = 4.0

	// DoubleTapScale is the zoom level a double click or double tap
	// toggles to from the fit view.
	DoubleTapScale = 2.0
)

// Transform is the viewer's zoom/pan state. X and Y are the pan offset
// of the image center in viewport pixels at the current scale.
type Transform struct {
	Scale float64 `json:"scale"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Identity is the fit-to-screen transform.
func Identity() Transform {
	return Transform{Scale: MinScale}
}

// IsIdentity reports whether the transform is the untouched fit view.
func (t Transform) IsIdentity() bool {
	return t.Scale == MinScale && t.X == 0 && t.Y == 0
}

// ZoomBy scales around the viewport point (cx, cy), clamping to the
// scale bounds. Zooming all the way out resets the pan so the image
// re-centers. A factor that cannot change the clamped scale is a
// no-op.
func (t Transform) ZoomBy(factor, cx, cy float64) Transform {
	next := clamp(t.Scale*factor, MinScale, MaxScale)
	if next == t.Scale {
		return t
	}
	if next == MinScale {
		return Identity()
	}

	// Keep the point under the cursor fixed while the scale changes.
	ratio := next / t.Scale
	return Transform{
		Scale: next,
		X:     cx - (cx-t.X)*ratio,
		Y:     cy - (cy-t.Y)*ratio,
	}
}

// PanBy shifts the view. At the fit scale there is nothing to pan and
// the transform is unchanged, so drags fall through to swipe
// navigation.
func (t Transform) PanBy(dx, dy float64) Transform {
	if t.Scale <= MinScale {
		return t
	}
	t.X += dx
	t.Y += dy
	return t
}

// DoubleTap toggles between the fit view and DoubleTapScale centered
// on the tapped point.
func (t Transform) DoubleTap(cx, cy float64) Transform {
	if !t.IsIdentity() {
		return Identity()
	}
	return t.ZoomBy(DoubleTapScale, cx, cy)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
