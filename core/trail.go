package core

// Window is a half-open frame range [Lo, Hi).
type Window struct {
	Lo, Hi int
}

// TrailWindow returns the frames of a trail of at most n previous positions
// ending at frame: [max(0, frame-n), frame+1). A negative frame gives an
// empty window.
func TrailWindow(frame, n int) Window {
	if frame < 0 {
		return Window{}
	}
	if n < 0 {
		n = 0
	}
	return Window{Lo: max(0, frame-n), Hi: frame + 1}
}

// Len returns the number of frames in the window.
func (w Window) Len() int {
	if w.Hi <= w.Lo {
		return 0
	}
	return w.Hi - w.Lo
}

// Drawable reports whether the window holds enough points for a line.
func (w Window) Drawable() bool { return w.Len() >= 2 }
