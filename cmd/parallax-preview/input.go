package main

// pointerState turns per-frame mouse samples into page input events, sending
// only on change, the way a browser emits mousemove/mouseleave.
type pointerState struct {
	inside bool
	lastX  float64
	lastW  float64
}

type pointerUpdate struct {
	Type string
	Data any
}

func (p *pointerState) sample(x float64, width int, onScreen bool) (pointerUpdate, bool) {
	if !onScreen {
		if p.inside {
			p.inside = false
			return pointerUpdate{Type: "pointer_leave"}, true
		}
		return pointerUpdate{}, false
	}

	w := float64(width)
	if p.inside && x == p.lastX && w == p.lastW {
		return pointerUpdate{}, false
	}
	p.inside = true
	p.lastX = x
	p.lastW = w
	return pointerUpdate{
		Type: "pointer_move",
		Data: map[string]float64{"x": x, "viewport_width": w},
	}, true
}
