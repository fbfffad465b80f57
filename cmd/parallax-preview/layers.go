package main

import (
	"image/color"
	"math"
)

// layer is one flat band of the preview scene. Depth scales how far the band
// shifts for a given direction; 0 stays put.
type layer struct {
	Name   string
	Y      float64 // top edge, fraction of window height
	Height float64 // fraction of window height
	Depth  float64
	Color  color.RGBA
}

// defaultLayers is a back-to-front landscape.
var defaultLayers = []layer{
	{Name: "sky", Y: 0, Height: 1, Depth: 0, Color: color.RGBA{R: 24, G: 32, B: 64, A: 255}},
	{Name: "mountains", Y: 0.35, Height: 0.65, Depth: 0.2, Color: color.RGBA{R: 52, G: 60, B: 100, A: 255}},
	{Name: "hills", Y: 0.55, Height: 0.45, Depth: 0.5, Color: color.RGBA{R: 40, G: 90, B: 80, A: 255}},
	{Name: "trees", Y: 0.7, Height: 0.3, Depth: 0.8, Color: color.RGBA{R: 20, G: 60, B: 40, A: 255}},
	{Name: "foreground", Y: 0.88, Height: 0.12, Depth: 1, Color: color.RGBA{R: 10, G: 24, B: 16, A: 255}},
}

// layerOffsetX is the horizontal shift in pixels: direction * amount * 100 * depth.
// Positive direction moves layers left so the scene appears to turn toward it.
func layerOffsetX(direction, amount, depth float64) float64 {
	return -direction * amount * 100 * depth
}

// layerRect is a layer's on-screen rectangle. Layers are drawn wider than the
// window by the maximum shift on each side so edges never show.
func layerRect(l layer, direction, amount float64, screenW, screenH int) (x, y, w, h int32) {
	margin := amount * 100 * l.Depth
	off := layerOffsetX(direction, amount, l.Depth)
	return int32(math.Floor(-margin + off)),
		int32(l.Y * float64(screenH)),
		int32(math.Ceil(float64(screenW)+2*margin)) + 1,
		int32(math.Ceil(l.Height * float64(screenH)))
}
