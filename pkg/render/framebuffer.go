// Package render draws the pet's 128x128 frame into an RGB565
// framebuffer, the format the device display takes, and exports it as
// PNG for the debug surface.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
)

// Screen dimensions.
const (
	Width  = 128
	Height = 128
)

// Framebuffer is a Width x Height RGB565 pixel grid.
type Framebuffer struct {
	pix [Width * Height]uint16
}

// NewFramebuffer returns a black framebuffer.
func NewFramebuffer() *Framebuffer {
	return &Framebuffer{}
}

// Set writes one pixel; out-of-bounds writes are clipped.
func (f *Framebuffer) Set(x, y int, c uint16) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	f.pix[y*Width+x] = c
}

// At reads one pixel; out-of-bounds reads return black.
func (f *Framebuffer) At(x, y int) uint16 {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0
	}
	return f.pix[y*Width+x]
}

// Fill floods the whole buffer.
func (f *Framebuffer) Fill(c uint16) {
	for i := range f.pix {
		f.pix[i] = c
	}
}

// HLine draws a horizontal line from (x,y) of length w.
func (f *Framebuffer) HLine(x, y, w int, c uint16) {
	for i := 0; i < w; i++ {
		f.Set(x+i, y, c)
	}
}

// VLine draws a vertical line from (x,y) of length h.
func (f *Framebuffer) VLine(x, y, h int, c uint16) {
	for i := 0; i < h; i++ {
		f.Set(x, y+i, c)
	}
}

// FillRect fills the rectangle at (x,y) sized w x h.
func (f *Framebuffer) FillRect(x, y, w, h int, c uint16) {
	for dy := 0; dy < h; dy++ {
		f.HLine(x, y+dy, w, c)
	}
}

// FillCircle fills a circle of radius r centered at (cx,cy).
func (f *Framebuffer) FillCircle(cx, cy, r int, c uint16) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				f.Set(cx+dx, cy+dy, c)
			}
		}
	}
}

// DrawCircle outlines a circle of radius r centered at (cx,cy).
func (f *Framebuffer) DrawCircle(cx, cy, r int, c uint16) {
	x, y, err := r, 0, 0
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			f.Set(cx+p[0], cy+p[1], c)
		}
		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

// Line draws a line between two points.
func (f *Framebuffer) Line(x0, y0, x1, y1 int, c uint16) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		f.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// FillRoundRect fills a rounded rectangle with corner radius r.
func (f *Framebuffer) FillRoundRect(x, y, w, h, r int, c uint16) {
	if r*2 > w {
		r = w / 2
	}
	if r*2 > h {
		r = h / 2
	}
	f.FillRect(x+r, y, w-2*r, h, c)
	f.FillRect(x, y+r, r, h-2*r, c)
	f.FillRect(x+w-r, y+r, r, h-2*r, c)
	f.FillCircle(x+r, y+r, r, c)
	f.FillCircle(x+w-r-1, y+r, r, c)
	f.FillCircle(x+r, y+h-r-1, r, c)
	f.FillCircle(x+w-r-1, y+h-r-1, r, c)
}

// DrawRoundRect outlines a rounded rectangle; corners are approximated
// with straight edges meeting circle arcs.
func (f *Framebuffer) DrawRoundRect(x, y, w, h, r int, c uint16) {
	f.HLine(x+r, y, w-2*r, c)
	f.HLine(x+r, y+h-1, w-2*r, c)
	f.VLine(x, y+r, h-2*r, c)
	f.VLine(x+w-1, y+r, h-2*r, c)
	f.DrawCircle(x+r, y+r, r, c)
	f.DrawCircle(x+w-r-1, y+r, r, c)
	f.DrawCircle(x+r, y+h-r-1, r, c)
	f.DrawCircle(x+w-r-1, y+h-r-1, r, c)
}

// RGBA expands an RGB565 pixel to 8-bit channels.
func RGBA(c uint16) color.RGBA {
	r := uint8((c >> 11) & 0x1F)
	g := uint8((c >> 5) & 0x3F)
	b := uint8(c & 0x1F)
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xFF,
	}
}

// Image converts the framebuffer to an RGBA image.
func (f *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			img.SetRGBA(x, y, RGBA(f.pix[y*Width+x]))
		}
	}
	return img
}

// EncodePNG writes the framebuffer as PNG.
func (f *Framebuffer) EncodePNG(w io.Writer) error {
	return png.Encode(w, f.Image())
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
