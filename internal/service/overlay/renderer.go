package overlay

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/gofont/goregular"

	"labelcam/internal/model"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Style is how one detection is drawn.
type Style struct {
	Color     color.Color
	LineWidth float64
	FontSize  float64
}

var (
	// DefaultStyle draws detections of classes nobody has labeled yet.
	DefaultStyle = Style{Color: mustHex("#00FFFF"), LineWidth: 2, FontSize: 18}
	// LabeledStyle draws detections of already labeled classes, and the
	// detection currently under review.
	LabeledStyle = Style{Color: mustHex("#FF0000"), LineWidth: 2, FontSize: 18}
)

func mustHex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// StyleFor picks the style for a detection of class.
func StyleFor(class string, labeled LabelSet) Style {
	if labeled.Has(class) {
		return LabeledStyle
	}
	return DefaultStyle
}

// Caption is the text drawn next to a box, e.g. "person (87%)".
func Caption(d model.Detection) string {
	return fmt.Sprintf("%s (%d%%)", d.Class, int(math.Round(d.Score*100)))
}

// Renderer draws detection overlays onto a fixed-size surface.
type Renderer struct {
	width  int
	height int
}

func NewRenderer(width, height int) *Renderer {
	return &Renderer{width: width, height: height}
}

// surface returns a cleared drawing context: a copy of base, or a
// transparent surface when base is nil.
func (r *Renderer) surface(base image.Image) *gg.Context {
	if base != nil {
		return gg.NewContextForImage(base)
	}
	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(color.Transparent)
	dc.Clear()
	return dc
}

func drawDetection(dc *gg.Context, d model.Detection, style Style, captionY float64) {
	dc.SetColor(style.Color)
	dc.SetLineWidth(style.LineWidth)
	dc.DrawRectangle(d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height)
	dc.Stroke()

	// truetype faces cache glyphs and are not shared between goroutines.
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: style.FontSize}))
	dc.DrawString(Caption(d), d.Box.X, captionY)
}

// Render redraws the whole overlay for the live view. Each detection is drawn
// in LabeledStyle when its class is in labeled, DefaultStyle otherwise.
func (r *Renderer) Render(base image.Image, detections []model.Detection, labeled LabelSet) image.Image {
	dc := r.surface(base)
	for _, d := range detections {
		drawDetection(dc, d, StyleFor(d.Class, labeled), d.Box.Y-10)
	}
	return dc.Image()
}

// RenderReview draws a batch under manual review. The detection at index is
// highlighted; captions sit inside the box top.
func (r *Renderer) RenderReview(base image.Image, batch []model.LabeledDetection, index int) image.Image {
	dc := r.surface(base)
	for i, d := range batch {
		style := DefaultStyle
		if i == index {
			style = LabeledStyle
		}
		drawDetection(dc, d.Detection, style, d.Box.Y+15)
	}
	return dc.Image()
}

// Encode writes img as JPEG.
func Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(85))
}
