package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"

	"labelcam/internal/model"
)

func det(class string, score float64) model.Detection {
	return model.Detection{
		Box:   model.Box{X: 10, Y: 30, Width: 50, Height: 40},
		Class: class,
		Score: score,
	}
}

// leftEdge samples the middle of a detection's left edge.
func leftEdge(img image.Image) color.RGBA {
	return color.RGBAModel.Convert(img.At(10, 50)).(color.RGBA)
}

func isRed(c color.RGBA) bool  { return c.R > 200 && c.G < 60 && c.B < 60 && c.A > 200 }
func isCyan(c color.RGBA) bool { return c.R < 60 && c.G > 200 && c.B > 200 && c.A > 200 }

func TestCaption(t *testing.T) {
	tests := []struct {
		class string
		score float64
		want  string
	}{
		{"person", 0.873, "person (87%)"},
		{"bicycle", 0.9, "bicycle (90%)"},
		{"dog", 0.125, "dog (13%)"},
		{"cat", 0.995, "cat (100%)"},
		{"car", 0, "car (0%)"},
	}
	for _, tt := range tests {
		if got := Caption(det(tt.class, tt.score)); got != tt.want {
			t.Errorf("Caption(%s, %v) = %q, expected %q", tt.class, tt.score, got, tt.want)
		}
	}
}

func TestLabelSet(t *testing.T) {
	set := NewLabelSet([]model.LabelRecord{
		{LabeledDetection: model.LabeledDetection{Detection: model.Detection{Class: "person"}, Type: "walker"}},
		{LabeledDetection: model.LabeledDetection{Detection: model.Detection{Class: "person"}}},
		{LabeledDetection: model.LabeledDetection{Detection: model.Detection{Class: "car"}}},
	})

	if len(set.Classes()) != 2 {
		t.Errorf("Expected 2 classes, got %v", set.Classes())
	}
	for class, want := range map[string]bool{
		"person":  true,
		"car":     true,
		"walker":  false,
		"Person":  false,
		"person ": false,
		"bicycle": false,
	} {
		if got := set.Has(class); got != want {
			t.Errorf("Has(%q) = %v, expected %v", class, got, want)
		}
	}
}

func TestStyleFor(t *testing.T) {
	labeled := NewLabelSet([]model.LabelRecord{
		{LabeledDetection: model.LabeledDetection{Detection: model.Detection{Class: "person"}}},
	})

	if StyleFor("person", labeled) != LabeledStyle {
		t.Error("Expected labeled style for person")
	}
	if StyleFor("bicycle", labeled) != DefaultStyle {
		t.Error("Expected default style for bicycle")
	}
	if StyleFor("person", nil) != DefaultStyle {
		t.Error("Expected default style with no labels")
	}
}

func TestRender_HighlightsLabeledClasses(t *testing.T) {
	r := NewRenderer(100, 100)
	labeled := NewLabelSet([]model.LabelRecord{
		{LabeledDetection: model.LabeledDetection{Detection: model.Detection{Class: "person"}}},
	})

	highlighted := r.Render(nil, []model.Detection{det("person", 0.9)}, labeled)
	if c := leftEdge(highlighted); !isRed(c) {
		t.Errorf("Expected red edge for labeled class, got %+v", c)
	}

	plain := r.Render(nil, []model.Detection{det("bicycle", 0.9)}, labeled)
	if c := leftEdge(plain); !isCyan(c) {
		t.Errorf("Expected cyan edge for unlabeled class, got %+v", c)
	}
}

func TestRender_ClearsSurface(t *testing.T) {
	r := NewRenderer(100, 100)

	img := r.Render(nil, []model.Detection{det("person", 0.9)}, nil)
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("Unexpected surface size %v", b)
	}
	if _, _, _, a := img.At(90, 90).RGBA(); a != 0 {
		t.Errorf("Expected transparent background, got alpha %d", a)
	}

	empty := r.Render(nil, nil, nil)
	if _, _, _, a := empty.At(10, 50).RGBA(); a != 0 {
		t.Errorf("Expected a fresh surface without boxes from previous runs, got alpha %d", a)
	}
}

func TestRender_OntoFrame(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 100, 100))
	blue := color.RGBA{0, 0, 255, 255}
	draw.Draw(base, base.Bounds(), &image.Uniform{blue}, image.Point{}, draw.Src)

	img := NewRenderer(640, 480).Render(base, []model.Detection{det("car", 0.5)}, nil)

	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("Expected frame size, got %v", b)
	}
	if c := color.RGBAModel.Convert(img.At(90, 90)).(color.RGBA); c != blue {
		t.Errorf("Expected frame pixel preserved, got %+v", c)
	}
	if c := leftEdge(img); !isCyan(c) {
		t.Errorf("Expected cyan edge, got %+v", c)
	}
	if c := color.RGBAModel.Convert(base.At(10, 50)).(color.RGBA); c != blue {
		t.Error("Render must not modify the base frame")
	}
}

func TestRenderReview_HighlightsCurrent(t *testing.T) {
	first := model.LabeledDetection{Detection: det("person", 0.8)}
	second := model.LabeledDetection{Detection: model.Detection{
		Box:   model.Box{X: 70, Y: 30, Width: 20, Height: 40},
		Class: "dog",
		Score: 0.7,
	}}
	r := NewRenderer(100, 100)

	img := r.RenderReview(nil, []model.LabeledDetection{first, second}, 1)

	if c := leftEdge(img); !isCyan(c) {
		t.Errorf("Expected reviewed-later detection in default style, got %+v", c)
	}
	current := color.RGBAModel.Convert(img.At(70, 50)).(color.RGBA)
	if !isRed(current) {
		t.Errorf("Expected current detection highlighted, got %+v", current)
	}
}

func TestEncode(t *testing.T) {
	img := NewRenderer(32, 24).Render(nil, nil, nil)

	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("Output is not a JPEG: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 24 {
		t.Errorf("Unexpected size %dx%d", cfg.Width, cfg.Height)
	}
}
