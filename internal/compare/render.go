package compare

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"

	"golang.org/x/image/draw"

	imgio "github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/pkg/models"
)

var dividerColor = color.RGBA{R: 0x22, G: 0xd3, B: 0xee, A: 0xff}

const dividerWidth = 2

// Compose renders the comparison at position: after fills the canvas and
// before, scaled to the same canvas, covers columns left of the split.
func Compose(before, after image.Image, position float64) *image.RGBA {
	bounds := after.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	stddraw.Draw(canvas, canvas.Bounds(), after, bounds.Min, stddraw.Src)

	scaled := image.NewRGBA(canvas.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), before, before.Bounds(), draw.Src, nil)

	split := splitColumn(canvas.Bounds().Dx(), position)
	if split > 0 {
		clip := image.Rect(0, 0, split, canvas.Bounds().Dy())
		stddraw.Draw(canvas, clip, scaled, image.Point{}, stddraw.Src)
	}

	drawDivider(canvas, split)
	return canvas
}

func splitColumn(width int, position float64) int {
	col := int(clampPosition(position) / maxPosition * float64(width))
	if col > width {
		col = width
	}
	return col
}

func drawDivider(canvas *image.RGBA, split int) {
	b := canvas.Bounds()
	x0 := split - dividerWidth/2
	line := image.Rect(x0, b.Min.Y, x0+dividerWidth, b.Max.Y).Intersect(b)
	if line.Empty() {
		return
	}
	stddraw.Draw(canvas, line, image.NewUniform(dividerColor), image.Point{}, stddraw.Src)
}

// Render decodes an (original, generated) pair and encodes the comparison
// at position as PNG.
func Render(pair models.ResultPair, position float64) (models.Image, error) {
	before, err := imgio.Decode(pair.Original)
	if err != nil {
		return models.Image{}, fmt.Errorf("original: %w", err)
	}
	after, err := imgio.Decode(pair.Generated)
	if err != nil {
		return models.Image{}, fmt.Errorf("generated: %w", err)
	}
	return imgio.EncodePNG(Compose(before, after, position))
}
