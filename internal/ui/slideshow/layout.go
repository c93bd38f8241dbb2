package slideshow

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

const (
	titleBottomFraction = float32(0.05)
	titleFontFraction   = float32(0.02)
	titleMinFontSize    = float32(14)
	titlePadX           = float32(30)
	titlePadY           = float32(15)
)

// zoomLayout scales every object about the container center.
type zoomLayout struct {
	scale float32
}

func (layout *zoomLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	scale := layout.scale
	if scale <= 0 {
		scale = 1
	}
	scaled := fyne.NewSize(size.Width*scale, size.Height*scale)
	position := fyne.NewPos((size.Width-scaled.Width)/2, (size.Height-scaled.Height)/2)
	for _, object := range objects {
		object.Move(position)
		object.Resize(scaled)
	}
}

func (layout *zoomLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(0, 0)
}

// titleLayout places a pill (background, label) centered, 5% above the bottom edge.
// Font size follows the container width.
type titleLayout struct {
	text *canvas.Text
}

func (layout *titleLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) < 2 {
		return
	}
	background := objects[0]
	label := objects[1]

	if layout.text != nil {
		layout.text.TextSize = max(size.Width*titleFontFraction, titleMinFontSize)
	}

	labelSize := label.MinSize()
	pill := fyne.NewSize(labelSize.Width+titlePadX*2, labelSize.Height+titlePadY*2)
	if pill.Width > size.Width {
		pill.Width = size.Width
	}
	x := (size.Width - pill.Width) / 2
	y := size.Height - size.Height*titleBottomFraction - pill.Height
	if y < 0 {
		y = 0
	}

	background.Move(fyne.NewPos(x, y))
	background.Resize(pill)
	label.Move(fyne.NewPos(x+titlePadX, y+titlePadY))
	label.Resize(fyne.NewSize(pill.Width-titlePadX*2, labelSize.Height))
}

func (layout *titleLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) < 2 {
		return fyne.NewSize(0, 0)
	}
	labelSize := objects[1].MinSize()
	return fyne.NewSize(labelSize.Width+titlePadX*2, labelSize.Height+titlePadY*2)
}
