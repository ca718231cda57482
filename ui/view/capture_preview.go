package view

import (
	"image"

	"github.com/soocke/pixel-aim-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the annotated frame and a close-up of its centre.
type CapturePreview interface {
	UpdateCapture(img image.Image)
	UpdateZoom(img image.Image)
	Reset()
}

const (
	maxPreviewW = 480
	maxPreviewH = 480
)

type capturePreview struct {
	frameLabel *LabelWidget
	zoomLabel  *LabelWidget
	framePhoto *Img
	zoomPhoto  *Img
}

// NewCapturePreview places the frame label across columns 0-3 of row and the
// close-up in column 4. Escape anywhere in the window calls onExit.
func NewCapturePreview(row int, onExit func()) CapturePreview {
	v := &capturePreview{}
	v.framePhoto = placeholder(240, 240)
	v.zoomPhoto = placeholder(192, 192)
	v.frameLabel = Label(Image(v.framePhoto), Borderwidth(1), Relief("sunken"))
	v.zoomLabel = Label(Image(v.zoomPhoto), Borderwidth(1), Relief("sunken"))
	Grid(v.frameLabel, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.zoomLabel, Row(row), Column(4), Sticky("n"), Padx("0.4m"), Pady("0.4m"))
	if onExit != nil {
		Bind(App, "<Escape>", Command(onExit))
	}
	return v
}

func placeholder(w, h int) *Img {
	return NewPhoto(Data(images.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))))
}

// swap replaces the label's photo, deleting the old one so Tk does not keep
// every frame alive.
func swap(label *LabelWidget, prev **Img, img image.Image) {
	if label == nil || img == nil {
		return
	}
	next := NewPhoto(Data(images.EncodePNG(img)))
	if *prev != nil {
		(*prev).Delete()
	}
	*prev = next
	label.Configure(Image(next))
}

func (v *capturePreview) UpdateCapture(img image.Image) {
	swap(v.frameLabel, &v.framePhoto, images.ScaleToFit(img, maxPreviewW, maxPreviewH))
}

func (v *capturePreview) UpdateZoom(img image.Image) {
	swap(v.zoomLabel, &v.zoomPhoto, img)
}

func (v *capturePreview) Reset() {
	swap(v.frameLabel, &v.framePhoto, image.NewRGBA(image.Rect(0, 0, 240, 240)))
	swap(v.zoomLabel, &v.zoomPhoto, image.NewRGBA(image.Rect(0, 0, 192, 192)))
}
