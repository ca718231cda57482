package presenter

import (
	"image"

	"github.com/soocke/pixel-aim-go/ui/images"
)

const (
	zoomSize   = 48
	zoomFactor = 4
)

// ImageSource yields the most recent preview image.
type ImageSource interface {
	Image() (image.Image, bool)
}

// PreviewView shows the frame and a close-up of the reference centre.
type PreviewView interface {
	UpdateCapture(img image.Image)
	UpdateZoom(img image.Image)
}

// PreviewPresenter pulls the latest preview image on the UI thread and
// redraws only when a new image arrived.
type PreviewPresenter struct {
	src   ImageSource
	roles RoleModel
	view  PreviewView
	last  image.Image
}

func NewPreviewPresenter(src ImageSource, roles RoleModel, view PreviewView) *PreviewPresenter {
	return &PreviewPresenter{src: src, roles: roles, view: view}
}

func (p *PreviewPresenter) Tick() {
	if p == nil || p.src == nil || p.roles == nil || p.view == nil {
		return
	}
	if !p.roles.Previewing() {
		return
	}
	img, ok := p.src.Image()
	if !ok || img == p.last {
		return
	}
	p.last = img
	p.view.UpdateCapture(img)
	p.view.UpdateZoom(images.Zoom(img, zoomSize, zoomFactor))
}
