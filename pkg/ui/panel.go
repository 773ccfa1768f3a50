package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 30.0
	sectionHeight = 25.0
	labelOffset   = 15.0
	margin        = 10.0
)

// Widget is implemented by every control a Panel can hold.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	height() float64
	moveTo(y float64)
}

type entry struct {
	label  string
	widget Widget
}

// Section groups the widgets added between AddSection and the next AddSection.
type Section struct {
	Title string
	first int // index of the first widget of the section
}

// Panel stacks widgets vertically in a scrollable box.
type Panel struct {
	Title         string
	X, Y          float64
	Width, Height float64
	ScrollOffset  float64

	// Styling
	BGColor      color.RGBA
	BorderColor  color.RGBA
	SectionColor color.RGBA

	entries  []entry
	sections []Section
}

// NewPanel creates an empty panel
func NewPanel(title string, x, y, width, height float64) *Panel {
	return &Panel{
		Title:        title,
		X:            x,
		Y:            y,
		Width:        width,
		Height:       height,
		BGColor:      color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor:  color.RGBA{R: 100, G: 100, B: 110, A: 255},
		SectionColor: color.RGBA{R: 60, G: 60, B: 70, A: 255},
	}
}

// AddSection starts a new section header
func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, Section{Title: title, first: len(p.entries)})
}

func (p *Panel) AddSlider(label string, min, max, value float64) *Slider {
	s := NewSlider(p.X+margin, 0, p.Width-2*margin, label, min, max, value)
	p.add(label, s)
	return s
}

func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(p.X+margin, 0, label, value)
	p.add(label, c)
	return c
}

func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(p.X+margin, 0, p.Width-2*margin, 24, label, onClick)
	p.add("", b)
	return b
}

func (p *Panel) add(label string, w Widget) {
	p.entries = append(p.entries, entry{label: label, widget: w})
	p.layout()
}

// layout places every widget at its scrolled position.
func (p *Panel) layout() {
	y := p.Y + titleHeight - p.ScrollOffset
	next := 0
	for i, e := range p.entries {
		for next < len(p.sections) && p.sections[next].first == i {
			y += sectionHeight
			next++
		}
		if e.label != "" {
			e.widget.moveTo(y + labelOffset)
		} else {
			e.widget.moveTo(y)
		}
		y += e.widget.height()
	}
}

// ContentHeight is the height of everything in the panel without scrolling.
func (p *Panel) ContentHeight() float64 {
	h := titleHeight + float64(len(p.sections))*sectionHeight
	for _, e := range p.entries {
		h += e.widget.height()
	}
	return h
}

// Update handles scrolling and input for all widgets
func (p *Panel) Update() {
	_, dy := ebiten.Wheel()
	if dy != 0 {
		maxScroll := max(p.ContentHeight()-p.Height+40, 0)
		p.ScrollOffset = min(max(p.ScrollOffset-dy*20, 0), maxScroll)
		p.layout()
	}

	for _, e := range p.entries {
		e.widget.Update()
	}
}

// Draw renders the panel and the visible widgets
func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)

	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+margin), int(p.Y+5))

	y := p.Y + titleHeight - p.ScrollOffset
	next := 0
	for i, e := range p.entries {
		for next < len(p.sections) && p.sections[next].first == i {
			if p.visible(y) {
				vector.FillRect(screen,
					float32(p.X+5), float32(y),
					float32(p.Width-10), 20,
					p.SectionColor, true)
				ebitenutil.DebugPrintAt(screen, p.sections[next].Title, int(p.X+margin), int(y+5))
			}
			y += sectionHeight
			next++
		}
		if p.visible(y) {
			if e.label != "" {
				ebitenutil.DebugPrintAt(screen, e.label, int(p.X+margin), int(y))
			}
			e.widget.Draw(screen)
		}
		y += e.widget.height()
	}
}

func (p *Panel) visible(y float64) bool {
	return y >= p.Y+titleHeight-5 && y <= p.Y+p.Height-20
}
