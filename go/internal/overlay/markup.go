package overlay

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/mcdev12/buffring/go/internal/buff"
)

var elementTemplate = template.Must(template.New("element").Parse(
	`<div class="buff" id="{{.ID}}" style="{{.Style}}">
  <svg class="progress-ring">
    <rect class="bg" x="2" y="2" width="{{.Size}}" height="{{.Size}}" rx="{{.Radius}}" ry="{{.Radius}}" />
    <rect class="fg" x="2" y="2" width="{{.Size}}" height="{{.Size}}" rx="{{.Radius}}" ry="{{.Radius}}"
      stroke-dasharray="{{.Perimeter}}" stroke-dashoffset="{{.Offset}}" />
  </svg>
  <div class="buff-icon">{{.Icon}}</div>
</div>
`))

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
#buffContainer { display: flex; gap: 8px; }
.buff { position: relative; width: 54px; height: 54px; }
.progress-ring rect { fill: none; stroke-width: 4; }
.progress-ring .bg { stroke: rgba(255,255,255,0.15); }
.progress-ring .fg { stroke: #7fd1ff; transition: stroke-dashoffset 1s linear; }
.buff-icon { position: absolute; inset: 0; display: flex; align-items: center; justify-content: center; }
@keyframes fadeOut { to { opacity: 0; transform: scale(0.8); } }
</style>
</head>
<body>
<div id="buffContainer">
{{range .}}{{.}}{{end}}</div>
</body>
</html>
`))

type elementView struct {
	ID        string
	Style     template.CSS
	Size      string
	Radius    string
	Perimeter string
	Offset    string
	Icon      template.HTML
}

// Markup renders SVG markup for buff elements.
type Markup struct {
	geometry buff.RingGeometry
	timing   Timing
}

// NewMarkup creates a renderer for the given ring geometry.
func NewMarkup(geometry buff.RingGeometry, timing Timing) *Markup {
	return &Markup{geometry: geometry, timing: timing}
}

// Element renders one element.
func (m *Markup) Element(w io.Writer, el Element) error {
	style := fmt.Sprintf("transition: transform 0.2s ease; transform: scale(%s)", formatFloat(el.Scale))
	if el.State == ElementRemoving {
		style += fmt.Sprintf("; animation: fadeOut %ss forwards", formatFloat(m.timing.Fade.Seconds()))
	}

	view := elementView{
		ID:        el.ID,
		Style:     template.CSS(style),
		Size:      formatFloat(m.geometry.Size),
		Radius:    formatFloat(m.geometry.Radius),
		Perimeter: formatFloat(el.Perimeter),
		Offset:    formatFloat(el.Offset),
		// Icons come from the operator's icon table, not from commands.
		Icon: template.HTML(el.Icon),
	}
	if err := elementTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render element %s: %w", el.ID, err)
	}
	return nil
}

// Page renders a standalone HTML page with every element in the scene.
func (m *Markup) Page(w io.Writer, elements []Element) error {
	parts := make([]template.HTML, 0, len(elements))
	for _, el := range elements {
		var buf bytes.Buffer
		if err := m.Element(&buf, el); err != nil {
			return err
		}
		parts = append(parts, template.HTML(buf.String()))
	}
	if err := pageTemplate.Execute(w, parts); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
