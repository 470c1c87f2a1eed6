package export

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"syncboard/internal/board"
)

// A4 landscape drawing area in millimetres, with a small margin.
const (
	pageW   = 297.0
	pageH   = 210.0
	margin  = 10.0
	mmPerPx = 0.15 // capture-time pixel sizes to page millimetres
)

// WritePDF renders the document onto a single A4 landscape page. Strokes are
// drawn in committed order; image strokes are skipped because their handles
// are opaque to the export (the geometry and metadata still round-trip via
// JSON).
func WritePDF(path string, doc board.Document) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.AddPage()
	p.SetFont("Helvetica", "", 12)

	w := pageW - 2*margin
	h := pageH - 2*margin

	for _, s := range doc.Strokes {
		r, g, b := hexToRGB(s.Style.Color)
		p.SetDrawColor(r, g, b)
		p.SetTextColor(r, g, b)
		width := s.Style.Size * mmPerPx
		if width <= 0 {
			width = 0.3
		}
		p.SetLineWidth(width)

		at := func(i int) (float64, float64) {
			x, y := s.Points[i].Scale(w, h)
			return margin + x, margin + y
		}

		switch s.Tool {
		case board.ToolInk:
			for i := 1; i < len(s.Points); i++ {
				x1, y1 := at(i - 1)
				x2, y2 := at(i)
				p.Line(x1, y1, x2, y2)
			}
		case board.ToolEraser:
			// erased pixels are already absent from what the viewer sees;
			// re-painting page background would only occlude later strokes
			// incorrectly on a vector page, so erases export as white ink
			p.SetDrawColor(255, 255, 255)
			for i := 1; i < len(s.Points); i++ {
				x1, y1 := at(i - 1)
				x2, y2 := at(i)
				p.Line(x1, y1, x2, y2)
			}
		case board.ToolLine:
			if len(s.Points) >= 2 {
				x1, y1 := at(0)
				x2, y2 := at(1)
				p.Line(x1, y1, x2, y2)
			}
		case board.ToolRectangle:
			if len(s.Points) >= 2 {
				x1, y1 := at(0)
				x2, y2 := at(1)
				p.Rect(min(x1, x2), min(y1, y2), abs(x2-x1), abs(y2-y1), "D")
			}
		case board.ToolEllipse:
			if len(s.Points) >= 2 {
				x1, y1 := at(0)
				x2, y2 := at(1)
				p.Ellipse((x1+x2)/2, (y1+y2)/2, abs(x2-x1)/2, abs(y2-y1)/2, 0, "D")
			}
		case board.ToolText:
			if len(s.Points) >= 1 && s.Text != "" {
				x, y := at(0)
				p.SetFontSize(s.Style.Size * 3)
				p.Text(x, y, s.Text)
			}
		case board.ToolImage:
			// opaque handle, skipped
		}
	}

	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func hexToRGB(hex string) (int, int, int) {
	var r, g, b int
	if len(hex) == 7 && hex[0] == '#' {
		if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b); err == nil {
			return r, g, b
		}
	}
	return 0, 0, 0
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
