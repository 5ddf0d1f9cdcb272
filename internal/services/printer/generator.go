package printer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/eckscan/internal/utils"
)

// Card is one printed code: the value encoded in the QR and a caption.
type Card struct {
	Caption string
	Value   string
}

// Layout holds the A4 grid geometry in millimetres.
type Layout struct {
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	MarginTop  float64 `json:"marginTop"`
	MarginLeft float64 `json:"marginLeft"`
	GapX       float64 `json:"gapX"`
	GapY       float64 `json:"gapY"`
}

// SerialLabelConfig describes a run of serialized item labels.
type SerialLabelConfig struct {
	Layout
	GTIN        string `json:"gtin" validate:"required,numeric,min=8,max=14"`
	Prefix      string `json:"prefix" validate:"omitempty,alphanum,max=10"`
	StartNumber int    `json:"startNumber" validate:"gte=0"`
	Count       int    `json:"count" validate:"gte=0,lte=1000"`
}

var ErrNothingToPrint = errors.New("nothing to print")

// TriggerLayout is the grid used for trigger sheets: large cards, two per row.
var TriggerLayout = Layout{Cols: 2, Rows: 4, MarginTop: 15, MarginLeft: 15, GapX: 10, GapY: 10}

func (l Layout) withDefaults() Layout {
	if l.Cols <= 0 {
		l.Cols = 3
	}
	if l.Rows <= 0 {
		l.Rows = 7
	}
	return l
}

// GenerateTriggerSheet renders the mode-switching barcodes a scanner operator keeps at
// the workstation. Cards with an empty value are skipped.
func GenerateTriggerSheet(title string, cards []Card) ([]byte, error) {
	printable := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.Value != "" {
			printable = append(printable, c)
		}
	}
	if len(printable) == 0 {
		return nil, ErrNothingToPrint
	}
	return render(title, TriggerLayout, printable)
}

// GenerateSerialLabels renders smart item labels: each QR carries the serial and the
// GTIN so a single scan resolves both the item and its serial number.
func GenerateSerialLabels(cfg SerialLabelConfig) ([]byte, error) {
	if cfg.Count <= 0 {
		return nil, ErrNothingToPrint
	}
	cards := make([]Card, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		serial := fmt.Sprintf("%s%06d", cfg.Prefix, cfg.StartNumber+i)
		code, err := utils.GenerateSmartItem(serial, cfg.GTIN)
		if err != nil {
			return nil, err
		}
		cards = append(cards, Card{Caption: serial, Value: code})
	}
	return render("", cfg.Layout, cards)
}

func render(title string, layout Layout, cards []Card) ([]byte, error) {
	layout = layout.withDefaults()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	pageWidth, pageHeight := 210.0, 297.0

	totalGapX := float64(layout.Cols-1) * layout.GapX
	totalGapY := float64(layout.Rows-1) * layout.GapY
	top := layout.MarginTop
	if title != "" {
		top += 10
	}
	availW := pageWidth - layout.MarginLeft*2
	availH := pageHeight - top - layout.MarginTop

	labelW := (availW - totalGapX) / float64(layout.Cols)
	labelH := (availH - totalGapY) / float64(layout.Rows)
	if labelW <= 0 || labelH <= 0 {
		return nil, fmt.Errorf("layout %dx%d does not fit on A4", layout.Cols, layout.Rows)
	}

	perPage := layout.Cols * layout.Rows
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	for i, card := range cards {
		if i%perPage == 0 {
			pdf.AddPage()
			if title != "" {
				pdf.SetFontSize(14)
				pdf.SetXY(layout.MarginLeft, layout.MarginTop)
				pdf.CellFormat(availW, 8, title, "", 0, "L", false, 0, "")
			}
		}

		onPage := i % perPage
		x := layout.MarginLeft + float64(onPage%layout.Cols)*(labelW+layout.GapX)
		y := top + float64(onPage/layout.Cols)*(labelH+layout.GapY)

		png, err := qrcode.Encode(card.Value, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", card.Value, err)
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(png))

		// QR centred, leaving room for two caption lines
		qrSize := labelH * 0.7
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		qrX := x + (labelW-qrSize)/2
		qrY := y + (labelH-qrSize)/2 - 3
		pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, imgOptions, 0, "")

		pdf.SetXY(x, y+labelH-9)
		pdf.SetFontSize(9)
		pdf.CellFormat(labelW, 4, card.Caption, "", 0, "C", false, 0, "")
		pdf.SetXY(x, y+labelH-5)
		pdf.SetFontSize(6)
		pdf.CellFormat(labelW, 3, card.Value, "", 0, "C", false, 0, "")

		pdf.Rect(x, y, labelW, labelH, "D")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
