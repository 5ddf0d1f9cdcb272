package printer

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateTriggerSheet(t *testing.T) {
	pdf, err := GenerateTriggerSheet("Scanner triggers", []Card{
		{Caption: "New row", Value: "TRG-NEW-ROW"},
		{Caption: "Condition", Value: "TRG-CONDITION"},
		{Caption: "Disabled", Value: ""},
	})
	if err != nil {
		t.Fatalf("GenerateTriggerSheet() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", pdf[:8])
	}

	_, err = GenerateTriggerSheet("empty", []Card{{Caption: "Disabled"}})
	if !errors.Is(err, ErrNothingToPrint) {
		t.Errorf("expected ErrNothingToPrint, got %v", err)
	}
}

func TestGenerateSerialLabels(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SerialLabelConfig
		wantErr bool
	}{
		{"two pages", SerialLabelConfig{GTIN: "5901234123457", Prefix: "SN", StartNumber: 1, Count: 25}, false},
		{"no labels", SerialLabelConfig{GTIN: "5901234123457"}, true},
		{"layout too wide", SerialLabelConfig{Layout: Layout{Cols: 100, GapX: 10}, GTIN: "5901234123457", Count: 1}, true},
		{"reference too long", SerialLabelConfig{GTIN: "123456789012345678901234567890123456789", Count: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, err := GenerateSerialLabels(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateSerialLabels() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.HasPrefix(pdf, []byte("%PDF")) {
				t.Errorf("output is not a PDF")
			}
		})
	}
}
