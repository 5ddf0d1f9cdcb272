package utils

import (
	"errors"
	"fmt"
	"strings"
)

// Base36 alphabet (0-9, A-Z) used for the split length digit
const SmartBase32Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ==========================================
// SMART ITEM ('i')
// Format: i [SplitChar] [Serial...] [EAN...]
// SplitChar: base36 digit holding the length of the SUFFIX (EAN/ID).
// Example: Split 'D' (13) means last 13 chars are EAN, rest is Serial.
// ==========================================

type SmartItemData struct {
	Serial string // The unique part (serial number)
	RefID  string // The identification part (EAN, UPC, etc.)
}

// IsSmartItem reports whether a scan looks like a smart item label.
func IsSmartItem(code string) bool {
	return len(code) >= 3 && (code[0] == 'i' || code[0] == 'I') && strings.ContainsRune(SmartBase32Chars, rune(strings.ToUpper(code[1:2])[0]))
}

func DecodeSmartItem(code string) (*SmartItemData, error) {
	if !IsSmartItem(code) {
		return nil, errors.New("invalid item code")
	}

	code = strings.ToUpper(code)

	// 2nd char is Split Length
	suffixLen := base32ToInt(string(code[1]))

	dataPart := code[2:]
	if len(dataPart) <= suffixLen {
		return nil, errors.New("code too short for specified split length")
	}

	splitIdx := len(dataPart) - suffixLen
	return &SmartItemData{
		Serial: dataPart[:splitIdx],
		RefID:  dataPart[splitIdx:],
	}, nil
}

func GenerateSmartItem(serial, refID string) (string, error) {
	if len(refID) > len(SmartBase32Chars)-1 {
		return "", fmt.Errorf("reference %q too long for a smart item code", refID)
	}
	if serial == "" {
		return "", errors.New("serial is required")
	}
	return fmt.Sprintf("i%s%s%s", intToBase32(len(refID), 1), strings.ToUpper(serial), refID), nil
}

func base32ToInt(chunk string) int {
	val := 0
	for _, char := range chunk {
		idx := strings.IndexRune(SmartBase32Chars, char)
		if idx == -1 {
			return 0
		}
		val = val*len(SmartBase32Chars) + idx
	}
	return val
}

func intToBase32(num, width int) string {
	base := len(SmartBase32Chars)
	res := ""
	for i := 0; i < width; i++ {
		rem := num % base
		res = string(SmartBase32Chars[rem]) + res
		num = num / base
	}
	return res
}
