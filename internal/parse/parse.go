// internal/parse/parse.go
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceRe = regexp.MustCompile(`[\d.]+`)
	salesRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([KkMm])?\s*\+`)
)

// Price normalizes a free-form price string ("$29.99", "1,299.00") into
// a float. Returns nil when nothing numeric can be extracted.
func Price(text string) *float64 {
	if text == "" {
		return nil
	}
	match := priceRe.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// Sales parses purchase-volume text like "2K+ bought in past month" into
// a unit count. Returns 0 when the text carries no volume.
func Sales(text string) int {
	if text == "" {
		return 0
	}
	match := salesRe.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	number, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(match[2]) {
	case "K":
		number *= 1_000
	case "M":
		number *= 1_000_000
	}
	return int(number)
}

// Chunk splits identifiers into groups of at most size.
func Chunk(items []string, size int) [][]string {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
