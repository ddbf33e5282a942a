package transform

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// easternDigits maps western digits to eastern-arabic numerals. Kept for
// tenants whose downstream systems still expect legacy numeral rendering.
var easternDigits = map[rune]rune{
	'0': '٠', '1': '١', '2': '٢', '3': '٣', '4': '٤',
	'5': '٥', '6': '٦', '7': '٧', '8': '٨', '9': '٩',
}

var westernDigits = func() map[rune]rune {
	m := make(map[rune]rune, len(easternDigits))
	for w, e := range easternDigits {
		m[e] = w
	}
	return m
}()

func localeTransforms() []Transform {
	return []Transform{
		{
			Type: "reverse",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				r := []rune(s)
				for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
					r[i], r[j] = r[j], r[i]
				}
				return string(r), nil
			},
		},
		{
			Type: "strip_diacritics",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
				out, _, err := transform.String(stripper, s)
				if err != nil {
					return nil, fmt.Errorf("strip diacritics: %w", err)
				}
				return out, nil
			},
		},
		{
			Type:           "map_numerals",
			RequiredParams: []string{"direction"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				direction, err := paramString(params, "direction")
				if err != nil {
					return nil, err
				}

				var table map[rune]rune
				switch direction {
				case "to_eastern":
					table = easternDigits
				case "to_western":
					table = westernDigits
				default:
					return nil, fmt.Errorf("direction must be to_eastern or to_western, got %q", direction)
				}

				var b strings.Builder
				b.Grow(len(s))
				for _, r := range s {
					if mapped, ok := table[r]; ok {
						r = mapped
					}
					b.WriteRune(r)
				}
				return b.String(), nil
			},
		},
	}
}
