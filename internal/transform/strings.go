package transform

import (
	"fmt"
	"strings"
)

func stringTransforms() []Transform {
	return []Transform{
		{
			Type: "trim",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				return strings.TrimSpace(s), nil
			},
		},
		{
			Type: "uppercase",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				return strings.ToUpper(s), nil
			},
		},
		{
			Type: "lowercase",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				return strings.ToLower(s), nil
			},
		},
		{
			Type:           "replace",
			RequiredParams: []string{"search", "replacement"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				search, err := paramString(params, "search")
				if err != nil {
					return nil, err
				}
				replacement, err := paramString(params, "replacement")
				if err != nil {
					return nil, err
				}
				return strings.ReplaceAll(s, search, replacement), nil
			},
		},
		{
			Type:           "truncate",
			RequiredParams: []string{"length"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				length, err := paramInt(params, "length")
				if err != nil {
					return nil, err
				}
				if length < 0 {
					return nil, fmt.Errorf("length must be non-negative, got %d", length)
				}
				runes := []rune(s)
				if len(runes) <= length {
					return s, nil
				}
				return string(runes[:length]), nil
			},
		},
	}
}
