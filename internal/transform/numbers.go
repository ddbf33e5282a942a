package transform

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func numberTransforms() []Transform {
	return []Transform{
		{
			Type: "number_parse",
			Apply: func(input interface{}, _ map[string]interface{}) (interface{}, error) {
				return asFloat(input)
			},
		},
		{
			Type:           "round",
			RequiredParams: []string{"decimals"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				f, err := asFloat(input)
				if err != nil {
					return nil, err
				}
				decimals, err := paramInt(params, "decimals")
				if err != nil {
					return nil, err
				}
				if decimals < 0 {
					return nil, fmt.Errorf("decimals must be non-negative, got %d", decimals)
				}
				factor := math.Pow(10, float64(decimals))
				return math.Round(f*factor) / factor, nil
			},
		},
		{
			Type:           "currency_format",
			RequiredParams: []string{"currency"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				f, err := asFloat(input)
				if err != nil {
					return nil, err
				}
				code, err := paramString(params, "currency")
				if err != nil {
					return nil, err
				}
				unit, err := currency.ParseISO(code)
				if err != nil {
					return nil, fmt.Errorf("unknown currency code %q", code)
				}

				tag := language.English
				if locale, ok := params["locale"].(string); ok {
					parsed, err := language.Parse(locale)
					if err != nil {
						return nil, fmt.Errorf("unknown locale %q", locale)
					}
					tag = parsed
				}

				p := message.NewPrinter(tag)
				return p.Sprintf("%v", currency.Symbol(unit.Amount(f))), nil
			},
		},
	}
}
