package transform

import (
	"fmt"
	"time"
)

// datePatterns are the named layout patterns accepted by the date
// transforms. Pipelines reference patterns by name, never by raw Go layout.
var datePatterns = map[string]string{
	"iso8601":  time.RFC3339,
	"rfc1123":  time.RFC1123,
	"date":     "2006-01-02",
	"eu_date":  "02/01/2006",
	"us_date":  "01/02/2006",
	"datetime": "2006-01-02 15:04:05",
	"compact":  "20060102",
}

func layoutFor(name string) (string, error) {
	layout, ok := datePatterns[name]
	if !ok {
		return "", fmt.Errorf("unknown date pattern %q", name)
	}
	return layout, nil
}

func dateTransforms() []Transform {
	return []Transform{
		{
			Type:           "date_parse",
			RequiredParams: []string{"format"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				s, err := asString(input)
				if err != nil {
					return nil, err
				}
				name, err := paramString(params, "format")
				if err != nil {
					return nil, err
				}
				layout, err := layoutFor(name)
				if err != nil {
					return nil, err
				}
				t, err := time.Parse(layout, s)
				if err != nil {
					return nil, fmt.Errorf("parse %q with pattern %s: %w", s, name, err)
				}
				return t, nil
			},
		},
		{
			Type:           "date_format",
			RequiredParams: []string{"from", "to"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				fromName, err := paramString(params, "from")
				if err != nil {
					return nil, err
				}
				toName, err := paramString(params, "to")
				if err != nil {
					return nil, err
				}
				fromLayout, err := layoutFor(fromName)
				if err != nil {
					return nil, err
				}
				toLayout, err := layoutFor(toName)
				if err != nil {
					return nil, err
				}

				t, err := coerceTime(input, fromLayout)
				if err != nil {
					return nil, err
				}
				return t.Format(toLayout), nil
			},
		},
		{
			Type:           "date_add",
			RequiredParams: []string{"unit", "amount"},
			Apply: func(input interface{}, params map[string]interface{}) (interface{}, error) {
				unit, err := paramString(params, "unit")
				if err != nil {
					return nil, err
				}
				amount, err := paramInt(params, "amount")
				if err != nil {
					return nil, err
				}

				layout := time.RFC3339
				if name, ok := params["format"].(string); ok {
					layout, err = layoutFor(name)
					if err != nil {
						return nil, err
					}
				}

				_, wasString := input.(string)
				t, err := coerceTime(input, layout)
				if err != nil {
					return nil, err
				}

				switch unit {
				case "minutes":
					t = t.Add(time.Duration(amount) * time.Minute)
				case "hours":
					t = t.Add(time.Duration(amount) * time.Hour)
				case "days":
					t = t.AddDate(0, 0, amount)
				case "months":
					t = t.AddDate(0, amount, 0)
				case "years":
					t = t.AddDate(amount, 0, 0)
				default:
					return nil, fmt.Errorf("unknown date unit %q", unit)
				}

				if wasString {
					return t.Format(layout), nil
				}
				return t, nil
			},
		},
	}
}

func coerceTime(input interface{}, layout string) (time.Time, error) {
	switch v := input.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("expected date input, got %T", input)
	}
}
