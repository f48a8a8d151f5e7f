package tariffs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrBadNumber = errors.New("bad number")

// noValue — WB ставит "-" там, где тарифа нет.
const noValue = "-"

// ParseNumber приводит число из ответа WB к float64.
// Строки идут с запятой в качестве разделителя: "11,2" -> 11.2.
// nil, "" и "-" дают 0 без ошибки.
func ParseNumber(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return finite(x, v)
	case float32:
		return finite(float64(x), v)
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return parseString(string(x))
	case string:
		return parseString(x)
	case RawNumber:
		return ParseNumber(x.Value)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrBadNumber, v)
	}
}

func parseString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == noValue {
		return 0, nil
	}
	// пробелы и NBSP внутри — разделители разрядов
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	f, _ := d.Float64()
	return finite(f, s)
}

func finite(f float64, src any) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrBadNumber, src)
	}
	return f, nil
}
