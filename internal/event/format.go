package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the text form of time.Time values: ISO-8601 in UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatValue renders a field value as text. Scalars render directly;
// slices, maps and structs render as compact JSON and report structured.
// A nil value renders as the empty string.
func FormatValue(v any) (text string, structured bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, false
	case json.Number:
		return x.String(), false
	case bool:
		return strconv.FormatBool(x), false
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), false
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), false
	case time.Time:
		return x.UTC().Format(TimestampLayout), false
	case []byte:
		return string(x), false
	}

	out, err := marshalJSON(v)
	if err != nil {
		return fmt.Sprint(v), false
	}
	return string(out), true
}
