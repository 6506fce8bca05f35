package access

import (
	"strconv"
	"strings"
)

// Form values arrive as strings. These helpers reproduce the coercion
// rules the store expects: empty means absent (null), never zero or "".

// optNumber coerces a numeric form value. Empty or absent becomes nil.
func optNumber(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		num, errParse := strconv.ParseFloat(trimmed, 64)
		if errParse != nil {
			return value
		}
		return num
	default:
		return value
	}
}

// optString coerces an optional text or reference field. Empty or
// absent becomes nil so "cleared" stays distinguishable from "".
func optString(value any) any {
	str, ok := value.(string)
	if !ok {
		if value == nil {
			return nil
		}
		return value
	}
	if strings.TrimSpace(str) == "" {
		return nil
	}
	return str
}

// stripesOrNull coerces a stripe count, mapping zero to nil. The store
// rejects a literal 0 on progression records; a read-back nil displays
// as zero stripes.
func stripesOrNull(value any) any {
	coerced := optNumber(value)
	if num, ok := coerced.(float64); ok && num == 0 {
		return nil
	}
	return coerced
}

// expandDate turns a date-only value ("YYYY-MM-DD") into a midnight UTC
// datetime. Values already carrying time information pass through.
func expandDate(value string) string {
	if len(value) == 10 {
		return value + "T00:00:00.000Z"
	}
	return value
}
