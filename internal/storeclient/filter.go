package storeclient

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter builds a filter expression, substituting {:name} placeholders
// with safely quoted parameter values.
//
//	Filter(`user_id = {:user} && date >= {:from}`, map[string]any{
//		"user": identity.UserID,
//		"from": "2026-01-01",
//	})
func Filter(expr string, params map[string]any) string {
	for name, value := range params {
		expr = strings.ReplaceAll(expr, "{:"+name+"}", filterLiteral(value))
	}
	return expr
}

func filterLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return quoteFilterString(v)
	default:
		return quoteFilterString(fmt.Sprintf("%v", v))
	}
}

func quoteFilterString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
