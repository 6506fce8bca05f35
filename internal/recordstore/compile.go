package recordstore

import (
	"fmt"
	"strings"

	"github.com/jitsdiary/jitsdiary/internal/db"
	"gorm.io/gorm"
)

// compileFilter turns a parsed filter tree into a parameterized SQL
// condition for the given collection. Field names must appear in the
// schema whitelist; values are returned as bind arguments.
func compileFilter(conn *gorm.DB, schema *Schema, expr filterExpr) (string, []any, error) {
	switch node := expr.(type) {
	case *binaryFilter:
		leftSQL, leftArgs, errLeft := compileFilter(conn, schema, node.left)
		if errLeft != nil {
			return "", nil, errLeft
		}
		rightSQL, rightArgs, errRight := compileFilter(conn, schema, node.right)
		if errRight != nil {
			return "", nil, errRight
		}
		joiner := "AND"
		if node.op == "||" {
			joiner = "OR"
		}
		sql := fmt.Sprintf("(%s %s %s)", leftSQL, joiner, rightSQL)
		return sql, append(leftArgs, rightArgs...), nil
	case *predFilter:
		return compilePredicate(conn, schema, node)
	default:
		return "", nil, fmt.Errorf("invalid filter expression")
	}
}

func compilePredicate(conn *gorm.DB, schema *Schema, pred *predFilter) (string, []any, error) {
	if _, ok := schema.Fields[pred.field]; !ok {
		return "", nil, fmt.Errorf("unknown field %q", pred.field)
	}
	column := fieldColumn(pred.field)

	if pred.value.kind == litNull {
		switch pred.op {
		case "=":
			return column + " IS NULL", nil, nil
		case "!=":
			return column + " IS NOT NULL", nil, nil
		default:
			return "", nil, fmt.Errorf("operator %s cannot compare to null", pred.op)
		}
	}

	value := literalValue(pred.value)

	if pred.op == "~" {
		str, ok := value.(string)
		if !ok {
			return "", nil, fmt.Errorf("operator ~ requires a string value")
		}
		pattern := db.NormalizeLikePattern(conn, "%"+escapeLikeValue(str)+"%")
		expr := db.CaseInsensitiveLikeExpr(conn, column)
		if db.IsSQLite(conn) {
			// SQLite LIKE has no default escape character.
			expr += ` ESCAPE '\'`
		}
		return expr, []any{pattern}, nil
	}

	switch pred.op {
	case "=", "!=", ">", ">=", "<", "<=":
		return fmt.Sprintf("%s %s ?", column, pred.op), []any{value}, nil
	default:
		return "", nil, fmt.Errorf("unknown operator %q", pred.op)
	}
}

func literalValue(lit filterLiteral) any {
	switch lit.kind {
	case litString:
		return lit.str
	case litNumber:
		return lit.num
	case litBool:
		return lit.boolean
	default:
		return nil
	}
}

// escapeLikeValue escapes LIKE metacharacters in a user-supplied value.
func escapeLikeValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}

// compileSort turns a comma-separated sort expression ("-date,created")
// into an ORDER BY clause, validating every field against the whitelist.
func compileSort(schema *Schema, sort string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return "", nil
	}
	var parts []string
	for _, raw := range strings.Split(sort, ",") {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			direction = "DESC"
			field = field[1:]
		} else {
			field = strings.TrimPrefix(field, "+")
		}
		if _, ok := schema.Fields[field]; !ok {
			return "", fmt.Errorf("unknown sort field %q", field)
		}
		parts = append(parts, fieldColumn(field)+" "+direction)
	}
	return strings.Join(parts, ", "), nil
}
