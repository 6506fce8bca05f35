package recordstore

import (
	"context"
	"fmt"
	"strings"
)

// expandRecords resolves the requested relation fields on a batch of
// records, attaching each target record under rec["expand"][field].
// Unknown expand fields are rejected; dangling references are skipped.
func (s *Service) expandRecords(ctx context.Context, schema *Schema, records []Record, expand string) error {
	expand = strings.TrimSpace(expand)
	if expand == "" || len(records) == 0 {
		return nil
	}
	for _, raw := range strings.Split(expand, ",") {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		target, ok := schema.Relations[field]
		if !ok {
			return badRequest("unknown expand field %q", field)
		}
		if errField := s.expandField(ctx, records, field, target); errField != nil {
			return errField
		}
	}
	return nil
}

func (s *Service) expandField(ctx context.Context, records []Record, field, target string) error {
	targetSchema, ok := SchemaFor(target)
	if !ok {
		return badRequest("unknown expand target %q", target)
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		id, okStr := rec[field].(string)
		if !okStr || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	slice := targetSchema.NewSlice()
	if errFind := s.conn.WithContext(ctx).Table(targetSchema.Name).Where("id IN ?", ids).Find(slice).Error; errFind != nil {
		return fmt.Errorf("expand %s: %w", target, errFind)
	}
	targets, errSerialize := serializeSlice(slice)
	if errSerialize != nil {
		return errSerialize
	}
	byID := make(map[string]Record, len(targets))
	for _, t := range targets {
		if id, okStr := t["id"].(string); okStr {
			byID[id] = t
		}
	}

	for _, rec := range records {
		id, okStr := rec[field].(string)
		if !okStr {
			continue
		}
		resolved, found := byID[id]
		if !found {
			continue
		}
		expandMap, okMap := rec["expand"].(Record)
		if !okMap {
			expandMap = Record{}
			rec["expand"] = expandMap
		}
		expandMap[field] = resolved
	}
	return nil
}
