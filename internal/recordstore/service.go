package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is the wire representation of a stored record.
type Record = map[string]any

// ListResult is the paginated list envelope.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// ListQuery carries the optional list parameters.
type ListQuery struct {
	Filter string
	Sort   string
	Expand string
}

// Error is a store failure with an HTTP status.
type Error struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound() *Error {
	return &Error{Status: http.StatusNotFound, Message: "record not found"}
}

// maxPerPage caps list page sizes.
const maxPerPage = 500

// Service implements collection CRUD over the database.
type Service struct {
	conn        *gorm.DB
	tokenSecret string
	tokenExpiry time.Duration
	pendingTOTP *pendingSecretStore
}

// NewService constructs a record store service.
func NewService(conn *gorm.DB, tokenSecret string, tokenExpiry time.Duration) *Service {
	return &Service{
		conn:        conn,
		tokenSecret: tokenSecret,
		tokenExpiry: tokenExpiry,
		pendingTOTP: newPendingSecretStore(),
	}
}

// List returns one page of records matching the query.
func (s *Service) List(ctx context.Context, collection string, page, perPage int, q ListQuery) (*ListResult, error) {
	schema, ok := SchemaFor(collection)
	if !ok {
		return nil, notFound()
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	tx := s.conn.WithContext(ctx).Table(schema.Name)

	if strings.TrimSpace(q.Filter) != "" {
		expr, errParse := parseFilter(q.Filter)
		if errParse != nil {
			return nil, badRequest("invalid filter: %v", errParse)
		}
		condition, args, errCompile := compileFilter(s.conn, schema, expr)
		if errCompile != nil {
			return nil, badRequest("invalid filter: %v", errCompile)
		}
		tx = tx.Where(condition, args...)
	}

	var total int64
	if errCount := tx.Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("count %s: %w", schema.Name, errCount)
	}

	orderBy, errSort := compileSort(schema, q.Sort)
	if errSort != nil {
		return nil, badRequest("invalid sort: %v", errSort)
	}
	if orderBy != "" {
		tx = tx.Order(orderBy)
	}

	slice := schema.NewSlice()
	offset := (page - 1) * perPage
	if errFind := tx.Offset(offset).Limit(perPage).Find(slice).Error; errFind != nil {
		return nil, fmt.Errorf("list %s: %w", schema.Name, errFind)
	}

	items, errSerialize := serializeSlice(slice)
	if errSerialize != nil {
		return nil, errSerialize
	}
	if errExpand := s.expandRecords(ctx, schema, items, q.Expand); errExpand != nil {
		return nil, errExpand
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		Items:      items,
	}, nil
}

// Get returns one record by id.
func (s *Service) Get(ctx context.Context, collection, id string, expand string) (Record, error) {
	schema, ok := SchemaFor(collection)
	if !ok {
		return nil, notFound()
	}
	model := schema.New()
	if errFind := s.conn.WithContext(ctx).Table(schema.Name).Where("id = ?", id).First(model).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("get %s: %w", schema.Name, errFind)
	}
	record, errSerialize := serializeRecord(model)
	if errSerialize != nil {
		return nil, errSerialize
	}
	if errExpand := s.expandRecords(ctx, schema, []Record{record}, expand); errExpand != nil {
		return nil, errExpand
	}
	return record, nil
}

// Create validates input and stores a new record.
func (s *Service) Create(ctx context.Context, collection string, input Record) (Record, error) {
	schema, ok := SchemaFor(collection)
	if !ok {
		return nil, notFound()
	}
	if schema.Auth {
		return nil, badRequest("collection %s does not accept generic writes", schema.Name)
	}

	data := filterWritable(schema, input)
	if errValidate := validateInput(schema, data, true); errValidate != nil {
		return nil, errValidate
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	data["id"] = uuid.NewString()
	data["created"] = now
	data["updated"] = now

	model := schema.New()
	if errDecode := decodeInto(data, model); errDecode != nil {
		return nil, badRequest("invalid payload: %v", errDecode)
	}
	if errCreate := s.conn.WithContext(ctx).Table(schema.Name).Create(model).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return nil, badRequest("record violates a unique constraint")
		}
		return nil, fmt.Errorf("create %s: %w", schema.Name, errCreate)
	}
	return serializeRecord(model)
}

// Update applies a partial update to an existing record.
func (s *Service) Update(ctx context.Context, collection, id string, input Record) (Record, error) {
	schema, ok := SchemaFor(collection)
	if !ok {
		return nil, notFound()
	}
	if schema.Auth {
		return nil, badRequest("collection %s does not accept generic writes", schema.Name)
	}

	model := schema.New()
	if errFind := s.conn.WithContext(ctx).Table(schema.Name).Where("id = ?", id).First(model).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, fmt.Errorf("get %s: %w", schema.Name, errFind)
	}

	current, errSerialize := serializeRecord(model)
	if errSerialize != nil {
		return nil, errSerialize
	}
	patch := filterWritable(schema, input)
	for key, value := range patch {
		current[key] = value
	}
	current["updated"] = time.Now().UTC().Format(time.RFC3339Nano)

	if errValidate := validateInput(schema, current, false); errValidate != nil {
		return nil, errValidate
	}

	merged := schema.New()
	if errDecode := decodeInto(current, merged); errDecode != nil {
		return nil, badRequest("invalid payload: %v", errDecode)
	}
	if errSave := s.conn.WithContext(ctx).Table(schema.Name).Where("id = ?", id).Save(merged).Error; errSave != nil {
		if isUniqueViolation(errSave) {
			return nil, badRequest("record violates a unique constraint")
		}
		return nil, fmt.Errorf("update %s: %w", schema.Name, errSave)
	}
	return serializeRecord(merged)
}

// Delete removes a record. Referencing records are never touched.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	schema, ok := SchemaFor(collection)
	if !ok {
		return notFound()
	}
	if schema.Auth {
		return badRequest("collection %s does not accept generic writes", schema.Name)
	}
	res := s.conn.WithContext(ctx).Table(schema.Name).Where("id = ?", id).Delete(schema.New())
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", schema.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound()
	}
	return nil
}

// filterWritable drops any input key outside the schema's writable set.
func filterWritable(schema *Schema, input Record) Record {
	out := make(Record, len(input))
	for key, value := range input {
		if _, ok := schema.Writable[key]; ok {
			out[key] = value
		}
	}
	return out
}

// validateInput enforces required fields, enum membership, and the
// collection's Check hook. Required presence is only enforced on create.
func validateInput(schema *Schema, data Record, creating bool) error {
	if creating {
		for _, field := range schema.Required {
			value, ok := data[field]
			if !ok || value == nil {
				return badRequest("missing required field %q", field)
			}
			if str, isStr := value.(string); isStr && strings.TrimSpace(str) == "" {
				return badRequest("missing required field %q", field)
			}
		}
	} else {
		for _, field := range schema.Required {
			if value, ok := data[field]; ok && value == nil {
				return badRequest("field %q cannot be cleared", field)
			}
		}
	}
	for field, allowed := range schema.Enums {
		raw, ok := data[field]
		if !ok || raw == nil {
			continue
		}
		str, isStr := raw.(string)
		if !isStr {
			return badRequest("field %q must be a string", field)
		}
		found := false
		for _, candidate := range allowed {
			if candidate == str {
				found = true
				break
			}
		}
		if !found {
			return badRequest("invalid value %q for field %q", str, field)
		}
	}
	if schema.Check != nil {
		if errCheck := schema.Check(data); errCheck != nil {
			return badRequest("%v", errCheck)
		}
	}
	return nil
}

// serializeRecord converts a model value into its wire map.
func serializeRecord(model any) (Record, error) {
	raw, errMarshal := json.Marshal(model)
	if errMarshal != nil {
		return nil, fmt.Errorf("serialize record: %w", errMarshal)
	}
	var out Record
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return nil, fmt.Errorf("serialize record: %w", errUnmarshal)
	}
	return out, nil
}

// serializeSlice converts a slice of models into wire maps.
func serializeSlice(slice any) ([]Record, error) {
	raw, errMarshal := json.Marshal(slice)
	if errMarshal != nil {
		return nil, fmt.Errorf("serialize records: %w", errMarshal)
	}
	var out []Record
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return nil, fmt.Errorf("serialize records: %w", errUnmarshal)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// decodeInto maps a wire map onto a model value via JSON.
func decodeInto(data Record, model any) error {
	raw, errMarshal := json.Marshal(data)
	if errMarshal != nil {
		return errMarshal
	}
	return json.Unmarshal(raw, model)
}

// isUniqueViolation reports whether an error is a unique-index failure in
// either supported dialect.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed") ||
		strings.Contains(msg, "duplicate key")
}
