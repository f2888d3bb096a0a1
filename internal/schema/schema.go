package schema

import (
	"fmt"
	"regexp"
	"strings"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// maxIndexNameLength is the maximum allowed index name length.
const maxIndexNameLength = 64

// validIndexNamePattern matches alphanumeric, hyphen, and underscore.
// Index names double as file stems, so path separators never get through.
var validIndexNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Schema is the ordered column list of an index.
type Schema []string

// Infer returns the field names of doc in encounter order.
// A document without fields yields an empty schema.
func Infer(doc Document) Schema {
	return Schema(doc.Names())
}

// IsEmpty reports whether the schema has no columns.
func (s Schema) IsEmpty() bool {
	return len(s) == 0
}

// Contains reports whether column is part of the schema.
func (s Schema) Contains(column string) bool {
	for _, c := range s {
		if c == column {
			return true
		}
	}
	return false
}

// Clone returns a copy that callers may keep after the index moves on.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Align lays doc out in schema column order. Columns the document does not
// carry are filled with the empty string. Fields outside the schema are
// rejected with ERR_402_SCHEMA_MISMATCH.
func (s Schema) Align(doc Document) ([]string, error) {
	var unknown []string
	for _, f := range doc {
		if !s.Contains(f.Name) {
			unknown = append(unknown, f.Name)
		}
	}
	if len(unknown) > 0 {
		return nil, serrors.New(serrors.ErrCodeSchemaMismatch,
			fmt.Sprintf("fields not in schema: %s", strings.Join(unknown, ", ")), nil).
			WithDetail("unknown_fields", strings.Join(unknown, ",")).
			WithDetail("schema", strings.Join(s, ","))
	}

	values := make([]string, len(s))
	for i, column := range s {
		values[i], _ = doc.Get(column)
	}
	return values, nil
}

// ValidateIndexName validates an index name.
// Valid names contain only letters, numbers, hyphens, and underscores.
func ValidateIndexName(name string) error {
	switch {
	case name == "":
		return serrors.New(serrors.ErrCodeInvalidIndexName, "index name cannot be empty", nil)
	case len(name) > maxIndexNameLength:
		return serrors.New(serrors.ErrCodeInvalidIndexName,
			fmt.Sprintf("index name too long (max %d chars)", maxIndexNameLength), nil)
	case !validIndexNamePattern.MatchString(name):
		return serrors.New(serrors.ErrCodeInvalidIndexName,
			"index name can only contain letters, numbers, hyphens, and underscores", nil).
			WithDetail("index", name)
	}
	return nil
}
