package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

func TestParseDocument_PreservesKeyOrder(t *testing.T) {
	// Given: a JSON object whose keys are not alphabetical
	body := []byte(`{"title":"Dune","body":"desert planet","author":"Herbert"}`)

	// When: parsing
	doc, err := ParseDocument(body)

	// Then: fields come back in encounter order
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "body", "author"}, doc.Names())
	v, ok := doc.Get("body")
	assert.True(t, ok)
	assert.Equal(t, "desert planet", v)
}

func TestParseDocument_RendersScalarsAsText(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"n": 42, "f": 1.5, "b": true, "z": null, "o": {"a": [1, 2]}, "s": "x\"y"}`))
	require.NoError(t, err)

	m := doc.Map()
	assert.Equal(t, "42", m["n"])
	assert.Equal(t, "1.5", m["f"])
	assert.Equal(t, "true", m["b"])
	assert.Equal(t, "", m["z"])
	assert.Equal(t, `{"a":[1,2]}`, m["o"])
	assert.Equal(t, `x"y`, m["s"])
}

func TestParseDocument_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"a":"1","b":"2","a":"3"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, doc.Names())
	v, _ := doc.Get("a")
	assert.Equal(t, "3", v)
}

func TestParseDocument_EmptyObject(t *testing.T) {
	doc, err := ParseDocument([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.True(t, Infer(doc).IsEmpty())
}

func TestParseDocument_RejectsNonObjects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[{"a":"b"}]`},
		{"string", `"hello"`},
		{"broken", `{"a":`},
		{"trailing", `{"a":"b"} {"c":"d"}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, serrors.ErrInvalidDocument))
		})
	}
}

func TestFromValue_SortsMapKeys(t *testing.T) {
	doc, err := FromValue(map[string]any{"title": "Dune", "body": "desert"})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "title"}, doc.Names())
}

func TestInfer_FieldEncounterOrder(t *testing.T) {
	doc := NewDocument("title", "Dune", "body", "desert planet")

	assert.Equal(t, Schema{"title", "body"}, Infer(doc))
}

func TestSchema_Align(t *testing.T) {
	s := Schema{"title", "body", "author"}

	tests := []struct {
		name    string
		doc     Document
		want    []string
		wantErr bool
	}{
		{
			name: "exact fields, different order",
			doc:  NewDocument("body", "b", "author", "a", "title", "t"),
			want: []string{"t", "b", "a"},
		},
		{
			name: "missing fields padded",
			doc:  NewDocument("title", "t"),
			want: []string{"t", "", ""},
		},
		{
			name:    "unknown field rejected",
			doc:     NewDocument("title", "t", "isbn", "123"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Align(tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, serrors.ErrSchemaMismatch))
				assert.Contains(t, err.Error(), "isbn")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_CloneIsIndependent(t *testing.T) {
	s := Schema{"a", "b"}
	c := s.Clone()
	c[0] = "z"

	assert.Equal(t, "a", s[0])
	assert.Nil(t, Schema(nil).Clone())
}

func TestValidateIndexName(t *testing.T) {
	valid := []string{"books", "my-index", "idx_2", "A"}
	for _, name := range valid {
		assert.NoError(t, ValidateIndexName(name), name)
	}

	invalid := []string{"", "../etc", "a/b", "has space", "dot.name", string(make([]byte, 65))}
	for _, name := range invalid {
		err := ValidateIndexName(name)
		require.Error(t, err, name)
		assert.Equal(t, serrors.ErrCodeInvalidIndexName, serrors.GetCode(err))
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"desert", "desert"},
		{"desert, planet!", "desert planet"},
		{"  spaced   out  ", "spaced out"},
		{`"quoted" OR -minus`, "quoted OR minus"},
		{"café au lait", "café au lait"},
		{"snake_case", "snake_case"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.raw))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Terms("a b"))
	assert.Empty(t, Terms(""))
}
