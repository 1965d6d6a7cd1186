package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authorModel() *Model {
	return &Model{
		Name:  "author",
		Table: "authors",
		Fields: []Field{
			{Name: "id", Type: TypeInteger, PrimaryKey: true},
			{Name: "name", Type: TypeString, MaxLength: 100},
			{Name: "bio", Type: TypeText, Nullable: true},
		},
	}
}

func TestModel_Validate(t *testing.T) {
	require.NoError(t, authorModel().Validate())

	noPK := authorModel()
	noPK.Fields[0].PrimaryKey = false
	assert.True(t, errors.Is(noPK.Validate(), ErrNoPrimaryKey))

	twoPK := authorModel()
	twoPK.Fields[1].PrimaryKey = true
	assert.True(t, errors.Is(twoPK.Validate(), ErrMultiplePrimaryKeys))

	dup := authorModel()
	dup.Fields = append(dup.Fields, Field{Name: "name", Type: TypeText})
	assert.ErrorContains(t, dup.Validate(), "duplicate field")

	untyped := authorModel()
	untyped.Fields[2].Type = ""
	assert.ErrorContains(t, untyped.Validate(), "type is required")
}

func TestModel_PrimaryKey(t *testing.T) {
	m := authorModel()
	assert.Equal(t, "id", m.PrimaryKey().Name)
	assert.Equal(t, []string{"id", "name", "bio"}, m.FieldNames())

	f, ok := m.Field("bio")
	require.True(t, ok)
	assert.True(t, f.Nullable)

	_, ok = m.Field("missing")
	assert.False(t, ok)
}

func TestField_SQLType(t *testing.T) {
	tests := []struct {
		field Field
		want  string
	}{
		{Field{Type: TypeInteger}, "INTEGER"},
		{Field{Type: TypeBoolean}, "INTEGER"},
		{Field{Type: TypeString, MaxLength: 20}, "VARCHAR(20)"},
		{Field{Type: TypeText}, "TEXT"},
		{Field{Type: TypeNumeric, Scale: 2}, "TEXT"},
		{Field{Type: TypeNumeric}, "INTEGER"},
		{Field{Type: TypeDouble}, "REAL"},
		{Field{Type: TypeBlob}, "BLOB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.field.SQLType(), "type %s", tt.field.Type)
	}

	assert.True(t, Field{Type: TypeInteger, PrimaryKey: true}.IsAutoIncrement())
	assert.False(t, Field{Type: TypeUUID, PrimaryKey: true}.IsAutoIncrement())
	assert.False(t, Field{Type: TypeInteger}.IsAutoIncrement())
}

func TestRecord(t *testing.T) {
	m := authorModel()
	r := NewRecordFrom(m, map[string]any{"id": int64(7), "name": "A", "ignored": true})

	assert.Equal(t, int64(7), r.PK())
	assert.Equal(t, "A", r.Get("name"))
	assert.False(t, r.Has("ignored"))
	assert.False(t, r.Has("bio"))

	r.Set("bio", nil)
	assert.True(t, r.Has("bio"))

	vals := r.Values()
	vals["name"] = "changed"
	assert.Equal(t, "A", r.Get("name"), "Values must return a copy")
}

func TestParse(t *testing.T) {
	def, err := Parse([]byte(`
name: BlogPost
fields:
  - { name: id, type: integer, primary_key: true }
  - { name: title, type: string, max_length: 200 }
  - { name: published, type: boolean, default: false }
api:
  viewset: readonly
  pagination: page_number
  page_size: 10
  filters: [field, ordering]
  permissions:
    list: posts.view
`))
	require.NoError(t, err)

	assert.Equal(t, "blog_posts", def.Table)
	assert.Equal(t, "/blog-posts", def.API.Path)
	assert.Equal(t, "readonly", def.API.ViewSet)
	assert.Equal(t, 10, def.API.PageSize)
	assert.Equal(t, []string{"field", "ordering"}, def.API.Filters)
	assert.Equal(t, "posts.view", def.API.Permissions["list"])
	require.Len(t, def.Fields, 3)
	assert.Equal(t, 200, def.Fields[1].MaxLength)
	assert.Equal(t, false, def.Fields[2].Default)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no pk", "name: a\nfields: [{name: x, type: string}]", "no primary key"},
		{"bad viewset", "name: a\nfields: [{name: id, type: integer, primary_key: true}]\napi: {viewset: nope}", "api.viewset"},
		{"bad lookup", "name: a\nfields: [{name: id, type: integer, primary_key: true}]\napi: {lookup_field: slug}", "lookup_field"},
		{"bad path", "name: a\nfields: [{name: id, type: integer, primary_key: true}]\napi: {path: items}", "api.path"},
		{"bad yaml", "name: [", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.Mkdir(sub, 0o755))

	write := func(path, body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write(filepath.Join(dir, "author.yaml"), "name: author\nfields: [{name: id, type: integer, primary_key: true}]")
	write(filepath.Join(sub, "post.yml"), "name: post\nfields: [{name: id, type: integer, primary_key: true}]")
	write(filepath.Join(dir, "README.md"), "not a model")

	defs, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	names := []string{defs[0].Name, defs[1].Name}
	assert.ElementsMatch(t, []string{"author", "post"}, names)
}
