package schema

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return logg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables", "users.yml"), `
table: users
description: registered players
columns:
  - name: id
    type: uuid
    role: PK
  - name: city
    type: text
    description: home city
business_rules:
  - exclude rows where deleted_at is set
`)
	writeFile(t, filepath.Join(dir, "glossary.yml"), `
active user: logged in within 30 days
`)
	writeFile(t, filepath.Join(dir, "examples", "cities.yml"), `
question: which cities have the most users
sql: SELECT city, count(*) FROM users GROUP BY city ORDER BY 2 DESC
`)

	docs, err := NewLoader(dir, testLogger()).LoadAll()
	require.NoError(t, err)

	require.Contains(t, docs.Tables, "users")
	assert.Len(t, docs.Tables["users"].Columns, 2)
	assert.Equal(t, "logged in within 30 days", docs.Glossary["active user"])
	require.Len(t, docs.Examples, 1)
	assert.Contains(t, docs.Examples[0].SQL, "GROUP BY city")
}

func TestLoader_MissingSectionsAreSkipped(t *testing.T) {
	docs, err := NewLoader(t.TempDir(), testLogger()).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, docs.Tables)
	assert.Empty(t, docs.Glossary)
	assert.Empty(t, docs.Examples)
}

func TestLoader_UnparseableTableFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables", "broken.yml"), "{{not yaml")

	_, err := NewLoader(dir, testLogger()).LoadAll()
	assert.Error(t, err)
}

func TestLoader_TableWithoutNameSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables", "anon.yml"), "description: no table key")

	docs, err := NewLoader(dir, testLogger()).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, docs.Tables)
}

func TestPromptContext(t *testing.T) {
	docs := &Docs{
		Tables: map[string]Table{
			"users": {
				Name:        "users",
				Description: "registered players",
				Columns: []Column{
					{Name: "id", Type: "uuid", Role: "PK"},
					{Name: "city", Type: "text", BusinessNotes: "free text, not normalized"},
				},
				BusinessRules: []string{"exclude rows where deleted_at is set"},
			},
		},
		Glossary: map[string]string{"active user": "logged in within 30 days"},
		Examples: []Example{{Question: "how many users", SQL: "SELECT count(*) FROM users"}},
	}

	out := docs.PromptContext()
	assert.Contains(t, out, "users: registered players")
	assert.Contains(t, out, "- id (uuid) [PK]")
	assert.Contains(t, out, "free text, not normalized")
	assert.Contains(t, out, "rule: exclude rows where deleted_at is set")
	assert.Contains(t, out, "active user: logged in within 30 days")
	assert.Contains(t, out, "SELECT count(*) FROM users")
}

func TestPromptContextEmpty(t *testing.T) {
	docs := &Docs{}
	assert.Equal(t, "No schema documentation available.", docs.PromptContext())
}
