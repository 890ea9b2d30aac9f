package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Table documents one warehouse table for prompt construction.
type Table struct {
	Name          string   `yaml:"table"`
	Description   string   `yaml:"description"`
	Columns       []Column `yaml:"columns"`
	BusinessRules []string `yaml:"business_rules"`
}

// Column documents one table column.
type Column struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Role          string `yaml:"role"`
	Description   string `yaml:"description"`
	BusinessNotes string `yaml:"business_notes"`
}

// Example is a curated question/SQL pair used as a few-shot example.
type Example struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

// Docs holds the warehouse schema documentation loaded from YAML files.
type Docs struct {
	Tables   map[string]Table
	Glossary map[string]string
	Examples []Example
}

// Loader reads schema documentation from a docs directory:
// tables/*.yml, glossary.yml and examples/*.yml.
type Loader struct {
	dir    string
	logger *logrus.Logger
}

// NewLoader creates a schema loader rooted at dir.
func NewLoader(dir string, logger *logrus.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// LoadAll loads every documentation file. Missing sections are logged
// and skipped; only unreadable YAML in a present file is an error.
func (l *Loader) LoadAll() (*Docs, error) {
	docs := &Docs{
		Tables:   make(map[string]Table),
		Glossary: make(map[string]string),
	}

	if err := l.loadTables(docs); err != nil {
		return nil, err
	}
	if err := l.loadGlossary(docs); err != nil {
		return nil, err
	}
	if err := l.loadExamples(docs); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"tables":   len(docs.Tables),
		"examples": len(docs.Examples),
	}).Info("Schema documentation loaded")
	return docs, nil
}

func (l *Loader) loadTables(docs *Docs) error {
	dir := filepath.Join(l.dir, "tables")
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to scan tables dir: %w", err)
	}
	if len(files) == 0 {
		l.logger.WithField("dir", dir).Warn("No table documentation found")
		return nil
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		var table Table
		if err := yaml.Unmarshal(data, &table); err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if table.Name == "" {
			l.logger.WithField("file", file).Warn("Table doc missing table name, skipped")
			continue
		}
		docs.Tables[table.Name] = table
	}
	return nil
}

func (l *Loader) loadGlossary(docs *Docs) error {
	file := filepath.Join(l.dir, "glossary.yml")
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.WithField("file", file).Warn("Glossary not found")
			return nil
		}
		return fmt.Errorf("failed to read glossary: %w", err)
	}
	if err := yaml.Unmarshal(data, &docs.Glossary); err != nil {
		return fmt.Errorf("failed to parse glossary: %w", err)
	}
	return nil
}

func (l *Loader) loadExamples(docs *Docs) error {
	dir := filepath.Join(l.dir, "examples")
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to scan examples dir: %w", err)
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		var example Example
		if err := yaml.Unmarshal(data, &example); err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		if example.Question != "" && example.SQL != "" {
			docs.Examples = append(docs.Examples, example)
		}
	}
	return nil
}

// PromptContext renders the documentation as a text block for SQL
// generation prompts: tables with columns, FK links and business rules.
func (d *Docs) PromptContext() string {
	if len(d.Tables) == 0 {
		return "No schema documentation available."
	}

	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("=== TABLES ===\n")
	for _, name := range names {
		table := d.Tables[name]
		fmt.Fprintf(&b, "\n%s: %s\n", table.Name, table.Description)
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
			if col.Role != "" {
				fmt.Fprintf(&b, " [%s]", col.Role)
			}
			if col.Description != "" {
				fmt.Fprintf(&b, ": %s", col.Description)
			}
			if col.BusinessNotes != "" {
				fmt.Fprintf(&b, " (%s)", col.BusinessNotes)
			}
			b.WriteByte('\n')
		}
		for _, rule := range table.BusinessRules {
			fmt.Fprintf(&b, "  rule: %s\n", rule)
		}
	}

	if len(d.Glossary) > 0 {
		b.WriteString("\n=== GLOSSARY ===\n")
		terms := make([]string, 0, len(d.Glossary))
		for term := range d.Glossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			fmt.Fprintf(&b, "%s: %s\n", term, d.Glossary[term])
		}
	}

	if len(d.Examples) > 0 {
		b.WriteString("\n=== EXAMPLE QUERIES ===\n")
		for _, ex := range d.Examples {
			fmt.Fprintf(&b, "\nQuestion: %s\nSQL:\n%s\n", ex.Question, ex.SQL)
		}
	}
	return b.String()
}
