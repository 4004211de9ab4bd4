package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"

	"github.com/djb258/client-sub001/internal/errs"
)

// document mirrors the YAML layout. Tables and spokes stay as nodes so their
// declared order survives decoding.
type document struct {
	Version          string                 `yaml:"version" validate:"required"`
	Schema           string                 `yaml:"schema" validate:"required"`
	TotalTables      int                    `yaml:"total_tables"`
	UniversalJoinKey string                 `yaml:"universal_join_key"`
	SpineTable       string                 `yaml:"spine_table"`
	TypeMap          map[string]TypeMapping `yaml:"type_map"`
	Spokes           yaml.Node              `yaml:"spokes"`
	Tables           yaml.Node              `yaml:"tables"`
}

type spokeDoc struct {
	Name      string   `yaml:"name"`
	Purpose   string   `yaml:"purpose"`
	Canonical string   `yaml:"canonical"`
	Error     string   `yaml:"error"`
	Tables    []string `yaml:"tables"`
}

type tableDoc struct {
	Spoke            string      `yaml:"spoke"`
	LeafType         string      `yaml:"leaf_type"`
	Description      string      `yaml:"description"`
	PK               string      `yaml:"pk"`
	FK               []string    `yaml:"fk"`
	WriteRules       *WriteRules `yaml:"write_rules"`
	UpdatableColumns []string    `yaml:"updatable_columns"`
	Columns          []columnDoc `yaml:"columns"`
}

type columnDoc struct {
	Name        string `yaml:"name" validate:"required"`
	Type        string `yaml:"type" validate:"required"`
	Required    *bool  `yaml:"required" validate:"required"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
	AutoManaged bool   `yaml:"auto_managed"`
	Check       string `yaml:"check"`
	TSOverride  string `yaml:"ts_override"`
	ZodOverride string `yaml:"zod_override"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and validates the registry at path. Every call re-reads the
// file; nothing is cached.
func Load(path string) (*ColumnRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindRegistryLoad, fmt.Sprintf("registry %s does not exist", path), err)
		}
		return nil, errs.Wrap(errs.ErrKindRegistryLoad, fmt.Sprintf("read registry %s", path), err)
	}
	return Parse(data, path)
}

// Parse decodes and validates registry YAML. source names the document in
// error messages.
func Parse(data []byte, source string) (*ColumnRegistry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindRegistryLoad, fmt.Sprintf("parse %s", source), err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, loadErr(source, "", err)
	}

	tables, err := decodeTables(&doc.Tables, source)
	if err != nil {
		return nil, err
	}
	spokes, err := decodeSpokes(&doc.Spokes, source)
	if err != nil {
		return nil, err
	}

	reg := &ColumnRegistry{
		Version:          doc.Version,
		Schema:           doc.Schema,
		TotalTables:      doc.TotalTables,
		UniversalJoinKey: doc.UniversalJoinKey,
		SpineTable:       doc.SpineTable,
		TypeMap:          doc.TypeMap,
		Spokes:           spokes,
		Tables:           tables,
		Source:           source,
	}
	if err := index(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// New assembles a registry from values and enforces the same invariants as
// Parse.
func New(version, schema string, tables []*TableSpec, spokes ...*Spoke) (*ColumnRegistry, error) {
	if strings.TrimSpace(version) == "" || strings.TrimSpace(schema) == "" {
		return nil, errs.New(errs.ErrKindRegistryLoad, "registry version and schema are required")
	}
	for _, t := range tables {
		for i, c := range t.Columns {
			if c.Name == "" || c.Type == "" {
				return nil, errs.Newf(errs.ErrKindRegistryLoad, "table %q column #%d: name and type are required", t.Name, i+1)
			}
		}
	}
	reg := &ColumnRegistry{Version: version, Schema: schema, Tables: tables, Spokes: spokes, Source: "<memory>"}
	if err := index(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// index enforces uniqueness and cross references and builds the lookup maps.
func index(reg *ColumnRegistry) error {
	if len(reg.Tables) == 0 {
		return errs.Newf(errs.ErrKindRegistryLoad, "%s declares no tables; refusing to treat an empty registry as valid", reg.Source)
	}

	reg.byName = make(map[string]*TableSpec, len(reg.Tables))
	for _, t := range reg.Tables {
		if _, dup := reg.byName[t.Name]; dup {
			return errs.Newf(errs.ErrKindRegistryLoad, "%s: duplicate table %q", reg.Source, t.Name)
		}
		reg.byName[t.Name] = t

		t.colIndex = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			if _, dup := t.colIndex[c.Name]; dup {
				return errs.Newf(errs.ErrKindRegistryLoad, "%s: duplicate column %q in table %q", reg.Source, c.Name, t.Name)
			}
			t.colIndex[c.Name] = i
		}
	}

	seenSpoke := make(map[string]bool, len(reg.Spokes))
	owner := make(map[string]string)
	for _, s := range reg.Spokes {
		if seenSpoke[s.ID] {
			return errs.Newf(errs.ErrKindRegistryLoad, "%s: duplicate spoke %q", reg.Source, s.ID)
		}
		seenSpoke[s.ID] = true
		for _, name := range s.Tables {
			if _, ok := reg.byName[name]; !ok {
				return errs.Newf(errs.ErrKindRegistryLoad, "%s: spoke %q references table %q which is not defined in tables", reg.Source, s.ID, name)
			}
			if prev, ok := owner[name]; ok {
				return errs.Newf(errs.ErrKindRegistryLoad, "%s: table %q is listed by spokes %q and %q", reg.Source, name, prev, s.ID)
			}
			owner[name] = s.ID
		}
	}
	return nil
}

func decodeTables(node *yaml.Node, source string) ([]*TableSpec, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errs.Newf(errs.ErrKindRegistryLoad, "%s:%d: tables must be a mapping of table name to spec", source, node.Line)
	}

	seen := make(map[string]int)
	tables := make([]*TableSpec, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value
		if name == "" {
			return nil, errs.Newf(errs.ErrKindRegistryLoad, "%s:%d: empty table name", source, key.Line)
		}
		if line, dup := seen[name]; dup {
			return nil, errs.Newf(errs.ErrKindRegistryLoad, "%s:%d: duplicate table %q (first declared on line %d)", source, key.Line, name, line)
		}
		seen[name] = key.Line

		var td tableDoc
		if err := val.Decode(&td); err != nil {
			return nil, errs.Wrap(errs.ErrKindRegistryLoad, fmt.Sprintf("%s: table %q", source, name), err)
		}

		t := &TableSpec{
			Name:             name,
			Spoke:            td.Spoke,
			LeafType:         td.LeafType,
			Description:      td.Description,
			PK:               td.PK,
			FK:               td.FK,
			WriteRules:       td.WriteRules,
			UpdatableColumns: td.UpdatableColumns,
			Columns:          make([]ColumnSpec, 0, len(td.Columns)),
		}
		for ci := range td.Columns {
			cd := &td.Columns[ci]
			if err := validate.Struct(cd); err != nil {
				return nil, loadErr(source, fmt.Sprintf("table %q column #%d (%s)", name, ci+1, cd.Name), err)
			}
			t.Columns = append(t.Columns, ColumnSpec{
				Name:        cd.Name,
				Type:        cd.Type,
				Required:    *cd.Required,
				Description: cd.Description,
				Default:     cd.Default,
				AutoManaged: cd.AutoManaged,
				Check:       cd.Check,
				TSOverride:  cd.TSOverride,
				ZodOverride: cd.ZodOverride,
			})
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func decodeSpokes(node *yaml.Node, source string) ([]*Spoke, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errs.Newf(errs.ErrKindRegistryLoad, "%s:%d: spokes must be a mapping of spoke id to spec", source, node.Line)
	}

	spokes := make([]*Spoke, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var sd spokeDoc
		if err := val.Decode(&sd); err != nil {
			return nil, errs.Wrap(errs.ErrKindRegistryLoad, fmt.Sprintf("%s: spoke %q", source, key.Value), err)
		}
		spokes = append(spokes, &Spoke{
			ID:        key.Value,
			Name:      sd.Name,
			Purpose:   sd.Purpose,
			Canonical: sd.Canonical,
			Error:     sd.Error,
			Tables:    sd.Tables,
		})
	}
	return spokes, nil
}

// loadErr turns validator output into a registry load error naming the
// missing fields.
func loadErr(source, where string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Wrap(errs.ErrKindRegistryLoad, source, err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	prefix := source
	if where != "" {
		prefix += ": " + where
	}
	return errs.Newf(errs.ErrKindRegistryLoad, "%s: missing required field(s): %s", prefix, strings.Join(missing, ", "))
}
