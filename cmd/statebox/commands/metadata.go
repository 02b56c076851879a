package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// MetaCmd groups the metadata subcommands.
type MetaCmd struct {
	Set MetaSetCmd `cmd:"" help:"Set metadata fields"`
	Get MetaGetCmd `cmd:"" help:"Read a metadata field"`
}

// MetaSetCmd implements 'meta set'. Values are parsed as YAML scalars, so
// numbers and booleans keep their type, and "key.sub=value" addresses one key
// inside a nested map.
type MetaSetCmd struct {
	Release string   `short:"r" required:"" help:"Release identifier"`
	Fields  []string `arg:"" help:"key=value pairs (dotted keys update nested maps)"`
}

func (m *MetaSetCmd) Run(_ *Global, root *CLI) error {
	updates, err := parseMetaFields(m.Fields)
	if err != nil {
		return err
	}

	box, closeBox, err := openStateBox(root, m.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	if err := box.UpdateMetadata(context.Background(), updates); err != nil {
		return err
	}
	fmt.Printf("updated %d field(s)\n", len(updates))
	return nil
}

func parseMetaFields(fields []string) (statebox.Metadata, error) {
	updates := statebox.Metadata{}
	for _, field := range fields {
		key, raw, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q, expected key=value", field)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		if outer, inner, nested := strings.Cut(key, "."); nested {
			existing, _ := updates[outer].(map[string]any)
			if existing == nil {
				existing = map[string]any{}
			}
			existing[inner] = value
			updates[outer] = existing
			continue
		}
		updates[key] = value
	}
	return updates, nil
}

// MetaGetCmd implements 'meta get'.
type MetaGetCmd struct {
	Release string `short:"r" required:"" help:"Release identifier"`
	Key     string `arg:"" help:"Metadata key"`
	Format  string `short:"f" default:"text" enum:"text,json" help:"Output format (text or json)"`
}

func (m *MetaGetCmd) Run(_ *Global, root *CLI) error {
	box, closeBox, err := openStateBox(root, m.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	value, ok, err := box.GetMetadata(context.Background(), m.Key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("metadata key %q not set for %s", m.Key, m.Release)
	}

	if m.Format == "json" {
		return printJSON(os.Stdout, map[string]any{m.Key: value})
	}
	fmt.Printf("%s: %v\n", m.Key, value)
	return nil
}
