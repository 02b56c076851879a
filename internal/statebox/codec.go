package statebox

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	sberr "git.home.luguber.info/inful/statebox/internal/errors"
)

// Encode serializes a state document to YAML. Multi-line task results are
// rendered in literal block style so embedded log output stays readable in
// diffs; everything else uses default scalar style.
func Encode(doc *StateDocument) (string, error) {
	var node yaml.Node
	if err := node.Encode(doc); err != nil {
		return "", sberr.Wrap(err, sberr.KindBackend, "encode state document")
	}
	styleMultilineResults(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		_ = enc.Close()
		return "", sberr.Wrap(err, sberr.KindBackend, "encode state document")
	}
	if err := enc.Close(); err != nil {
		return "", sberr.Wrap(err, sberr.KindBackend, "encode state document")
	}
	return buf.String(), nil
}

// Decode parses a YAML state document.
func Decode(content string) (*StateDocument, error) {
	var doc StateDocument
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, sberr.Wrap(err, sberr.KindBackend, "decode state document")
	}
	if doc.SchemaVersion == "" {
		return nil, sberr.New(sberr.KindBackend, "decode state document: missing schemaVersion")
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, sberr.Newf(sberr.KindBackend, "decode state document: unsupported schemaVersion %q", doc.SchemaVersion)
	}
	if doc.Metadata == nil {
		doc.Metadata = Metadata{}
	}
	normalizeTimes(&doc)
	return &doc, nil
}

// styleMultilineResults walks the node tree and applies literal block style
// to every multi-line "result" scalar under a task mapping.
func styleMultilineResults(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Value == "result" && val.Kind == yaml.ScalarNode && strings.Contains(val.Value, "\n") {
				val.Style = yaml.LiteralStyle
			}
			styleMultilineResults(val)
		}
		return
	}
	for _, c := range n.Content {
		styleMultilineResults(c)
	}
}

// normalizeTimes converts parsed timestamps to UTC so documents compare
// structurally equal across encode/decode cycles regardless of the zone
// the file was written in.
func normalizeTimes(doc *StateDocument) {
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	for i := range doc.Tasks {
		if ts := doc.Tasks[i].StartedAt; ts != nil {
			u := ts.UTC()
			doc.Tasks[i].StartedAt = &u
		}
		if ts := doc.Tasks[i].CompletedAt; ts != nil {
			u := ts.UTC()
			doc.Tasks[i].CompletedAt = &u
		}
	}
	for i := range doc.Issues {
		doc.Issues[i].ReportedAt = doc.Issues[i].ReportedAt.UTC()
		if ts := doc.Issues[i].ResolvedAt; ts != nil {
			u := ts.UTC()
			doc.Issues[i].ResolvedAt = &u
		}
	}
}
