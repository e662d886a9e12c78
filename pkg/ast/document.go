package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ambiguity is an upstream-frontend annotation carried through the
// pipeline untouched; the backend never interprets it.
type Ambiguity struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Default  int      `json:"default"`
}

// Document is the versioned Core IL envelope. Documents are treated as
// immutable: every pass that changes anything returns a fresh document.
type Document struct {
	Version     string
	Body        []Stmt
	Ambiguities []Ambiguity
	SourceMap   map[string][]int
}

// DecodeRaw unmarshals JSON into the generic representation the
// validator walks. Numbers stay json.Number so integers survive intact.
func DecodeRaw(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return raw, nil
}

// DecodeDocument parses a JSON document into the typed AST. Call the
// validator first; the decoder reports only the first shape problem it
// hits, the validator reports all of them.
func DecodeDocument(data []byte) (*Document, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	return FromRaw(raw)
}

// FromRaw builds the typed AST from an already-unmarshaled document.
func FromRaw(raw any) (*Document, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document must be an object")
	}
	doc := &Document{}
	doc.Version, _ = obj["version"].(string)
	if doc.Version == "" {
		return nil, fmt.Errorf("document missing version")
	}

	body, ok := obj["body"].([]any)
	if !ok {
		return nil, fmt.Errorf("document body must be a list")
	}
	doc.Body = make([]Stmt, 0, len(body))
	for i, raw := range body {
		stmt, err := decodeStmt(raw)
		if err != nil {
			return nil, fmt.Errorf("body[%d]: %w", i, err)
		}
		doc.Body = append(doc.Body, stmt)
	}

	if rawAmb, ok := obj["ambiguities"].([]any); ok {
		for i, item := range rawAmb {
			amb, err := decodeAmbiguity(item)
			if err != nil {
				return nil, fmt.Errorf("ambiguities[%d]: %w", i, err)
			}
			doc.Ambiguities = append(doc.Ambiguities, amb)
		}
	}

	if rawMap, ok := obj["source_map"].(map[string]any); ok {
		doc.SourceMap = make(map[string][]int, len(rawMap))
		for key, val := range rawMap {
			entries, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("source_map[%q] must be a list", key)
			}
			lines := make([]int, 0, len(entries))
			for _, entry := range entries {
				n, err := toInt(entry)
				if err != nil {
					return nil, fmt.Errorf("source_map[%q]: %w", key, err)
				}
				lines = append(lines, n)
			}
			doc.SourceMap[key] = lines
		}
	}
	return doc, nil
}

func decodeAmbiguity(raw any) (Ambiguity, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Ambiguity{}, fmt.Errorf("ambiguity must be an object")
	}
	amb := Ambiguity{}
	amb.Question, _ = obj["question"].(string)
	if opts, ok := obj["options"].([]any); ok {
		for _, opt := range opts {
			s, _ := opt.(string)
			amb.Options = append(amb.Options, s)
		}
	}
	n, err := toInt(obj["default"])
	if err != nil {
		return Ambiguity{}, fmt.Errorf("default: %w", err)
	}
	amb.Default = n
	return amb, nil
}

// Encode renders the document back to its canonical JSON form.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d.toRaw())
}

// EncodeIndent renders the document with two-space indentation, keys in
// stable order within each node.
func (d *Document) EncodeIndent() ([]byte, error) {
	return json.MarshalIndent(d.toRaw(), "", "  ")
}

func (d *Document) toRaw() map[string]any {
	body := make([]any, len(d.Body))
	for i, stmt := range d.Body {
		body[i] = encodeNode(stmt)
	}
	raw := map[string]any{
		"version": d.Version,
		"body":    body,
	}
	if len(d.Ambiguities) > 0 {
		ambs := make([]any, len(d.Ambiguities))
		for i, amb := range d.Ambiguities {
			opts := make([]any, len(amb.Options))
			for j, opt := range amb.Options {
				opts[j] = opt
			}
			ambs[i] = map[string]any{
				"question": amb.Question,
				"options":  opts,
				"default":  amb.Default,
			}
		}
		raw["ambiguities"] = ambs
	}
	if d.SourceMap != nil {
		sm := make(map[string]any, len(d.SourceMap))
		for key, lines := range d.SourceMap {
			entry := make([]any, len(lines))
			for j, line := range lines {
				entry[j] = line
			}
			sm[key] = entry
		}
		raw["source_map"] = sm
	}
	return raw
}

// Clone returns a deep copy sharing no nodes with the receiver.
func (d *Document) Clone() *Document {
	out := &Document{Version: d.Version}
	out.Body = make([]Stmt, len(d.Body))
	for i, stmt := range d.Body {
		cloned, err := decodeStmt(encodeNode(stmt))
		if err != nil {
			// encodeNode output always decodes; a failure here is a bug
			// in the encoder/decoder pair.
			panic(fmt.Sprintf("ast: clone round-trip failed: %v", err))
		}
		out.Body[i] = cloned
	}
	if d.Ambiguities != nil {
		out.Ambiguities = make([]Ambiguity, len(d.Ambiguities))
		for i, amb := range d.Ambiguities {
			copied := amb
			copied.Options = append([]string(nil), amb.Options...)
			out.Ambiguities[i] = copied
		}
	}
	if d.SourceMap != nil {
		out.SourceMap = make(map[string][]int, len(d.SourceMap))
		for key, lines := range d.SourceMap {
			out.SourceMap[key] = append([]int(nil), lines...)
		}
	}
	return out
}
