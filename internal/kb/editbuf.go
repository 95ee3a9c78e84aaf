package kb

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Serialize renders r as an edit buffer: the metadata as a YAML block
// between two "---" lines, followed by the message verbatim. The revision
// and the message never appear in the metadata.
//
// Multi-line strings are written double quoted so no metadata line can be
// mistaken for a delimiter.
func Serialize(r *Record) (string, error) {
	meta := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value interface{}) error {
		var v yaml.Node
		if err := v.Encode(value); err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		meta.Content = append(meta.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, &v)
		return nil
	}

	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	known := map[string]interface{}{
		fieldID:       r.ID,
		fieldContext:  r.Context,
		fieldCreated:  r.Created,
		fieldHostname: r.Hostname,
		fieldTags:     tags,
		fieldUser:     r.User,
	}
	for _, k := range knownFields {
		if err := add(k, known[k]); err != nil {
			return "", err
		}
	}
	extra := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if !isKnownField(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := add(k, r.Extra[k]); err != nil {
			return "", err
		}
	}
	quoteMultiline(meta)

	out, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(out)
	b.WriteString(delimiter + "\n")
	b.WriteString(r.Message)
	return b.String(), nil
}

func quoteMultiline(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && strings.ContainsAny(n.Value, "\r\n") {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		quoteMultiline(c)
	}
}

// Parse applies an edited buffer to orig and returns the updated record.
// Only metadata keys present in the buffer replace fields; the message is
// always replaced. Keys with no Record field go to Extra. orig is not
// modified.
func Parse(orig *Record, buf string) (*Record, error) {
	lines := strings.Split(buf, "\n")
	start, end := -1, -1
	for i, line := range lines {
		if strings.TrimSpace(line) != delimiter {
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		end = i
		break
	}
	if end < 0 {
		return nil, ErrMalformedEditBuffer
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(strings.Join(lines[start+1:end], "\n")), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadataSyntax, err)
	}

	updated := orig.clone()
	if len(doc.Content) > 0 {
		meta := doc.Content[0]
		if meta.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: metadata must be a mapping", ErrInvalidMetadataSyntax)
		}
		for i := 0; i+1 < len(meta.Content); i += 2 {
			if err := applyField(orig, updated, meta.Content[i].Value, meta.Content[i+1]); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidMetadataSyntax, err)
			}
		}
	}
	updated.Rev = orig.Rev
	updated.Message = strings.Join(lines[end+1:], "\n")
	return updated, nil
}

func applyField(orig, r *Record, key string, value *yaml.Node) error {
	var target *string
	switch key {
	case fieldID:
		var id string
		if err := value.Decode(&id); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		if id != orig.ID {
			return fmt.Errorf("_id cannot be changed (was %q, got %q)", orig.ID, id)
		}
		return nil
	case fieldRev, fieldMessage:
		return fmt.Errorf("%s cannot be set in the metadata", key)
	case fieldTags:
		var tags []string
		if err := value.Decode(&tags); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		// An unchanged empty list keeps the original's nil or empty slice.
		if len(tags) == 0 && len(orig.Tags) == 0 {
			tags = orig.Tags
		}
		if tags == nil && orig.Tags != nil {
			tags = []string{}
		}
		r.Tags = tags
		return nil
	case fieldContext:
		target = &r.Context
	case fieldCreated:
		target = &r.Created
	case fieldHostname:
		target = &r.Hostname
	case fieldUser:
		target = &r.User
	}
	if target != nil {
		if err := value.Decode(target); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		return nil
	}

	var v interface{}
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	// Store what CouchDB will hand back.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s cannot be stored: %v", key, err)
	}
	var stored interface{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("%s: %v", key, err)
	}
	if r.Extra == nil {
		r.Extra = map[string]interface{}{}
	}
	r.Extra[key] = stored
	return nil
}
