// Package tags canonicalizes document tag inputs (flat strings or
// structured key-value pairs) into the two label forms recollex's bitmap
// names are built from, and serializes a document's tag set as the
// canonical JSON text stored in the docs table.
package tags

import "encoding/json"

// Label is one canonicalized tag, either "tag:<string>" flat or
// "tag:<k>=<v>" structured, stored without its "tag:" prefix — the prefix
// is added where a bitmap name is built.
type Label string

// Flat returns the canonical label for a bare string tag.
func Flat(s string) Label {
	return Label(s)
}

// KV returns the canonical label for a structured key-value tag.
func KV(k, v string) Label {
	return Label(k + "=" + v)
}

// BitmapName returns the Roaring bitmap name this label is stored under.
func (l Label) BitmapName() string {
	return "tag:" + string(l)
}

// ToJSON serializes a document's tag set as canonical JSON text, suitable
// for the docs.tags column. An empty set serializes to "[]".
func ToJSON(labels []Label) (string, error) {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	raw, err := json.Marshal(strs)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// FromJSON parses a docs.tags column value back into labels. An empty or
// malformed value yields an empty set rather than an error — tags are
// display/filter metadata, not an integrity-critical field.
func FromJSON(text string) []Label {
	if text == "" {
		return nil
	}
	var strs []string
	if err := json.Unmarshal([]byte(text), &strs); err != nil {
		return nil
	}
	labels := make([]Label, len(strs))
	for i, s := range strs {
		labels[i] = Label(s)
	}
	return labels
}
