package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is an immutable JSON object from the metadata tree. Field order
// and fields the builder does not know about survive unchanged; only the
// fields replaced through WithLinks/WithTitle differ in the output.
type Document struct {
	raw []byte
}

// ParseDocument validates data as a JSON object and wraps it.
func ParseDocument(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, errors.New("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return Document{}, errors.New("top-level value is not an object")
	}
	return Document{raw: bytes.Clone(data)}, nil
}

// Get returns a top-level field using gjson path syntax.
func (d Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Title returns the document title, or "" when absent.
func (d Document) Title() string { return d.Get("title").String() }

// License returns the license field, or "" when absent.
func (d Document) License() string { return d.Get("license").String() }

// Links returns the document's links in order. A missing or non-array
// links field yields no links.
func (d Document) Links() []Link {
	res := d.Get("links")
	if !res.IsArray() {
		return nil
	}
	items := res.Array()
	links := make([]Link, 0, len(items))
	for _, item := range items {
		links = append(links, linkFromResult(item))
	}
	return links
}

// WithLinks returns a copy of d whose links field is replaced by links.
func (d Document) WithLinks(links []Link) (Document, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, l := range links {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := l.MarshalJSON()
		if err != nil {
			return Document{}, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')

	out, err := sjson.SetRawBytes(bytes.Clone(d.raw), "links", buf.Bytes())
	if err != nil {
		return Document{}, fmt.Errorf("failed to replace links: %w", err)
	}
	return Document{raw: out}, nil
}

// WithTitle returns a copy of d with its title replaced.
func (d Document) WithTitle(title string) (Document, error) {
	out, err := sjson.SetBytes(bytes.Clone(d.raw), "title", title)
	if err != nil {
		return Document{}, fmt.Errorf("failed to replace title: %w", err)
	}
	return Document{raw: out}, nil
}

// Bytes returns a copy of the document's JSON text as last read or modified.
func (d Document) Bytes() []byte { return bytes.Clone(d.raw) }

// Encode renders the document with the given indent (compact when empty),
// terminated by a newline. Re-encoding an encoded document is a no-op.
func (d Document) Encode(indent string) ([]byte, error) {
	src := bytes.TrimRight(d.raw, " \t\r\n")
	var buf bytes.Buffer
	var err error
	if indent == "" {
		err = json.Compact(&buf, src)
	} else {
		err = json.Indent(&buf, src, "", indent)
	}
	if err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Value decodes the document into generic Go values, for policy input.
func (d Document) Value() (map[string]interface{}, error) {
	var v map[string]interface{}
	if err := json.Unmarshal(d.raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Link is one entry of a document's links array. Fields other than rel,
// href and title are carried in the raw form and written back untouched.
type Link struct {
	rel      string
	href     string
	title    string
	hasTitle bool
	raw      []byte
}

type linkJSON struct {
	Rel   string `json:"rel,omitempty"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
}

// NewLink builds a fresh link. An empty title is omitted from the output.
func NewLink(rel, href, title string) Link {
	raw, _ := json.Marshal(linkJSON{Rel: rel, Href: href, Title: title})
	return Link{rel: rel, href: href, title: title, hasTitle: title != "", raw: raw}
}

// ParseLink decodes a single link object.
func ParseLink(data []byte) (Link, error) {
	if !gjson.ValidBytes(data) {
		return Link{}, errors.New("invalid JSON")
	}
	return linkFromResult(gjson.ParseBytes(data)), nil
}

func linkFromResult(r gjson.Result) Link {
	title := r.Get("title")
	return Link{
		rel:      r.Get("rel").String(),
		href:     r.Get("href").String(),
		title:    title.String(),
		hasTitle: title.Exists(),
		raw:      []byte(r.Raw),
	}
}

// Rel returns the link relation.
func (l Link) Rel() string { return l.rel }

// Href returns the link target as written in the document.
func (l Link) Href() string { return l.href }

// Title returns the link title, or "" when absent.
func (l Link) Title() string { return l.title }

// HasTitle reports whether the link carries a title field.
func (l Link) HasTitle() bool { return l.hasTitle }

// String returns the raw JSON of the link.
func (l Link) String() string { return string(l.raw) }

// MarshalJSON returns the link exactly as it was read, or as built by NewLink.
func (l Link) MarshalJSON() ([]byte, error) {
	if len(l.raw) == 0 {
		return json.Marshal(linkJSON{Rel: l.rel, Href: l.href, Title: l.title})
	}
	return bytes.Clone(l.raw), nil
}
