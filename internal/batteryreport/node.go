// Package batteryreport parses battery report documents and extracts their records.
//
// A document is first parsed into a generic element tree (Node). Records are then
// extracted from the tree under a given namespace, substituting defined defaults for
// anything the document does not provide.
package batteryreport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrParse is returned when a document is not well-formed XML.
var ErrParse = errors.New("battery report is not a valid XML document")

// Node is an element of a parsed document.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Node     `xml:",any"`
}

// Parse reads a whole XML document from r and returns its root element.
//
// Documents are UTF-8 unless they declare another encoding. UTF-16 documents need a
// byte order mark.
// Invalid UTF-8, any syntax error, an empty document or content after the root element
// returns ErrParse.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	dec.CharsetReader = charsetReader

	var root Node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrParse)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if err := checkTrailing(dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return &root, nil
}

// ParseFile parses the document stored at path.
// Failing to read the file is not a parse failure and is returned as is.
func ParseFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// checkTrailing makes sure only whitespace, comments and processing instructions follow the root element.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return fmt.Errorf("unexpected element %q after the root element", t.Name.Local)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("unexpected text after the root element")
			}
		}
	}
}

// charsetReader handles the encodings a document may declare.
// The input is already UTF-8 when it started with a UTF-16 byte order mark.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "utf-16", "utf-16le", "utf-16be", "unicode":
		return input, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported document encoding %q: %v", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Child returns the first direct child of n named local in namespace space, or nil.
func (n *Node) Child(space, local string) *Node {
	if n == nil {
		return nil
	}
	for i := range n.Children {
		if n.Children[i].XMLName.Space == space && n.Children[i].XMLName.Local == local {
			return &n.Children[i]
		}
	}
	return nil
}

// ChildrenNamed returns all direct children of n named local in namespace space, in document order.
func (n *Node) ChildrenNamed(space, local string) []*Node {
	if n == nil {
		return nil
	}
	var children []*Node
	for i := range n.Children {
		if n.Children[i].XMLName.Space == space && n.Children[i].XMLName.Local == local {
			children = append(children, &n.Children[i])
		}
	}
	return children
}

// ChildText returns the text of the first direct child named local in namespace space.
// A missing child returns an empty string.
func (n *Node) ChildText(space, local string) string {
	c := n.Child(space, local)
	if c == nil {
		return ""
	}
	return c.Text
}
