// Package xmltree parses XML into a small element tree and looks elements up
// by local name, ignoring namespace prefixes and ancestor paths.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Node struct {
	Space    string
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Parent   *Node

	text strings.Builder
}

// Text returns the character data directly under n, without descendants.
func (n *Node) Text() string {
	return n.text.String()
}

// Parse reads a single well formed document. The input is expected to be
// text already decoded to UTF-8, so any declared encoding is ignored.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Space: t.Name.Space, Name: t.Name.Local, Attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("extra content after root element %q", root.Name)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(strings.TrimSpace(string(t))) > 0 {
					return nil, errors.New("character data outside of root element")
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// FindFirst returns the first element in document order, n included, whose
// local name is name.
func (n *Node) FindFirst(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindFirst(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every element in document order, n included, whose local
// name is name.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(e *Node) {
		if e.Name == name {
			out = append(out, e)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// Child returns the first immediate child with the given local name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the trimmed text of the first immediate child named name.
func (n *Node) ChildText(name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return strings.TrimSpace(c.Text()), true
}

// FirstText returns the trimmed text of FindFirst(name).
func (n *Node) FirstText(name string) (string, bool) {
	f := n.FindFirst(name)
	if f == nil {
		return "", false
	}
	return strings.TrimSpace(f.Text()), true
}
