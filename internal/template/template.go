// Package template expands MyBatis-style dynamic SQL into a bounded set of
// concrete, parseable variants.
package template

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Kind identifies one directive node in a template tree.
type Kind int

const (
	KindText Kind = iota
	KindIf
	KindForeach
	KindWhere
	KindChoose
	KindWhen
	KindOtherwise
	KindOther // trim, set, bind and unrecognized tags: content inlined
)

// Node is one element of the directive tree.
type Node struct {
	Kind Kind
	Text string // KindText only

	Test string // if/when condition attribute, informational

	// foreach attributes
	Open      string
	Close     string
	Separator string

	Children []*Node
}

var dynamicTagRe = regexp.MustCompile(`(?i)<\s*(if|foreach|where|choose|when|otherwise|trim|set|bind)\b`)

// IsDynamic reports whether raw SQL text contains directive markup.
func IsDynamic(sql string) bool {
	return dynamicTagRe.MatchString(sql)
}

// ParseTemplate parses templated SQL into a directive tree. The text must be
// a well-formed XML fragment (the form mapper files carry it in); on failure
// the caller falls back to the literal text.
func ParseTemplate(raw string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader("<sql>" + raw + "</sql>"))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	// Consume the synthetic wrapper element.
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("template parse: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			break
		}
	}

	root := &Node{Kind: KindOther}
	if err := parseChildren(dec, root); err != nil {
		return nil, fmt.Errorf("template parse: %w", err)
	}
	return root, nil
}

func parseChildren(dec *xml.Decoder, parent *Node) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.CharData:
			text := string(t)
			if strings.TrimSpace(text) != "" {
				parent.Children = append(parent.Children, &Node{Kind: KindText, Text: text})
			}
		case xml.StartElement:
			child := newDirective(t)
			if err := parseChildren(dec, child); err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)
		case xml.EndElement:
			return nil
		}
	}
}

func newDirective(el xml.StartElement) *Node {
	n := &Node{}
	switch strings.ToLower(el.Name.Local) {
	case "if":
		n.Kind = KindIf
	case "foreach":
		n.Kind = KindForeach
		n.Separator = ","
	case "where":
		n.Kind = KindWhere
	case "choose":
		n.Kind = KindChoose
	case "when":
		n.Kind = KindWhen
	case "otherwise":
		n.Kind = KindOtherwise
	default:
		n.Kind = KindOther
	}
	for _, attr := range el.Attr {
		switch strings.ToLower(attr.Name.Local) {
		case "test":
			n.Test = attr.Value
		case "open":
			n.Open = attr.Value
		case "close":
			n.Close = attr.Value
		case "separator":
			n.Separator = attr.Value
		}
	}
	return n
}

var tagStripRe = regexp.MustCompile(`<[^>]*>`)

// Flatten strips directive markup from templated SQL, leaving the literal
// text. Used as the degraded single variant when the template itself cannot
// be parsed.
func Flatten(raw string) string {
	return strings.TrimSpace(tagStripRe.ReplaceAllString(raw, " "))
}
