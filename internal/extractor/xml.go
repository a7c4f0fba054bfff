package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"sqlguard/internal/model"
)

// XMLMapperExtractor extracts statements from MyBatis-style mapper files.
// Statement bodies keep their dynamic markup (if/foreach/where/choose)
// verbatim so variant generation can expand them later.
type XMLMapperExtractor struct {
}

func NewXMLMapperExtractor() *XMLMapperExtractor {
	return &XMLMapperExtractor{}
}

var includeRe = regexp.MustCompile(`<include\s+refid="([^"]+)"\s*(?:/>|>\s*</include>)`)

func (e *XMLMapperExtractor) Extract(filePath string, content []byte) ([]*model.SqlContext, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	type rawStatement struct {
		id   string
		typ  model.CommandType
		body string
		line int
	}
	var (
		namespace  string
		statements []rawStatement
		fragments  = make(map[string]string)
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse mapper %s: %w", filePath, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch strings.ToLower(se.Name.Local) {
		case "mapper":
			namespace = attrValue(se, "namespace")

		case "select", "insert", "update", "delete":
			id := attrValue(se, "id")
			body, err := rawInner(dec, se.Name)
			if err != nil {
				return nil, fmt.Errorf("parse mapper %s statement %q: %w", filePath, id, err)
			}
			statements = append(statements, rawStatement{
				id:   id,
				typ:  commandTypeForTag(se.Name.Local),
				body: body,
				line: 1 + bytes.Count(content[:offset], []byte{'\n'}),
			})

		case "sql":
			id := attrValue(se, "id")
			body, err := rawInner(dec, se.Name)
			if err != nil {
				return nil, fmt.Errorf("parse mapper %s fragment %q: %w", filePath, id, err)
			}
			fragments[id] = body
		}
	}

	contexts := make([]*model.SqlContext, 0, len(statements))
	for _, st := range statements {
		statementID := st.id
		if namespace != "" {
			statementID = namespace + "." + st.id
		}
		contexts = append(contexts, &model.SqlContext{
			SQL:         resolveIncludes(st.body, fragments),
			Type:        st.typ,
			StatementID: statementID,
			Location:    model.Location{FilePath: filePath, Line: st.line},
		})
	}
	return contexts, nil
}

// rawInner re-serializes everything up to the matching end tag. Dynamic
// directive tags survive as markup; comments and processing instructions
// are dropped.
func rawInner(dec *xml.Decoder, open xml.Name) (string, error) {
	var sb strings.Builder
	depth := 1
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("unclosed <%s>: %w", open.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sb.WriteString("<")
			sb.WriteString(t.Name.Local)
			for _, a := range t.Attr {
				sb.WriteString(" ")
				sb.WriteString(a.Name.Local)
				sb.WriteString(`="`)
				sb.WriteString(escapeAttr(a.Value))
				sb.WriteString(`"`)
			}
			sb.WriteString(">")
		case xml.EndElement:
			depth--
			if depth == 0 {
				return sb.String(), nil
			}
			sb.WriteString("</")
			sb.WriteString(t.Name.Local)
			sb.WriteString(">")
		case xml.CharData:
			sb.Write(t)
		}
	}
}

// resolveIncludes substitutes <include refid="..."/> with the referenced
// fragment, bounded so mutually recursive fragments cannot loop forever.
func resolveIncludes(body string, fragments map[string]string) string {
	for i := 0; i < 5 && includeRe.MatchString(body); i++ {
		body = includeRe.ReplaceAllStringFunc(body, func(m string) string {
			ref := includeRe.FindStringSubmatch(m)[1]
			if frag, ok := fragments[ref]; ok {
				return frag
			}
			return ""
		})
	}
	return body
}

func attrValue(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func escapeAttr(v string) string {
	v = strings.ReplaceAll(v, "&", "&amp;")
	v = strings.ReplaceAll(v, "<", "&lt;")
	v = strings.ReplaceAll(v, `"`, "&quot;")
	return v
}

func commandTypeForTag(tag string) model.CommandType {
	switch strings.ToLower(tag) {
	case "select":
		return model.CommandSelect
	case "insert":
		return model.CommandInsert
	case "update":
		return model.CommandUpdate
	case "delete":
		return model.CommandDelete
	default:
		return model.CommandUnknown
	}
}
