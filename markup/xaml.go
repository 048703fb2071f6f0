package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"vsmrt/stream"
)

const (
	xamlNamespace = "http://schemas.microsoft.com/winfx/2006/xaml"
	// VisualStateManager.VisualStateGroups is the usual root of a visual
	// state group collection fragment.
	vsmGroupsElement = "VisualStateManager.VisualStateGroups"
)

// ParseXAML reads a markup fragment and produces its node list. Only the
// subset runtime data cares about is understood: elements, attributes,
// property elements, x: directives, conditional namespaces,
// {StaticResource}/{ThemeResource}/{x:Null} extensions and x:Load deferral.
func ParseXAML(r io.Reader) ([]Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charsetReader,
		Permissive:    false,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read markup: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("markup has no root element: %w", ErrMalformedNodes)
	}
	obj, err := parseElement(root)
	if err != nil {
		return nil, err
	}
	return obj.Nodes(), nil
}

// charsetReader leaves wide encodings alone, the XML decoder cannot read
// them raw so such input has been turned into UTF-8 already.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(l, "utf-16") || strings.HasPrefix(l, "utf-32") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

// ParseXAMLString is ParseXAML over a string.
func ParseXAMLString(s string) ([]Node, error) {
	return ParseXAML(strings.NewReader(s))
}

func parseElement(el *etree.Element) (*Object, error) {
	tag := el.Tag
	if el.FullTag() == vsmGroupsElement || tag == vsmGroupsElement {
		tag = TypeVisualStateGroupCollection.Name
	}
	obj := NewObject(TypeByName(tag))
	obj.Predicates = conditionalPredicates(el.NamespaceURI())

	var load string
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		var prop stream.PropertyRef
		if a.Space == "x" || a.NamespaceURI() == xamlNamespace {
			switch a.Key {
			case "Name":
				prop = DirectiveName
			case "Key":
				prop = DirectiveKey
			case "Uid":
				prop = DirectiveUid
			case "Load":
				load = a.Value
				continue
			default:
				return nil, fmt.Errorf("unsupported directive x:%s on %s: %w", a.Key, tag, ErrMalformedNodes)
			}
		} else {
			prop = MemberFromAttribute(obj.Type, a.Key)
		}
		m := &Member{Property: prop, Predicates: conditionalPredicates(a.NamespaceURI())}
		if ext, ok := parseExtension(a.Value); ok {
			if ext == nil {
				m.Values = []stream.Value{stream.NullValue()}
			} else {
				m.Objects = []*Object{ext}
			}
		} else {
			m.Values = []stream.Value{stream.StringValue(a.Value)}
		}
		obj.Members = append(obj.Members, m)
	}

	var content []*Object
	for _, child := range el.ChildElements() {
		if owner, name, ok := strings.Cut(child.Tag, "."); ok {
			m := &Member{Property: MemberFromAttribute(obj.Type, owner+"."+name)}
			if owner == obj.Type.Name {
				m.Property = MemberFromAttribute(obj.Type, name)
			}
			m.Predicates = conditionalPredicates(child.NamespaceURI())
			for _, gc := range child.ChildElements() {
				o, err := parseElement(gc)
				if err != nil {
					return nil, err
				}
				m.Objects = append(m.Objects, o)
			}
			if len(m.Objects) == 0 {
				if text := strings.TrimSpace(child.Text()); text != "" {
					m.Values = []stream.Value{stream.StringValue(text)}
				}
			}
			obj.Members = append(obj.Members, m)
			continue
		}
		o, err := parseElement(child)
		if err != nil {
			return nil, err
		}
		content = append(content, o)
	}
	if len(content) > 0 {
		obj.Add(ContentProperty(obj.Type), content...)
	} else if text := strings.TrimSpace(el.Text()); text != "" {
		obj.Set(ContentProperty(obj.Type), stream.StringValue(text))
	}

	if load == "" {
		return obj, nil
	}
	// x:Load wraps the element into a deferred element carrying its name
	deferred := NewObject(TypeDeferredElement)
	deferred.Predicates, obj.Predicates = obj.Predicates, nil
	if name := obj.Name(); name != "" {
		deferred.SetString(DirectiveName, name)
	}
	deferred.SetString(DirectiveLoad, load)
	deferred.Add(PropDeferredContent, obj)
	return deferred, nil
}

// parseExtension recognizes the markup extensions runtime data cares about.
// A nil object with ok set stands for {x:Null}.
func parseExtension(v string) (*Object, bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "{") || !strings.HasSuffix(v, "}") || strings.HasPrefix(v, "{}") {
		return nil, false
	}
	name, arg, _ := strings.Cut(strings.TrimSpace(v[1:len(v)-1]), " ")
	arg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(arg), "ResourceKey="))
	switch name {
	case "x:Null":
		return nil, true
	case TypeStaticResource.Name:
		return NewObject(TypeStaticResource).SetString(PropResourceKey, arg), true
	case TypeThemeResource.Name:
		return NewObject(TypeThemeResource).SetString(PropThemeResourceKey, arg), true
	}
	return nil, false
}

// conditionalPredicates extracts "?Predicate(args)" from a conditional
// namespace uri.
func conditionalPredicates(uri string) []stream.PredicateAndArgs {
	_, cond, ok := strings.Cut(uri, "?")
	if !ok || cond == "" {
		return nil
	}
	name, args, _ := strings.Cut(cond, "(")
	args = strings.TrimSuffix(args, ")")
	return []stream.PredicateAndArgs{{Predicate: stream.TypeRef{Name: name}, Args: args}}
}
