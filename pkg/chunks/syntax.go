// pkg/chunks/syntax.go

package chunks

import (
	"context"
	"strconv"
	"strings"

	cerr "github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// LiteralToken replaces every string, character and numeric literal other
// than 0 and 1.
const LiteralToken = "LITERAL"

// VariablePrefix starts every canonical variable name.
const VariablePrefix = "VAR"

var literalTypes = map[string]bool{
	"string_literal":                 true,
	"verbatim_string_literal":        true,
	"raw_string_literal":             true,
	"character_literal":              true,
	"integer_literal":                true,
	"real_literal":                   true,
	"interpolated_string_expression": true,
}

var numericTypes = map[string]bool{
	"integer_literal": true,
	"real_literal":    true,
}

// Subtrees that never reach the canonical text.
var droppedTypes = map[string]bool{
	"comment":         true,
	"using_directive": true,
	"attribute_list":  true,
}

// Class members whose names are registered before any method body is seen.
var fieldLikeTypes = map[string]bool{
	"field_declaration":       true,
	"event_field_declaration": true,
	"property_declaration":    true,
	"indexer_declaration":     true,
	"event_declaration":       true,
	"delegate_declaration":    true,
}

type token struct {
	Text string
	// Variable is set on identifiers renamed to a canonical VAR name.
	Variable bool
}

type line struct {
	Tokens []token
	// Kind is the type of the smallest named syntax node spanning the line.
	Kind string
}

func (l line) text() string {
	texts := make([]string, len(l.Tokens))
	for i, t := range l.Tokens {
		texts[i] = t.Text
	}
	return strings.Join(texts, " ")
}

// canonicalFile is a source file reduced to one token list per non-empty
// line: comments, using directives and attributes dropped, literals and
// declared variable names anonymized, whitespace unified.
type canonicalFile struct {
	Lines []line
}

func (f *canonicalFile) texts() []string {
	out := make([]string, len(f.Lines))
	for i, l := range f.Lines {
		out[i] = l.text()
	}
	return out
}

// variables maps source names to canonical VAR names in registration order.
type variables map[string]string

func (v variables) clone() variables {
	out := make(variables, len(v))
	for k, name := range v {
		out[k] = name
	}
	return out
}

func (v variables) register(name string) {
	if name == "" {
		return
	}
	if _, ok := v[name]; !ok {
		v[name] = VariablePrefix + strconv.Itoa(len(v))
	}
}

func parseCSharp(ctx context.Context, code string) (*sitter.Node, []byte, error) {
	src := []byte(code)
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, cerr.Wrap(err, "parse C# source")
	}
	return tree.RootNode(), src, nil
}

// canonicalize parses code and rewrites it with the names in known plus the
// variables the file declares. It returns the extended name map.
func canonicalize(ctx context.Context, code string, known variables) (*canonicalFile, variables, error) {
	root, src, err := parseCSharp(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	names := known.clone()
	collectDeclarations(root, src, names)

	var toks []positioned
	emitTokens(root, src, names, &toks)

	return &canonicalFile{Lines: groupLines(root, toks)}, names, nil
}

func collectDeclarations(n *sitter.Node, src []byte, names variables) {
	if droppedTypes[n.Type()] || literalTypes[n.Type()] {
		return
	}
	for _, id := range declaredIdentifiers(n) {
		names.register(id.Content(src))
	}
	for _, child := range orderedChildren(n) {
		collectDeclarations(child, src, names)
	}
}

// orderedChildren returns the named children of n, with field-like members
// of a class body moved to the front.
func orderedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			children = append(children, c)
		}
	}

	parent := n.Parent()
	if n.Type() != "declaration_list" || parent == nil || parent.Type() != "class_declaration" {
		return children
	}

	ordered := make([]*sitter.Node, 0, len(children))
	for _, c := range children {
		if fieldLikeTypes[c.Type()] {
			ordered = append(ordered, c)
		}
	}
	for _, c := range children {
		if !fieldLikeTypes[c.Type()] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// declaredIdentifiers returns the identifier nodes n introduces as a local
// name: variables, parameters, foreach and catch variables, implicit lambda
// parameters and properties.
func declaredIdentifiers(n *sitter.Node) []*sitter.Node {
	switch n.Type() {
	case "variable_declarator":
		if id := fieldIdentifier(n, "name"); id != nil {
			return []*sitter.Node{id}
		}
		if id := firstIdentifier(n); id != nil {
			return []*sitter.Node{id}
		}
	case "parameter", "catch_declaration", "property_declaration":
		if id := fieldIdentifier(n, "name"); id != nil {
			return []*sitter.Node{id}
		}
		if id := lastIdentifier(n); id != nil {
			return []*sitter.Node{id}
		}
	case "foreach_statement":
		if id := fieldIdentifier(n, "left", "name"); id != nil {
			return []*sitter.Node{id}
		}
		if id := identifierBefore(n, "in"); id != nil {
			return []*sitter.Node{id}
		}
	case "lambda_expression":
		if id := fieldIdentifier(n, "parameters"); id != nil {
			return []*sitter.Node{id}
		}
		if first := n.NamedChild(0); isIdentifier(first) {
			return []*sitter.Node{first}
		}
	}
	return nil
}

// isIdentifier covers plain identifiers and the implicit lambda parameter
// alias some grammar versions produce.
func isIdentifier(n *sitter.Node) bool {
	return n != nil && (n.Type() == "identifier" || n.Type() == "implicit_parameter")
}

func fieldIdentifier(n *sitter.Node, fields ...string) *sitter.Node {
	for _, f := range fields {
		if c := n.ChildByFieldName(f); isIdentifier(c) {
			return c
		}
	}
	return nil
}

func firstIdentifier(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == "identifier" {
			return c
		}
	}
	return nil
}

func lastIdentifier(n *sitter.Node) *sitter.Node {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		if c := n.Child(i); c != nil && c.Type() == "identifier" {
			return c
		}
	}
	return nil
}

func identifierBefore(n *sitter.Node, keyword string) *sitter.Node {
	var prev *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		if c.Type() == keyword {
			if prev != nil && prev.Type() == "identifier" {
				return prev
			}
			return nil
		}
		prev = c
	}
	return nil
}

type positioned struct {
	token
	row        uint32
	start, end uint32
}

func emitTokens(n *sitter.Node, src []byte, names variables, out *[]positioned) {
	typ := n.Type()
	if droppedTypes[typ] {
		return
	}

	at := func(text string, variable bool) {
		*out = append(*out, positioned{
			token: token{Text: text, Variable: variable},
			row:   n.StartPoint().Row,
			start: n.StartByte(),
			end:   n.EndByte(),
		})
	}

	if literalTypes[typ] {
		text := n.Content(src)
		if numericTypes[typ] && (text == "0" || text == "1") {
			at(text, false)
			return
		}
		at(LiteralToken, false)
		return
	}

	if n.ChildCount() == 0 {
		text := n.Content(src)
		if strings.TrimSpace(text) == "" {
			return
		}
		if isIdentifier(n) {
			if canonical, ok := names[text]; ok {
				at(canonical, true)
				return
			}
		}
		at(text, false)
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			emitTokens(c, src, names, out)
		}
	}
}

func groupLines(root *sitter.Node, toks []positioned) []line {
	var lines []line
	for i := 0; i < len(toks); {
		j := i
		for j < len(toks) && toks[j].row == toks[i].row {
			j++
		}

		l := line{
			Tokens: make([]token, 0, j-i),
			Kind:   enclosingType(root, toks[i].start, toks[j-1].end),
		}
		for _, t := range toks[i:j] {
			l.Tokens = append(l.Tokens, t.token)
		}
		lines = append(lines, l)
		i = j
	}
	return lines
}

// enclosingType descends from root to the smallest named node covering the
// byte range [start, end) and returns its type.
func enclosingType(root *sitter.Node, start, end uint32) string {
	n := root
	for {
		var next *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c != nil && c.StartByte() <= start && c.EndByte() >= end {
				next = c
				break
			}
		}
		if next == nil {
			return n.Type()
		}
		n = next
	}
}
