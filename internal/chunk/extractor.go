package chunk

import (
	"strings"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// SymbolExtractor extracts symbol definitions and call-graph
// references from a parsed AST.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor creates a new symbol extractor using the default registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry creates a new symbol extractor with a custom registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract extracts every top-level symbol definition from the parsed tree.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}
	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	var symbols []*Symbol
	tree.Root.Walk(func(n *Node) bool {
		if sym := e.extractSymbolFromNode(n, source, config, tree.Language); sym != nil {
			symbols = append(symbols, sym)
		}
		return true
	})
	return symbols
}

// classifyNodeKind maps a grammar node type to the closed NodeKind
// enumeration for a given language config.
func classifyNodeKind(n *Node, config *LanguageConfig, language string) (store.NodeKind, bool) {
	switch {
	case language == "go" && n.Type == "type_declaration":
		return classifyGoTypeDecl(n), true
	case contains(config.FunctionTypes, n.Type):
		return store.NodeKindFunction, true
	case contains(config.MethodTypes, n.Type):
		return store.NodeKindMethod, true
	case contains(config.ClassTypes, n.Type):
		return store.NodeKindClass, true
	case contains(config.StructTypes, n.Type):
		return store.NodeKindStruct, true
	case contains(config.EnumTypes, n.Type):
		return store.NodeKindEnum, true
	case contains(config.TraitTypes, n.Type):
		return store.NodeKindTrait, true
	case contains(config.ImplTypes, n.Type):
		return store.NodeKindImpl, true
	case contains(config.ModuleTypes, n.Type):
		return store.NodeKindModule, true
	case contains(config.TypeAliasTypes, n.Type):
		return store.NodeKindTypeAlias, true
	case contains(config.ConstantTypes, n.Type):
		return store.NodeKindConstant, true
	case contains(config.VariableTypes, n.Type):
		return store.NodeKindConstant, true
	}
	return "", false
}

// classifyGoTypeDecl refines Go's single "type_declaration" node into
// struct, trait (interface), or type alias, by inspecting the
// underlying type_spec.
func classifyGoTypeDecl(n *Node) store.NodeKind {
	for _, child := range n.Children {
		if child.Type != "type_spec" {
			continue
		}
		for _, grandchild := range child.Children {
			switch grandchild.Type {
			case "struct_type":
				return store.NodeKindStruct
			case "interface_type":
				return store.NodeKindTrait
			}
		}
	}
	return store.NodeKindTypeAlias
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (e *SymbolExtractor) extractSymbolFromNode(n *Node, source []byte, config *LanguageConfig, language string) *Symbol {
	kind, found := classifyNodeKind(n, config, language)
	if !found {
		return e.extractSpecialSymbol(n, source, language)
	}

	name := e.extractName(n, source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Kind:       kind,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		Signature:  e.extractSignature(n, source, kind, language),
		DocComment: e.extractDocComment(n, source, language),
	}
}

// extractName extracts the name of a symbol-defining node.
func (e *SymbolExtractor) extractName(n *Node, source []byte, config *LanguageConfig, language string) string {
	switch language {
	case "go":
		return e.extractGoName(n, source)
	case "typescript", "tsx":
		return e.extractTypeScriptName(n, source)
	case "javascript", "jsx":
		return e.extractJavaScriptName(n, source)
	case "python":
		return e.extractPythonName(n, source)
	case "rust":
		return e.extractRustName(n, source)
	default:
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractGoName(n *Node, source []byte) string {
	switch n.Type {
	case "function_declaration":
		for _, child := range n.Children {
			if child.Type == "identifier" {
				return child.GetContent(source)
			}
		}
	case "method_declaration":
		for _, child := range n.Children {
			if child.Type == "field_identifier" {
				return child.GetContent(source)
			}
		}
	case "type_declaration":
		for _, child := range n.Children {
			if child.Type == "type_spec" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "type_identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	case "const_declaration":
		for _, child := range n.Children {
			if child.Type == "const_spec" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	case "var_declaration":
		for _, child := range n.Children {
			if child.Type == "var_spec" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	}
	return ""
}

func (e *SymbolExtractor) extractTypeScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	}

	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractJavaScriptName(n *Node, source []byte) string {
	if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
		for _, child := range n.Children {
			if child.Type == "variable_declarator" {
				for _, grandchild := range child.Children {
					if grandchild.Type == "identifier" {
						return grandchild.GetContent(source)
					}
				}
			}
		}
	}

	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

func (e *SymbolExtractor) extractPythonName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if child.Type == "identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractRustName extracts the name of a Rust item. impl_item has no
// name field of its own; its "qualified" name is the type it targets.
func (e *SymbolExtractor) extractRustName(n *Node, source []byte) string {
	if n.Type == "impl_item" {
		for _, child := range n.Children {
			if child.Type == "type_identifier" || child.Type == "generic_type" {
				return "impl " + child.GetContent(source)
			}
		}
		return "impl"
	}

	for _, child := range n.Children {
		if child.Type == "identifier" || child.Type == "type_identifier" {
			return child.GetContent(source)
		}
	}
	return ""
}

// extractSpecialSymbol handles JS/TS arrow functions and function
// expressions assigned to a variable, which tree-sitter does not
// surface as a distinct declaration node type.
func (e *SymbolExtractor) extractSpecialSymbol(n *Node, source []byte, language string) *Symbol {
	switch language {
	case "typescript", "tsx", "javascript", "jsx":
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			return e.extractJSVariableFunctionSymbol(n, source)
		}
	}
	return nil
}

func (e *SymbolExtractor) extractJSVariableFunctionSymbol(n *Node, source []byte) *Symbol {
	for _, child := range n.Children {
		if child.Type != "variable_declarator" {
			continue
		}

		var name string
		var hasFunction bool
		for _, grandchild := range child.Children {
			if grandchild.Type == "identifier" {
				name = grandchild.GetContent(source)
			}
			if grandchild.Type == "arrow_function" || grandchild.Type == "function" || grandchild.Type == "function_expression" {
				hasFunction = true
			}
		}

		if name != "" && hasFunction {
			content := n.GetContent(source)
			return &Symbol{
				Name:      name,
				Kind:      store.NodeKindFunction,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				Signature: e.extractFunctionSignature(content, "javascript"),
			}
		}
	}
	return nil
}

// extractDocComment looks at the single line immediately preceding a
// node for a line comment.
func (e *SymbolExtractor) extractDocComment(n *Node, source []byte, language string) string {
	if n.StartPoint.Row == 0 {
		return ""
	}

	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart <= 1 {
		return ""
	}

	prevLineEnd := lineStart - 1
	prevLineStart := prevLineEnd - 1
	for prevLineStart > 0 && source[prevLineStart-1] != '\n' {
		prevLineStart--
	}
	prevLine := strings.TrimSpace(string(source[prevLineStart:prevLineEnd]))

	switch language {
	case "go", "typescript", "tsx", "javascript", "jsx", "rust":
		if strings.HasPrefix(prevLine, "//") {
			return strings.TrimPrefix(prevLine, "//")
		}
	case "python":
		return ""
	}
	return ""
}

func (e *SymbolExtractor) extractSignature(n *Node, source []byte, kind store.NodeKind, language string) string {
	content := n.GetContent(source)
	if content == "" {
		return ""
	}

	switch kind {
	case store.NodeKindFunction, store.NodeKindMethod:
		return e.extractFunctionSignature(content, language)
	case store.NodeKindClass, store.NodeKindStruct, store.NodeKindTrait, store.NodeKindEnum, store.NodeKindImpl, store.NodeKindTypeAlias:
		return e.extractTypeSignature(content, language)
	}
	return ""
}

func (e *SymbolExtractor) extractFunctionSignature(content, language string) string {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	firstLine := strings.TrimSpace(lines[0])

	switch language {
	case "python":
		return firstLine
	default:
		if idx := strings.Index(firstLine, "{"); idx != -1 {
			return strings.TrimSpace(firstLine[:idx])
		}
		return firstLine
	}
}

func (e *SymbolExtractor) extractTypeSignature(content, language string) string {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	firstLine := strings.TrimSpace(lines[0])

	if idx := strings.Index(firstLine, "{"); idx != -1 {
		return strings.TrimSpace(firstLine[:idx])
	}
	return firstLine
}

// ExtractReferences walks the tree recording every call expression as
// a (caller, callee) edge, with the caller being the name of the
// nearest enclosing function/method (spec.md §3, §4.4). A call with no
// enclosing symbol records an empty CallerSymbol, i.e. an anonymous or
// top-level caller (spec.md §9).
func (e *SymbolExtractor) ExtractReferences(tree *Tree, source []byte) []*Reference {
	if tree == nil || tree.Root == nil {
		return nil
	}
	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return nil
	}

	var refs []*Reference
	var walk func(n *Node, enclosing string)
	walk = func(n *Node, enclosing string) {
		next := enclosing
		if kind, found := classifyNodeKind(n, config, tree.Language); found && (kind == store.NodeKindFunction || kind == store.NodeKindMethod) {
			if name := e.extractName(n, source, config, tree.Language); name != "" {
				next = name
			}
		}

		if contains(config.CallTypes, n.Type) {
			if callee := e.extractCallCallee(n, source, tree.Language); callee != "" {
				refs = append(refs, &Reference{
					Line:          int(n.StartPoint.Row) + 1,
					CallerSymbol:  enclosing,
					CalleeSymbol:  callee,
					ReferenceKind: store.ReferenceKindCall,
				})
			}
		}

		for _, child := range n.Children {
			walk(child, next)
		}
	}
	walk(tree.Root, "")

	return refs
}

// extractCallCallee extracts the callee name from a call-expression
// node. For a method call (a.b()) it returns the rightmost identifier,
// matching the callee-name-only granularity of spec.md's call graph.
func (e *SymbolExtractor) extractCallCallee(n *Node, source []byte, language string) string {
	if len(n.Children) == 0 {
		return ""
	}
	callee := n.Children[0]

	switch callee.Type {
	case "identifier", "field_identifier", "type_identifier":
		return callee.GetContent(source)
	case "selector_expression", "member_expression", "field_expression", "attribute":
		// a.b(...): use the last identifier-like child as the callee name.
		var last string
		for _, c := range callee.Children {
			switch c.Type {
			case "identifier", "field_identifier", "property_identifier":
				last = c.GetContent(source)
			}
		}
		return last
	}
	return ""
}
