package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ArtemisMucaj/codesearch/internal/store"
)

// CodeChunkerOptions configures the code chunker behavior.
type CodeChunkerOptions struct {
	MaxChunkTokens int // Maximum tokens per chunk (default: DefaultMaxChunkTokens)
	OverlapTokens  int // Overlap between chunks when splitting (default: DefaultOverlapTokens)
}

// CodeChunker implements AST-aware code chunking using tree-sitter.
// Chunks are aligned to symbol boundaries (spec.md §3): one chunk per
// function/method/struct/trait/etc, split further only when a single
// symbol exceeds MaxChunkTokens.
type CodeChunker struct {
	parser    *Parser
	extractor *SymbolExtractor
	registry  *LanguageRegistry
	options   CodeChunkerOptions
}

// NewCodeChunker creates a new code chunker with default options.
func NewCodeChunker() *CodeChunker {
	return NewCodeChunkerWithOptions(CodeChunkerOptions{})
}

// NewCodeChunkerWithOptions creates a new code chunker with custom options.
func NewCodeChunkerWithOptions(opts CodeChunkerOptions) *CodeChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}

	registry := DefaultRegistry()
	return &CodeChunker{
		parser:    NewParserWithRegistry(registry),
		extractor: NewSymbolExtractorWithRegistry(registry),
		registry:  registry,
		options:   opts,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// Chunk splits a file into semantic chunks. IDs are left unset: the
// caller (internal/index) assigns the repository ID and finalizes each
// chunk's ID via ComputeChunkID once it is known.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	_, supported := c.registry.GetByName(file.Language)
	if !supported {
		return c.chunkByLines(file)
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return c.chunkByLines(file)
	}

	fileContext := c.extractFileContext(tree, file.Content, file.Language)
	fileContext = c.enrichContextWithFilePath(file.Path, file.Language, fileContext)

	symbolNodes := c.findSymbolNodes(tree, file.Language)
	if len(symbolNodes) == 0 {
		return nil, nil
	}

	refs := c.extractor.ExtractReferences(tree, file.Content)

	chunks := make([]*Chunk, 0, len(symbolNodes))
	now := time.Now()

	for _, node := range symbolNodes {
		nodeChunks := c.createChunksFromNode(node, tree, file, fileContext, now)
		for _, ch := range nodeChunks {
			ch.References = referencesWithinRange(refs, ch.StartLine, ch.EndLine)
		}
		chunks = append(chunks, nodeChunks...)
	}

	return chunks, nil
}

// referencesWithinRange returns the references whose call site falls
// within [startLine, endLine], i.e. the references originating from
// this chunk's symbol body.
func referencesWithinRange(refs []*Reference, startLine, endLine int) []*Reference {
	var out []*Reference
	for _, r := range refs {
		if r.Line >= startLine && r.Line <= endLine {
			out = append(out, r)
		}
	}
	return out
}

// symbolNodeInfo holds a symbol node with its extracted symbol info.
type symbolNodeInfo struct {
	node   *Node
	symbol *Symbol
}

// findSymbolNodes finds all top-level symbol-defining nodes.
func (c *CodeChunker) findSymbolNodes(tree *Tree, language string) []*symbolNodeInfo {
	config, ok := c.registry.GetByName(language)
	if !ok {
		return []*symbolNodeInfo{}
	}

	var symbolNodes []*symbolNodeInfo

	tree.Root.Walk(func(n *Node) bool {
		// JS/TS arrow functions and function expressions assigned to a
		// variable aren't a distinct grammar node; detect them first so
		// they're classified as functions rather than constants.
		if n.Type == "lexical_declaration" || n.Type == "variable_declaration" {
			if sym := c.extractor.extractJSVariableFunctionSymbol(n, tree.Source); sym != nil {
				symbolNodes = append(symbolNodes, &symbolNodeInfo{node: n, symbol: sym})
				return true
			}
		}

		kind, isSymbol := classifyNodeKind(n, config, language)
		if !isSymbol {
			return true
		}
		sym := c.extractSymbol(n, tree, kind, language)
		if sym != nil {
			symbolNodes = append(symbolNodes, &symbolNodeInfo{node: n, symbol: sym})
		}
		return true
	})

	return symbolNodes
}

// extractSymbol extracts symbol info from a node.
func (c *CodeChunker) extractSymbol(n *Node, tree *Tree, kind store.NodeKind, language string) *Symbol {
	config, _ := c.registry.GetByName(language)
	name := c.extractor.extractName(n, tree.Source, config, language)
	if name == "" {
		return nil
	}

	return &Symbol{
		Name:       name,
		Kind:       kind,
		StartLine:  int(n.StartPoint.Row) + 1,
		EndLine:    int(n.EndPoint.Row) + 1,
		DocComment: c.extractor.extractDocComment(n, tree.Source, language),
		Signature:  c.extractor.extractSignature(n, tree.Source, kind, language),
	}
}

// createChunksFromNode creates one or more chunks from a symbol node.
func (c *CodeChunker) createChunksFromNode(info *symbolNodeInfo, tree *Tree, file *FileInput, fileContext string, now time.Time) []*Chunk {
	node := info.node
	rawContent := string(tree.Source[node.StartByte:node.EndByte])

	rawContentWithDoc := rawContent
	if info.symbol.DocComment != "" {
		rawContentWithDoc = c.getRawContentWithDocComment(node, tree.Source, info.symbol.DocComment)
	}

	tokens := estimateTokens(rawContentWithDoc)
	if tokens <= c.options.MaxChunkTokens {
		return []*Chunk{c.createChunk(file, rawContentWithDoc, fileContext, info.symbol, now)}
	}

	return c.splitLargeSymbol(info, tree, file, fileContext, now)
}

// getRawContentWithDocComment gets raw content including a preceding doc comment.
func (c *CodeChunker) getRawContentWithDocComment(n *Node, source []byte, docComment string) string {
	lineStart := int(n.StartByte)
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}

	docLines := strings.Count(docComment, "\n") + 1
	for i := 0; i < docLines && lineStart > 0; i++ {
		lineStart--
		for lineStart > 0 && source[lineStart-1] != '\n' {
			lineStart--
		}
	}

	return string(source[lineStart:n.EndByte])
}

// splitLargeSymbol splits a symbol whose body exceeds MaxChunkTokens
// into line-based chunks with overlap.
func (c *CodeChunker) splitLargeSymbol(info *symbolNodeInfo, tree *Tree, file *FileInput, fileContext string, now time.Time) []*Chunk {
	node := info.node
	content := string(tree.Source[node.StartByte:node.EndByte])
	return c.splitByLines(content, info.symbol, file, fileContext, now, int(node.StartPoint.Row)+1)
}

// splitByLines splits content into line-based chunks with overlap.
func (c *CodeChunker) splitByLines(content string, symbol *Symbol, file *FileInput, fileContext string, now time.Time, startLine int) []*Chunk {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return []*Chunk{}
	}

	maxLinesPerChunk := (c.options.MaxChunkTokens * TokensPerChar) / 80
	if maxLinesPerChunk < 20 {
		maxLinesPerChunk = 20
	}

	overlapLines := (c.options.OverlapTokens * TokensPerChar) / 80
	if overlapLines < 2 {
		overlapLines = 2
	}

	var chunks []*Chunk
	part := 0
	for i := 0; i < len(lines); {
		end := i + maxLinesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		chunkStartLine := startLine + i
		chunkEndLine := startLine + end - 1
		part++

		subSymbol := &Symbol{
			Name:      fmt.Sprintf("%s_part%d", symbol.Name, part),
			Kind:      symbol.Kind,
			StartLine: chunkStartLine,
			EndLine:   chunkEndLine,
		}

		// The first split chunk also carries the parent symbol's
		// qualified name so lookups against the undivided name resolve.
		qualifiedName := subSymbol.Name
		if part == 1 {
			qualifiedName = symbol.Name
		}

		chunks = append(chunks, &Chunk{
			FilePath:      file.Path,
			Content:       combineContextAndContent(fileContext, chunkContent),
			RawContent:    chunkContent,
			Context:       fileContext,
			Language:      file.Language,
			NodeKind:      symbol.Kind,
			SymbolName:    subSymbol.Name,
			QualifiedName: qualifiedName,
			StartLine:     chunkStartLine,
			EndLine:       chunkEndLine,
			CreatedAt:     now,
			UpdatedAt:     now,
		})

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}

	return chunks
}

// createChunk creates a single chunk covering an entire symbol.
func (c *CodeChunker) createChunk(file *FileInput, rawContent, fileContext string, symbol *Symbol, now time.Time) *Chunk {
	return &Chunk{
		FilePath:      file.Path,
		Content:       combineContextAndContent(fileContext, rawContent),
		RawContent:    rawContent,
		Context:       fileContext,
		Language:      file.Language,
		NodeKind:      symbol.Kind,
		SymbolName:    symbol.Name,
		QualifiedName: symbol.Name,
		StartLine:     symbol.StartLine,
		EndLine:       symbol.EndLine,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// extractFileContext extracts package declaration and imports from a file.
func (c *CodeChunker) extractFileContext(tree *Tree, source []byte, language string) string {
	var parts []string

	switch language {
	case "go":
		parts = c.extractGoContext(tree, source)
	case "typescript", "tsx":
		parts = c.extractTSContext(tree, source)
	case "javascript", "jsx":
		parts = c.extractJSContext(tree, source)
	case "python":
		parts = c.extractPythonContext(tree, source)
	case "rust":
		parts = c.extractRustContext(tree, source)
	}

	return strings.Join(parts, "\n\n")
}

func (c *CodeChunker) extractGoContext(tree *Tree, source []byte) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "package_clause" {
			parts = append(parts, node.GetContent(source))
			break
		}
	}
	for _, node := range tree.Root.Children {
		if node.Type == "import_declaration" {
			parts = append(parts, node.GetContent(source))
		}
	}
	return parts
}

func (c *CodeChunker) extractTSContext(tree *Tree, source []byte) []string {
	return c.extractJSContext(tree, source)
}

func (c *CodeChunker) extractJSContext(tree *Tree, source []byte) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "import_statement" {
			parts = append(parts, node.GetContent(source))
		}
	}
	return parts
}

func (c *CodeChunker) extractPythonContext(tree *Tree, source []byte) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "import_statement" || node.Type == "import_from_statement" {
			parts = append(parts, node.GetContent(source))
		}
	}
	return parts
}

func (c *CodeChunker) extractRustContext(tree *Tree, source []byte) []string {
	var parts []string
	for _, node := range tree.Root.Children {
		if node.Type == "use_declaration" || node.Type == "mod_item" {
			parts = append(parts, node.GetContent(source))
		}
	}
	return parts
}

// chunkByLines is the fallback for unsupported languages: whole-file
// line-based chunking with no symbol alignment.
func (c *CodeChunker) chunkByLines(file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	linesPerChunk := 128
	overlapLines := 16

	var chunks []*Chunk
	now := time.Now()

	for i := 0; i < len(lines); {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}

		chunkContent := strings.Join(lines[i:end], "\n")
		startLine := i + 1
		endLine := end

		chunks = append(chunks, &Chunk{
			FilePath:   file.Path,
			Content:    chunkContent,
			RawContent: chunkContent,
			Language:   file.Language,
			NodeKind:   store.NodeKindModule,
			StartLine:  startLine,
			EndLine:    endLine,
			CreatedAt:  now,
			UpdatedAt:  now,
		})

		i = end - overlapLines
		if i <= 0 || end >= len(lines) {
			break
		}
	}

	return chunks, nil
}

// ComputeChunkID derives a chunk's stable identity: sha256(repository_id
// + path + start_line + symbol_name). Two chunks at the same symbol
// position in the same file always collide to the same ID, so
// re-indexing a changed file replaces those entries under the same IDs
// (spec.md §3, §8). Embeddings are not looked up by ID: unchanged files
// are skipped by content hash, and changed files are embedded again.
func ComputeChunkID(repositoryID, filePath string, startLine int, symbolName string) string {
	input := repositoryID + filePath + strconv.Itoa(startLine) + symbolName
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// estimateTokens estimates the number of tokens in content.
func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}

// combineContextAndContent combines context and raw content into full content.
func combineContextAndContent(context, rawContent string) string {
	if context == "" {
		return rawContent
	}
	return context + "\n\n" + rawContent
}

// enrichContextWithFilePath prepends a file path marker to the context
// so the embedding model has the file's location as signal.
func (c *CodeChunker) enrichContextWithFilePath(filePath, language, existingContext string) string {
	if filePath == "" {
		return existingContext
	}

	var marker string
	switch language {
	case "python":
		marker = fmt.Sprintf("# File: %s", filePath)
	default:
		marker = fmt.Sprintf("// File: %s", filePath)
	}

	if existingContext == "" {
		return marker
	}
	return marker + "\n" + existingContext
}
