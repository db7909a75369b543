package analyzer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/duynguyendang/pyscope/pkg/common/errors"
)

// DefaultMaxSourceBytes bounds how much source a single analysis will parse.
// Pathological inputs are rejected up front instead of parsing without bound.
const DefaultMaxSourceBytes = 2 << 20

// Analyzer runs the two-pass pipeline: parse, collect definitions, resolve
// call and instantiation edges. Instances are safe for concurrent use; a
// fresh tree-sitter parser is created per call.
type Analyzer struct {
	lang *Language

	// MaxSourceBytes rejects larger inputs before parsing.
	MaxSourceBytes int
}

// New creates an Analyzer for the given language (default language when nil).
func New(lang *Language) *Analyzer {
	if lang == nil {
		lang = LanguageByName(DefaultLanguage)
	}
	return &Analyzer{lang: lang, MaxSourceBytes: DefaultMaxSourceBytes}
}

// Language returns the language this analyzer parses.
func (a *Analyzer) Language() string {
	return a.lang.Name
}

// Analyze parses the source and builds the structure tree and definition
// index. The two passes are strictly ordered: every definition is registered
// before any call site is resolved, so forward references still resolve.
//
// On a parse failure no partial tree is returned.
func (a *Analyzer) Analyze(ctx context.Context, source []byte) (*Tree, Index, error) {
	if a.MaxSourceBytes > 0 && len(source) > a.MaxSourceBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds limit %d", errors.ErrTooLarge, len(source), a.MaxSourceBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(a.lang.grammar); err != nil {
		return nil, nil, fmt.Errorf("failed to configure parser for %s: %w", a.lang.Name, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("%w: parser returned no tree", errors.ErrSyntax)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil, fmt.Errorf("%w: empty root node", errors.ErrSyntax)
	}
	if root.HasError() {
		return nil, nil, fmt.Errorf("%w: source does not parse as %s", errors.ErrSyntax, a.lang.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	b := &builder{lang: a.lang, src: source}
	t, index := b.build(root)

	r := &resolver{lang: a.lang, src: source, index: index}
	r.resolve(root)

	return t, index, nil
}

// lineFromOffset calculates a 1-indexed line number from a byte offset.
func lineFromOffset(content []byte, offset uint) int {
	if int(offset) > len(content) {
		offset = uint(len(content))
	}
	return strings.Count(string(content[:offset]), "\n") + 1
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
