// Package parser reads HCL model sources into raw graph instances. Parsed
// elements are registered in their packages but left unbound: every
// reference to another element is an import stub resolved later.
package parser

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	cerrors "github.com/conduit-lang/metacore/internal/compiler/errors"
	"github.com/conduit-lang/metacore/internal/metamodel"
	"github.com/conduit-lang/metacore/internal/model"
	"github.com/conduit-lang/metacore/internal/navigation"
)

// BlockParser turns one top-level block type into an element.
type BlockParser interface {
	BlockType() string
	ClassPath() string
	Parse(ctx *Context, block *hclsyntax.Block, element model.CoreInstance) error
}

// Result lists the elements defined by a source, import group included.
type Result struct {
	SourceID    string
	ImportGroup model.CoreInstance
	Elements    []model.CoreInstance
}

// Parser parses model sources
type Parser struct {
	support *navigation.Support
	blocks  map[string]BlockParser
}

// New creates a parser for the core block types plus any extension blocks.
func New(support *navigation.Support, extensions ...BlockParser) *Parser {
	p := &Parser{support: support, blocks: make(map[string]BlockParser)}
	for _, bp := range coreBlocks() {
		p.Register(bp)
	}
	for _, bp := range extensions {
		p.Register(bp)
	}
	return p
}

// Register adds a block parser, replacing any parser for the same block type.
func (p *Parser) Register(bp BlockParser) {
	p.blocks[bp.BlockType()] = bp
}

// BlockTypes returns the supported top-level block types, sorted.
func (p *Parser) BlockTypes() []string {
	types := make([]string, 0, len(p.blocks))
	for t := range p.blocks {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Parse parses content and registers its elements in their packages.
// Nothing is registered when the source fails to parse.
func (p *Parser) Parse(sourceID string, content []byte) (*Result, error) {
	file, diags := hclsyntax.ParseConfig(content, sourceID, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diagnosticsError(diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, cerrors.NewParseError(model.NewSourceInformation(sourceID, 1, 1, 1, 1), "unsupported source body")
	}

	ctx := &Context{support: p.support, sourceID: sourceID}
	var imports []string
	importsAt := model.NewSourceInformation(sourceID, 1, 1, 1, 1)
	for name, attr := range body.Attributes {
		if name != "imports" {
			return nil, cerrors.NewParseError(ctx.Source(attr.SrcRange), fmt.Sprintf("Unsupported attribute '%s'", name))
		}
		var err error
		if imports, err = ctx.Strings(attr.Expr); err != nil {
			return nil, err
		}
		importsAt = ctx.Source(attr.SrcRange)
	}

	type pending struct {
		block   *hclsyntax.Block
		parser  BlockParser
		path    string
		element model.CoreInstance
	}
	var blocks []pending
	seen := make(map[string]bool)
	for _, block := range body.Blocks {
		bp, ok := p.blocks[block.Type]
		if !ok {
			return nil, cerrors.NewParseError(ctx.Source(block.TypeRange), fmt.Sprintf("Unsupported block type '%s'", block.Type))
		}
		if len(block.Labels) != 1 {
			return nil, cerrors.NewParseError(ctx.Source(block.TypeRange), fmt.Sprintf("Block '%s' takes exactly one label, the element path", block.Type))
		}
		path := block.Labels[0]
		if !validPath.MatchString(path) {
			return nil, cerrors.NewParseError(ctx.Source(block.LabelRanges[0]), fmt.Sprintf("Invalid element path '%s'", path))
		}
		if seen[path] || p.support.PackageByUserPath(path) != nil {
			return nil, cerrors.NewDuplicateElement(ctx.ElementSource(block), path)
		}
		seen[path] = true
		_, name := metamodel.SplitPath(path)
		element := p.support.Repository().NewInstance(name, p.support.Class(bp.ClassPath()), ctx.ElementSource(block))
		blocks = append(blocks, pending{block: block, parser: bp, path: path, element: element})
	}

	ctx.group = p.importGroup(sourceID, imports, importsAt)
	for _, b := range blocks {
		if err := b.parser.Parse(ctx, b.block, b.element); err != nil {
			if ce, ok := cerrors.AsCompilationError(err); ok && ce.Element == "" {
				ce.WithElement(b.path)
			}
			return nil, err
		}
	}

	result := &Result{SourceID: sourceID, ImportGroup: ctx.group}
	meta := p.support.Metamodel()
	importsPkg, _ := meta.EnsurePackage(metamodel.ImportsPackage)
	p.support.AddChild(importsPkg, ctx.group)
	result.Elements = append(result.Elements, ctx.group)
	for _, b := range blocks {
		pkgPath, name := metamodel.SplitPath(b.path)
		pkg, _ := meta.EnsurePackage(pkgPath)
		b.element.SetKeyValues(metamodel.KeyElementName, []model.CoreInstance{p.support.Repository().NewString(name)})
		p.support.AddChild(pkg, b.element)
		result.Elements = append(result.Elements, b.element)
	}
	return result, nil
}

var (
	validPath    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(::[A-Za-z_][A-Za-z0-9_]*)*$`)
	nonWordChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// ImportGroupName returns the name of the n-th import group of a source.
func ImportGroupName(sourceID string, n int) string {
	return fmt.Sprintf("import_%s_%d", nonWordChars.ReplaceAllString(sourceID, "_"), n)
}

// importGroup creates the import group of a source. The group is located at
// the imports attribute so it never encloses the elements of the source.
func (p *Parser) importGroup(sourceID string, imports []string, source *model.SourceInformation) model.CoreInstance {
	repo := p.support.Repository()
	name := ImportGroupName(sourceID, 1)
	for n := 2; p.support.PackageByUserPath(metamodel.ImportsPackage+"::"+name) != nil; n++ {
		name = ImportGroupName(sourceID, n)
	}
	group := repo.NewInstance(name, p.support.Class(metamodel.ImportGroup), source)
	group.SetKeyValues(metamodel.KeyElementName, []model.CoreInstance{repo.NewString(group.Name())})
	for _, path := range imports {
		imp := repo.NewAnonymousInstance(p.support.Class(metamodel.Import), source)
		imp.SetKeyValues(metamodel.KeyImportPath, []model.CoreInstance{repo.NewString(path)})
		group.AddKeyValue(metamodel.KeyImports, imp)
	}
	return group
}

func diagnosticsError(diags hcl.Diagnostics) error {
	var list cerrors.ErrorList
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		var source *model.SourceInformation
		if d.Subject != nil {
			source = sourceOf(d.Subject.Filename, *d.Subject)
		}
		message := d.Summary
		if d.Detail != "" {
			message += "; " + d.Detail
		}
		list.Add(cerrors.NewParseError(source, message))
	}
	if len(list) == 1 {
		return list[0]
	}
	return list.Err()
}
