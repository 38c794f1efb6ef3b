// Package parser loads textual IR into class metadata and method bodies.
package parser

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"gclower/grammar"
	"gclower/internal/errors"
	"gclower/internal/ir"
	"gclower/internal/types"
)

// MethodBody is one method of a compilation unit together with its IR
type MethodBody struct {
	Method   *types.MethodReader
	Program  *ir.Program
	Position errors.Position
}

// Unit is the result of loading one IR file
type Unit struct {
	Classes  *types.ClassRegistry
	Methods  []*MethodBody
	Warnings []errors.CompilerError
}

// ErrorList collects every error found while loading a unit
type ErrorList []errors.CompilerError

func (l ErrorList) Error() string {
	messages := make([]string, len(l))
	for i, err := range l {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "\n")
}

// ParseFile reads and loads a textual IR file
func ParseFile(path string) (*Unit, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	unit, err := ParseSource(path, string(source))
	return unit, string(source), err
}

// ParseSource loads textual IR held in memory. On failure the returned error
// is an ErrorList.
func ParseSource(path, source string) (*Unit, error) {
	file, err := grammar.ParseString(path, source)
	if err != nil {
		return nil, ErrorList{syntaxError(path, err)}
	}

	l := &loader{unit: &Unit{Classes: types.NewClassRegistry()}}
	l.loadClasses(file)
	for _, element := range file.Elements {
		if element.Method != nil {
			l.loadMethod(element.Method)
		}
	}
	if len(l.errors) > 0 {
		return nil, l.errors
	}
	return l.unit, nil
}

func syntaxError(path string, err error) errors.CompilerError {
	var pe participle.Error
	if stderrors.As(err, &pe) {
		return errors.SyntaxError(pe.Message(), position(pe.Position()))
	}
	return errors.SyntaxError(err.Error(), errors.Position{Filename: path})
}

func position(pos lexer.Position) errors.Position {
	return errors.Position{Filename: pos.Filename, Line: pos.Line, Column: pos.Column}
}

type loader struct {
	unit   *Unit
	errors ErrorList
}

func (l *loader) fail(err errors.CompilerError) {
	l.errors = append(l.errors, err)
}

func (l *loader) loadClasses(file *grammar.File) {
	for _, element := range file.Elements {
		decl := element.Class
		if decl == nil {
			continue
		}
		pos := position(decl.Pos)
		if l.unit.Classes.IsKnown(decl.Name) {
			l.fail(errors.DuplicateClass(decl.Name, pos))
			continue
		}

		traits := types.TraitNormal
		for _, name := range decl.Traits {
			trait, ok := types.ParseClassTrait(name)
			if !ok {
				l.fail(errors.UnknownTrait(name, pos))
				continue
			}
			traits |= trait
		}

		class := types.NewClassReader(decl.Name, decl.Parent, traits)
		for _, m := range decl.Methods {
			class.AddMethod(&types.MethodReader{
				Reference: methodReference(decl.Name, m.Signature),
				Traits:    l.methodTraits(m.Traits, position(m.Pos)),
			})
		}
		l.unit.Classes.AddClass(class)
	}
}

func (l *loader) methodTraits(names []string, pos errors.Position) types.MethodTraits {
	traits := types.MethodNormal
	for _, name := range names {
		switch name {
		case "static":
			traits |= types.MethodStatic
		case "unmanaged":
			traits |= types.MethodUnmanaged
		case "managed":
			traits |= types.MethodManaged
		case "native":
			traits |= types.MethodNative
		default:
			l.fail(errors.UnknownTrait(name, pos))
		}
	}
	return traits
}

func (l *loader) loadMethod(decl *grammar.Method) {
	pos := position(decl.Pos)
	reader := &types.MethodReader{
		Reference: methodReference(decl.Owner, decl.Signature),
		Traits:    l.methodTraits(decl.Traits, pos),
	}

	if class := l.unit.Classes.Get(decl.Owner); class != nil {
		if declared := class.Method(reader.Reference.Descriptor()); declared != nil {
			reader.Traits |= declared.Traits
		}
		class.AddMethod(reader)
	} else {
		l.unit.Warnings = append(l.unit.Warnings, errors.UnknownClass(decl.Owner, pos))
	}

	b := newBodyBuilder(l, reader)
	program := b.build(decl.Blocks)
	if program == nil {
		return
	}
	l.unit.Methods = append(l.unit.Methods, &MethodBody{
		Method:   reader,
		Program:  program,
		Position: pos,
	})
}

func valueType(t *grammar.Type) types.ValueType {
	return types.ParseValueType(t.String())
}

func methodReference(owner string, sig *grammar.Signature) types.MethodReference {
	signature := make([]types.ValueType, 0, len(sig.Params)+1)
	for _, p := range sig.Params {
		signature = append(signature, valueType(p))
	}
	signature = append(signature, valueType(sig.Return))
	return types.NewMethodReference(owner, sig.Name, signature...)
}
