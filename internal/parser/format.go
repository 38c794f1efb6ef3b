package parser

import (
	"sort"
	"strings"

	"gclower/internal/ir"
	"gclower/internal/types"
)

// Format prints a unit back in textual IR; the result loads to an equal unit
func Format(unit *Unit) string {
	p := ir.NewPrinter()
	for _, class := range unit.Classes.Classes() {
		formatClass(p, class)
	}
	for _, body := range unit.Methods {
		p.WriteLine("")
		FormatMethod(p, body.Method, body.Program)
	}
	return p.String()
}

// FormatMethod prints one method body with its header
func FormatMethod(p *ir.Printer, method *types.MethodReader, program *ir.Program) {
	header := "method " + method.Reference.String()
	if traits := methodTraitNames(method.Traits); traits != "" {
		header += " " + traits
	}
	p.WriteLine("%s {", header)
	p.PrintProgram(program)
	p.WriteLine("}")
}

func formatClass(p *ir.Printer, class *types.ClassReader) {
	header := "class " + class.Name
	if class.Parent != "" {
		header += " extends " + class.Parent
	}
	if class.Traits != types.TraitNormal {
		header += " " + class.Traits.String()
	}
	if len(class.Methods) == 0 {
		p.WriteLine("%s", header)
		return
	}

	p.WriteLine("%s {", header)
	p.Indent()
	descriptors := make([]string, 0, len(class.Methods))
	for descriptor := range class.Methods {
		descriptors = append(descriptors, descriptor)
	}
	sort.Strings(descriptors)
	for _, descriptor := range descriptors {
		method := class.Methods[descriptor]
		line := "declare " + descriptor
		if traits := methodTraitNames(method.Traits); traits != "" {
			line += " " + traits
		}
		p.WriteLine("%s;", line)
	}
	p.Dedent()
	p.WriteLine("}")
}

func methodTraitNames(traits types.MethodTraits) string {
	var names []string
	if traits.Has(types.MethodStatic) {
		names = append(names, "static")
	}
	if traits.Has(types.MethodUnmanaged) {
		names = append(names, "unmanaged")
	}
	if traits.Has(types.MethodManaged) {
		names = append(names, "managed")
	}
	if traits.Has(types.MethodNative) {
		names = append(names, "native")
	}
	return strings.Join(names, " ")
}
