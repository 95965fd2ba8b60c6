package sandbox

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
)

// LocateEntry parses source and returns the name of the last top-level
// function declaration. An empty name with a nil error means the source is
// valid but declares no function.
func LocateEntry(source string) (string, error) {
	program, err := goja.Parse(sourceName, source)
	if err != nil {
		return "", err
	}
	return entryName(program), nil
}

func entryName(program *ast.Program) string {
	name := ""
	for _, stmt := range program.Body {
		decl, ok := stmt.(*ast.FunctionDeclaration)
		if !ok || decl.Function == nil || decl.Function.Name == nil {
			continue
		}
		name = string(decl.Function.Name.Name)
	}
	return name
}
