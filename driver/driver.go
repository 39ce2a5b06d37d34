// Package driver compiles a whole document into a standalone Go program.
// The program builds the document's value tree, with the builtin callables
// bound, and prints its rendered text to stdout.
package driver

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/siadat/blatte/builtins"
	"github.com/siadat/blatte/check"
	"github.com/siadat/blatte/compiler"
	"github.com/siadat/blatte/syntax/ast"
	"github.com/siadat/blatte/syntax/parser"
)

const DefaultConfigName = ".blatte.yml"

type Config struct {
	// Package is the generated package name; empty means main. A package
	// other than main renders from an exported Render function instead of
	// func main.
	Package string `yaml:"package"`
	// RuntimeImport overrides the runtime import path, for forks that
	// vendor the runtime elsewhere.
	RuntimeImport string `yaml:"runtime_import"`

	// Warn receives one line per unresolved variable reference. Warnings
	// never block compilation; nil discards them.
	Warn io.Writer `yaml:"-"`
}

// LoadConfig reads a YAML config file. A missing file is not an error; it
// yields the zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	var data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// CompileDocument parses src as a whole document and returns the text of a
// Go program that renders it. name appears in the generated header and in
// warnings.
func CompileDocument(name string, src io.Reader, cfg Config) (string, error) {
	var exprs, parseErr = parser.Default().ParseAll(src)
	if parseErr != nil {
		return "", fmt.Errorf("%s: %w", name, parseErr)
	}

	if cfg.Warn != nil {
		var known = map[string]bool{}
		for builtinName := range builtins.Table() {
			known[builtinName] = true
		}
		for _, ref := range check.NewChecker(known).Unresolved(exprs) {
			fmt.Fprintf(cfg.Warn, "%s:%s\n", name, ref)
		}
	}

	var g = compiler.NewGenerator()
	for builtinName := range builtins.Table() {
		g.Predeclare(builtinName)
	}
	var chunks []string
	var printsAnything = false
	for _, expr := range exprs {
		var code, genErr = g.Generate(expr)
		if genErr != nil {
			return "", fmt.Errorf("%s: %w", name, genErr)
		}
		switch ast.Unwrap(expr).(type) {
		case ast.Define, ast.DefineFunc, ast.Set:
			chunks = append(chunks, code)
		default:
			printsAnything = true
			chunks = append(chunks, fmt.Sprintf("fmt.Print(%s.Flatten(%s))", compiler.RuntimeAlias, code))
		}
	}

	return assemble(name, cfg, chunks, printsAnything), nil
}

func assemble(name string, cfg Config, chunks []string, printsAnything bool) string {
	var pkg = cfg.Package
	if pkg == "" {
		pkg = "main"
	}
	var runtimeImport = cfg.RuntimeImport
	if runtimeImport == "" {
		runtimeImport = compiler.RuntimeImport
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by blatte from %s. DO NOT EDIT.\n\n", name)
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("import (\n")
	if printsAnything {
		b.WriteString("\t\"fmt\"\n\n")
	}
	fmt.Fprintf(&b, "\t\"github.com/siadat/blatte/builtins\"\n")
	fmt.Fprintf(&b, "\t%s %q\n", compiler.RuntimeAlias, runtimeImport)
	b.WriteString(")\n\n")
	if pkg == "main" {
		b.WriteString("func main() {\n")
	} else {
		b.WriteString("// Render prints the rendered document to stdout.\n")
		b.WriteString("func Render() {\n")
	}

	// bind the builtins under their mangled names, so documents reference
	// them like any other variable
	var names = make([]string, 0, len(builtins.Table()))
	for builtinName := range builtins.Table() {
		names = append(names, builtinName)
	}
	sort.Strings(names)
	b.WriteString("\tvar table = builtins.Table()\n")
	var mangled = make([]string, 0, len(names))
	for _, builtinName := range names {
		var v = compiler.Mangle(builtinName)
		fmt.Fprintf(&b, "\tvar %s %s.Value = table[%q]\n", v, compiler.RuntimeAlias, builtinName)
		mangled = append(mangled, v)
	}
	var blanks = strings.TrimSuffix(strings.Repeat("_, ", len(mangled)), ", ")
	fmt.Fprintf(&b, "\t%s = %s\n", blanks, strings.Join(mangled, ", "))

	for _, chunk := range chunks {
		b.WriteString("\n")
		for _, line := range strings.Split(chunk, "\n") {
			fmt.Fprintf(&b, "\t%s\n", line)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
