package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/siadat/blatte/builtins"
	"github.com/siadat/blatte/check"
	"github.com/siadat/blatte/compiler"
	"github.com/siadat/blatte/driver"
	"github.com/siadat/blatte/syntax/parser"
	"github.com/siadat/blatte/syntax/scanner"
	"github.com/siadat/blatte/syntax/token"
)

func main() {
	var app = &cli.App{
		Name: "blatte",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name: "debug",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "compile",
				Usage: "compile a document into a standalone Go program",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "write the program here instead of stdout",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "path to the YAML config",
						Value:   driver.DefaultConfigName,
					},
				},
				Action: func(cmdCtx *cli.Context) error {
					var cfg, cfgErr = driver.LoadConfig(cmdCtx.String("config"))
					if cfgErr != nil {
						return cfgErr
					}
					cfg.Warn = os.Stderr
					return compileTo(cmdCtx.String("file"), cmdCtx.String("output"), cfg)
				},
			},
			{
				Name:  "expr",
				Usage: "compile one expression and print the generated Go",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "expression",
						Aliases:  []string{"e"},
						Usage:    "Blatte source of one expression",
						Required: true,
					},
				},
				Action: func(cmdCtx *cli.Context) error {
					var buf = cmdCtx.String("expression")
					var code, err = compiler.Parse(&buf)
					if err != nil {
						return err
					}
					fmt.Println(code)
					if rest := strings.TrimSpace(buf); rest != "" {
						fmt.Fprintf(os.Stderr, "trailing input ignored: %q\n", rest)
					}
					return nil
				},
			},
			{
				Name:  "vars",
				Usage: "report unresolved variable references as YAML",
				Flags: []cli.Flag{fileFlag()},
				Action: func(cmdCtx *cli.Context) error {
					var byts, readErr = os.ReadFile(cmdCtx.String("file"))
					if readErr != nil {
						return readErr
					}
					var exprs, parseErr = parser.Default().ParseAll(bytes.NewReader(byts))
					if parseErr != nil {
						return parseErr
					}

					var known = map[string]bool{}
					for name := range builtins.Table() {
						known[name] = true
					}
					type entry struct {
						Name   string `yaml:"name"`
						Line   int    `yaml:"line"`
						Column int    `yaml:"column"`
					}
					var entries []entry
					for _, ref := range check.NewChecker(known).Unresolved(exprs) {
						entries = append(entries, entry{
							Name:   ref.Name,
							Line:   ref.Pos.Line,
							Column: ref.Pos.Column,
						})
					}
					var out, yamlErr = yaml.Marshal(entries)
					if yamlErr != nil {
						return yamlErr
					}
					os.Stdout.Write(out)
					return nil
				},
			},
			{
				Name:  "tokens",
				Usage: "dump the token stream of a document",
				Flags: []cli.Flag{fileFlag()},
				Action: func(cmdCtx *cli.Context) error {
					var byts, readErr = os.ReadFile(cmdCtx.String("file"))
					if readErr != nil {
						return readErr
					}
					var s = scanner.NewScanner(bytes.NewReader(byts))
					s.SetDebug(cmdCtx.Bool("debug"))
					for {
						var tok, err = s.NextToken()
						if err != nil {
							return err
						}
						if tok.Typ == token.EOF {
							return nil
						}
						fmt.Printf("%s %s\n", s.PosInfo(tok.Pos), tok)
					}
				},
			},
			{
				Name:  "watch",
				Usage: "recompile a document whenever it changes",
				Flags: []cli.Flag{
					fileFlag(),
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "path of the generated program",
						Required: true,
					},
				},
				Action: func(cmdCtx *cli.Context) error {
					return watch(cmdCtx.String("file"), cmdCtx.String("output"))
				},
			},
			{
				Name:  "repl",
				Usage: "interactively compile expressions",
				Action: func(cmdCtx *cli.Context) error {
					return repl()
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "path to the Blatte document",
		Required: true,
	}
}

func compileTo(file, output string, cfg driver.Config) error {
	var byts, readErr = os.ReadFile(file)
	if readErr != nil {
		return readErr
	}
	var program, compileErr = driver.CompileDocument(file, bytes.NewReader(byts), cfg)
	if compileErr != nil {
		return compileErr
	}
	if output == "" {
		var _, err = io.WriteString(os.Stdout, program)
		return err
	}
	return os.WriteFile(output, []byte(program), 0o644)
}

// watch recompiles on every write to the document. Compile errors are
// reported and watching continues; editors that replace the file on save are
// handled by re-adding it after a rename or remove.
func watch(file, output string) error {
	var watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	var compileOnce = func() {
		var cfg = driver.Config{Warn: os.Stderr}
		if compileErr := compileTo(file, output, cfg); compileErr != nil {
			fmt.Fprintf(os.Stderr, "%s\n", compileErr)
			return
		}
		fmt.Fprintf(os.Stderr, "compiled %s -> %s\n", file, output)
	}

	compileOnce()
	if err := watcher.Add(file); err != nil {
		return err
	}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				compileOnce()
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				watcher.Remove(file)
				if err := watcher.Add(file); err == nil {
					compileOnce()
				}
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "%s\n", watchErr)
		}
	}
}

// repl reads expressions one line at a time and prints the Go each compiles
// to. A line may hold several expressions; they are consumed from the front
// one by one.
func repl() error {
	var rl, err = readline.New("blatte> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		var line, readErr = rl.Readline()
		switch readErr {
		case nil:
		case readline.ErrInterrupt:
			continue
		case io.EOF:
			return nil
		default:
			return readErr
		}

		var buf = line
		for strings.TrimSpace(buf) != "" {
			var code, parseErr = compiler.Parse(&buf)
			if parseErr != nil {
				fmt.Fprintf(os.Stderr, "%s\n", parseErr)
				break
			}
			fmt.Println(code)
		}
	}
}
