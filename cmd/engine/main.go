// Command engine is the batch/REPL CLI driving the Facade directly, no
// HTTP in between, per SPEC_FULL.md §4.J.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"go.uber.org/zap"

	"github.com/vinaxue/cs5510-project3/internal/config"
	"github.com/vinaxue/cs5510-project3/pkg/engine"
)

type options struct {
	config.Flags
	File  string `short:"f" long:"file" description:"batch file of ;-terminated statements"`
	Debug bool   `long:"debug" description:"pretty-print each statement's result"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1) // go-flags already printed usage/error
	}

	cfg, err := config.Resolve(opts.Flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	eng, err := engine.Open(cfg.DataDir, log, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer eng.Close()

	printer := pp.New()

	if opts.File != "" {
		runBatch(eng, opts.File, printer, opts.Debug)
		return
	}
	runREPL(eng, printer, opts.Debug)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func runBatch(eng *engine.Engine, path string, printer *pp.PrettyPrinter, debug bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, stmt := range splitStatements(string(data)) {
		runOne(eng, stmt, printer, debug)
	}
}

func runREPL(eng *engine.Engine, printer *pp.PrettyPrinter, debug bool) {
	scanner := bufio.NewScanner(os.Stdin)
	var buf strings.Builder
	fmt.Print("engine> ")
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
		if strings.Contains(scanner.Text(), ";") {
			for _, stmt := range splitStatements(buf.String()) {
				runOne(eng, stmt, printer, debug)
			}
			buf.Reset()
		}
		fmt.Print("engine> ")
	}
}

func runOne(eng *engine.Engine, stmt string, printer *pp.PrettyPrinter, debug bool) {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return
	}
	res := eng.Execute(stmt)
	if debug {
		printer.Println(res)
		return
	}
	if res.Error != "" {
		fmt.Printf("ERROR: %s\n", res.Error)
		return
	}
	if res.Rows != nil {
		printer.Println(res.Rows)
	}
	fmt.Printf("(%d rows affected, %.3fms)\n", res.RowsAffected, res.RuntimeMS)
}

// splitStatements breaks a batch of `;`-terminated statements apart.
// Strings may themselves contain semicolons, so this tracks quote state
// rather than splitting naively on every ';'.
func splitStatements(src string) []string {
	var out []string
	var cur strings.Builder
	var quote byte // the open string's quote character; 0 outside a string
	for i := 0; i < len(src); i++ {
		c := src[i]
		cur.WriteByte(c)
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case c == ';' && quote == 0:
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}
