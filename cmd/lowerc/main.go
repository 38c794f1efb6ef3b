// SPDX-License-Identifier: Apache-2.0
package main

import (
	goerrors "errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"gopkg.in/yaml.v3"

	"gclower/internal/annotations"
	"gclower/internal/errors"
	"gclower/internal/lowlevel"
	"gclower/internal/parser"
)

func main() {
	configPath := flag.String("config", "", "YAML file with pipeline settings")
	verify := flag.Bool("verify", false, "verify the IR before and after every pass")
	dumpBefore := flag.String("dump-before", "", "dump the IR before this pass (\"*\" for all)")
	dumpAfter := flag.String("dump-after", "", "dump the IR after this pass (\"*\" for all)")
	dumpMethod := flag.String("dump-method", "", "restrict dumps to one method, e.g. A#m")
	metadata := flag.String("metadata", "", "write call-site metadata to this YAML file")
	verbosity := flag.Int("v", 0, "log verbosity (1 = info, 2 = debug)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lowerc [flags] <file.ir>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	commonlog.Configure(*verbosity, nil)
	startTime := time.Now()
	path := flag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	// Flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "verify":
			cfg.Verify = *verify
		case "dump-before":
			cfg.DumpBefore = *dumpBefore
		case "dump-after":
			cfg.DumpAfter = *dumpAfter
		case "dump-method":
			cfg.DumpMethod = *dumpMethod
		}
	})

	unit, source, err := parser.ParseFile(path)
	errorReporter := errors.NewErrorReporter(path, source)
	if err != nil {
		var list parser.ErrorList
		if !goerrors.As(err, &list) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		for _, e := range list {
			fmt.Print(errorReporter.FormatError(e))
		}
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}
	for _, warning := range unit.Warnings {
		fmt.Print(errorReporter.FormatError(warning))
	}

	characteristics := lowlevel.NewCharacteristics(lowlevel.WithRuntime(unit.Classes))
	registry := lowlevel.NewCallSiteRegistry()
	pipeline, err := lowlevel.NewPipeline(cfg, characteristics, registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	methods := make([]*lowlevel.Method, len(unit.Methods))
	positions := make(map[string]errors.Position, len(unit.Methods))
	for i, body := range unit.Methods {
		methods[i] = &lowlevel.Method{Reader: body.Method, Program: body.Program}
		positions[body.Method.Reference.String()] = body.Position
	}

	failures := pipeline.RunAll(methods)
	for _, failure := range failures {
		fmt.Print(errorReporter.FormatError(report(failure, positions)))
	}

	formattedDuration := formatDuration(time.Since(startTime))
	if len(failures) > 0 {
		color.Red("Compilation failed after %s", formattedDuration)
		os.Exit(1)
	}

	fmt.Print(parser.Format(unit))
	if *metadata != "" {
		container := annotations.NewContainer()
		lowlevel.SaveCallSites(registry.CallSites(), container)
		if err := container.WriteFile(*metadata); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	color.Green("Successfully lowered %d methods of %s in %s", len(methods), path, formattedDuration)
}

func loadConfig(path string) (lowlevel.Config, error) {
	cfg := lowlevel.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// report turns a pipeline failure into a diagnostic. Verifier findings are
// listed one per note.
func report(failure *lowlevel.MethodError, positions map[string]errors.Position) errors.CompilerError {
	method := failure.Method.String()
	if !goerrors.Is(failure, lowlevel.ErrMalformed) {
		return errors.PassFailure(method, failure.Pass, failure.Err)
	}

	lines := strings.Split(failure.Err.Error(), "\n")
	findings := []string{fmt.Sprintf("in %s: %s", failure.Pass, lines[0])}
	for _, line := range lines[1:] {
		findings = append(findings, strings.TrimSpace(line))
	}
	return errors.MalformedIR(method, positions[method], findings)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
