// Command mdefexpr compiles and evaluates a user-defined spectral model
// expression from the command line: parse an expression string into a
// CompiledExpression, then drive it over a supplied energy grid and
// parameter vector.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"mdefexpr/internal/diag"
	"mdefexpr/internal/mdef"
	"mdefexpr/internal/registry"
	"mdefexpr/internal/tablemodel"
)

const version = "0.1.0"

// commandAliases mirrors the short-form aliasing convention of the
// command this tool's dispatch loop is modeled on.
var commandAliases = map[string]string{
	"c": "compile",
	"e": "eval",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("mdefexpr", version)
	case "compile":
		if err := compileCommand(args[1:]); err != nil {
			log.Fatalf("error: %v", err)
		}
	case "eval":
		if err := evalCommand(args[1:]); err != nil {
			log.Fatalf("error: %v", err)
		}
	default:
		fmt.Printf("mdefexpr: unknown command %q\n\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("mdefexpr - spectral model expression compiler/evaluator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mdefexpr compile --expr EXPR [--type add|mul|con] [--name NAME]   (alias: c)")
	fmt.Println("  mdefexpr eval --expr EXPR --energies E1,E2,...  [--params P1,P2,...]")
	fmt.Println("                [--type add|mul|con] [--name NAME] [--spectrum N]     (alias: e)")
	fmt.Println("  mdefexpr help")
	fmt.Println("  mdefexpr version")
	fmt.Println()
	fmt.Println("Flags take the form --flag value or --flag=value.")
}

// parseFlags turns a flat --name value / --name=value argument list into
// a lookup map. No stdlib flag package: the compiler's own CLI, like the
// rest of this module, favors a hand-rolled parse over generic tooling.
func parseFlags(args []string) (map[string]string, error) {
	flags := make(map[string]string)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}
		name := strings.TrimPrefix(arg, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			flags[name[:eq]] = name[eq+1:]
			i++
			continue
		}
		if i+1 >= len(args) {
			return nil, fmt.Errorf("missing value for --%s", name)
		}
		flags[name] = args[i+1]
		i += 2
	}
	return flags, nil
}

func parseFloatList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func compileCommand(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	expr, ok := flags["expr"]
	if !ok {
		return fmt.Errorf("--expr is required")
	}
	compType := flags["type"]
	if compType == "" {
		compType = "add"
	}
	name := flags["name"]
	if name == "" {
		name = "mymodel"
	}

	reg := registry.NewMemory()
	tables := tablemodel.NewMemory()
	c := mdef.New(0, 1e6, compType, name, reg, tables)
	if err := c.Init(expr, true); err != nil {
		return err
	}

	fmt.Printf("model:      %s (%s)\n", c.ModelName(), c.ComponentType())
	fmt.Printf("parameters: %s\n", strings.Join(c.DistinctParameterNames(), ", "))
	fmt.Printf("infix:      %s\n", mdef.TraceElements(c.InfixElements(), c.Operators()))
	fmt.Printf("postfix:    %s\n", mdef.TraceElements(c.PostfixElements(), c.Operators()))
	if uses := c.UsingOtherMdefs(); len(uses) > 0 {
		fmt.Printf("depends on: %s\n", strings.Join(uses, ", "))
	}
	return nil
}

func evalCommand(args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}
	expr, ok := flags["expr"]
	if !ok {
		return fmt.Errorf("--expr is required")
	}
	energies, err := parseFloatList(flags["energies"])
	if err != nil {
		return err
	}
	if len(energies) < 2 {
		return fmt.Errorf("--energies must list at least two bin edges")
	}
	params, err := parseFloatList(flags["params"])
	if err != nil {
		return err
	}

	compType := flags["type"]
	if compType == "" {
		compType = "add"
	}
	name := flags["name"]
	if name == "" {
		name = "mymodel"
	}
	spectrum := 1
	if s, ok := flags["spectrum"]; ok {
		spectrum, err = strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid --spectrum: %w", err)
		}
	}

	reg := registry.NewMemory()
	tables := tablemodel.NewMemory()
	c := mdef.New(energies[0], energies[len(energies)-1], compType, name, reg, tables)
	if err := c.Init(expr, true); err != nil {
		return err
	}

	if need := len(c.DistinctParameterNames()); len(params) < need {
		return fmt.Errorf("expression needs %d parameter value(s), got %d", need, len(params))
	}

	var initFlux []float64
	if compType == "con" {
		initFlux = make([]float64, len(energies)-1)
		for i := range initFlux {
			initFlux[i] = 1
		}
	}

	sink := &diag.Sink{}
	flux, fluxErr, err := c.Evaluate(energies, params, spectrum, initFlux, "", sink)
	if err != nil {
		return err
	}
	for _, w := range sink.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	fmt.Println("bin                flux           fluxErr")
	for i := range flux {
		fmt.Printf("[%7.4f,%7.4f]  %14.6e  %14.6e\n", energies[i], energies[i+1], flux[i], fluxErr[i])
	}
	return nil
}
