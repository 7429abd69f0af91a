package util

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Mode selects how far the compiler pipeline runs before printing its result and
// exiting, per the vsopc CLI contract.
type Mode int

const (
	ModeCompile Mode = iota // Full compile: emit an executable.
	ModeLex                 // -l / -lex: print the token stream.
	ModeParse                // -p: parse and pretty-print the AST.
	ModeCheck                // -c: resolve + type-check, print the typed AST.
	ModeIR                   // -i: lower to LLVM IR, print it.
)

// Options holds the parsed command line configuration of a single compiler run.
type Options struct {
	Src     string // Path to the VSOP source file.
	Out     string // Path to the output file, if overridden with -o.
	Mode    Mode   // Pipeline cutoff mode.
	Verbose bool   // Print extra diagnostic information to stdout.
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "vsopc 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses os.Args[1:] into an Options structure.
//
// Argument errors are reported with the messages the CLI contract requires:
// "vsopc: bad number of arguments" when too few/many arguments are given, and
// "vsopc: error in arguments" for anything else malformed.
func ParseArgs(args []string) (Options, error) {
	opt := Options{}
	if len(args) == 0 {
		return opt, fmt.Errorf("vsopc: bad number of arguments")
	}

	var rest []string
	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-l", "-lex":
			opt.Mode = ModeLex
		case "-p":
			opt.Mode = ModeParse
		case "-c":
			opt.Mode = ModeCheck
		case "-i":
			opt.Mode = ModeIR
		case "-vb":
			opt.Verbose = true
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("vsopc: error in arguments")
			}
			opt.Out = args[i1+1]
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("vsopc: error in arguments")
			}
			rest = append(rest, args[i1])
		}
	}

	if len(rest) != 1 {
		return opt, fmt.Errorf("vsopc: bad number of arguments")
	}
	opt.Src = rest[0]
	return opt, nil
}

// printHelp prints a usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-l, -lex\tPrints the token stream and exits.")
	_, _ = fmt.Fprintln(w, "-p\tParses and pretty-prints the AST and exits.")
	_, _ = fmt.Fprintln(w, "-c\tRuns the class-graph resolver and type checker, prints the typed AST and exits.")
	_, _ = fmt.Fprintln(w, "-i\tLowers to LLVM IR, prints it and exits.")
	_, _ = fmt.Fprintln(w, "-o\tPath to the output file.")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print extra compiler diagnostics to stdout.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints the application version and exits.")
	_ = w.Flush()
}
