package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Options holds irtool's parsed command line arguments.
type Options struct {
	Src     string // path to the textual IR file to read.
	Verify  bool   // explicitly re-verify and report every diagnostic, not just the first.
	Mem2reg bool   // run the mem2reg transform on every defined function before acting further.
	Print   bool   // print the resulting module in textual IR form.
	Interp  bool   // interpret Entry (default "main") and print its result.
	Entry   string // function to interpret; defaults to "main".
	Threads int    // worker count for sharded verification (Options.Threads in the verify package).
}

const maxThreads = 64
const appVersion = "irtool 1.0"

// parseArgs parses os.Args[1:]: a flat switch over flag strings, with the
// final bare argument taken as the source path.
func parseArgs() (Options, error) {
	opt := Options{Entry: "main"}
	args := os.Args[1:]
	if len(args) == 0 {
		return opt, fmt.Errorf("no input file given")
	}
	for i1 := 0; i1 < len(args)-1; i1++ {
		switch args[i1] {
		case "-h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-verify":
			opt.Verify = true
		case "-mem2reg":
			opt.Mem2reg = true
		case "-print":
			opt.Print = true
		case "-interp":
			opt.Interp = true
		case "-entry":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected function name, got new flag %s", args[i1+1])
			}
			opt.Entry = args[i1+1]
			i1++
		case "-threads":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			t, err := strconv.Atoi(args[i1+1])
			if err != nil {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			if t <= 0 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be in range [1, %d]", maxThreads)
			}
			opt.Threads = t
			i1++
		default:
			return opt, fmt.Errorf("unexpected flag: %s", args[i1])
		}
	}
	switch args[len(args)-1] {
	case "-h", "-help", "--help":
		printHelp()
		os.Exit(0)
	case "-v", "-version", "--version":
		fmt.Println(appVersion)
		os.Exit(0)
	}
	opt.Src = args[len(args)-1]
	if strings.HasPrefix(opt.Src, "-") {
		return opt, fmt.Errorf("expected path to an IR file, got flag %s", opt.Src)
	}
	return opt, nil
}

func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints the tool version and exits.")
	_, _ = fmt.Fprintln(w, "-verify\tRe-verify the parsed module and print every diagnostic.")
	_, _ = fmt.Fprintln(w, "-mem2reg\tPromote stack allocas to SSA registers in every defined function.")
	_, _ = fmt.Fprintln(w, "-print\tPrint the resulting module in textual IR form.")
	_, _ = fmt.Fprintln(w, "-interp\tInterpret the entry function (see -entry) and print its result.")
	_, _ = fmt.Fprintln(w, "-entry\tName of the function -interp calls. Defaults to 'main'.")
	_, _ = fmt.Fprintf(w, "-threads\tWorker count for sharded verification. Must be in range [1, %d].\n", maxThreads)
	_ = w.Flush()
}
