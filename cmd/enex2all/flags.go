package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// cliFlags holds every flag of the converter command.
type cliFlags struct {
	output     string
	recursive  bool
	formats    []string
	config     string
	initConfig string

	noteWorkers   int
	ocrWorkers    int
	ocrLang       string
	noOCR         bool
	noFrontMatter bool
	timeout       string

	quiet   bool
	verbose bool
	version bool
}

// parseFlags parses command-line flags and returns the positional
// arguments (the input archive or directory).
func parseFlags(args []string, errOut io.Writer) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("enex2all", flag.ContinueOnError)
	fs.SetOutput(errOut)
	f := &cliFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output root directory (default: next to each archive)")
	fs.BoolVarP(&f.recursive, "recursive", "r", false, "scan input directory recursively")
	fs.StringSliceVar(&f.formats, "format", nil, "output formats: html, markdown, pdf (default: all)")
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.initConfig, "init-config", "", "write a default config file to the given path and exit")

	fs.IntVar(&f.noteWorkers, "note-workers", 0, "concurrent notes per archive (0 = from config)")
	fs.IntVar(&f.ocrWorkers, "ocr-workers", 0, "concurrent text recognition jobs (0 = from config)")
	fs.StringVar(&f.ocrLang, "ocr-lang", "", "Tesseract language code (default: from config)")
	fs.BoolVar(&f.noOCR, "no-ocr", false, "disable text recognition")
	fs.BoolVar(&f.noFrontMatter, "no-front-matter", false, "omit YAML front matter from Markdown output")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-note timeout (e.g. 30s, 2m)")

	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-note detail")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: enex2all [flags] <archive.enex | directory>\n\n")
		fmt.Fprintln(errOut, "Converts Evernote export archives into HTML, Markdown and searchable PDF.")
		fmt.Fprintln(errOut, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
