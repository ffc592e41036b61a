// Command teng renders a single template file against a JSON data
// file and writes the result to stdout or a named output file,
// adapting cmd/file-parsing-example's log-driven demo-main idiom to a
// real one-shot render of spec.md §6's Generate entry point.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/gotengo/teng"
	"github.com/gotengo/teng/fragment"
	"github.com/gotengo/teng/writer"
)

func main() {
	template := flag.String("template", "", "path to the template file (required)")
	data := flag.String("data", "", "path to a JSON file providing the FragmentTree root (optional, defaults to {})")
	dict := flag.String("dict", "", "path to a dictionary file (optional)")
	params := flag.String("params", "", "path to a Parameters file (optional)")
	lang := flag.String("lang", "", "dictionary language (optional)")
	contentType := flag.String("content-type", "text/html", "registered content type")
	out := flag.String("out", "", "output file path (defaults to stdout)")
	flag.Parse()

	if *template == "" {
		log.Fatal("teng: -template is required")
	}

	root := fragment.NewFragment()
	if *data != "" {
		raw, err := os.ReadFile(*data)
		if err != nil {
			log.Fatalf("teng: read data file: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			log.Fatalf("teng: parse data file: %v", err)
		}
		f, err := fragment.FromMap(m)
		if err != nil {
			log.Fatalf("teng: build fragment tree: %v", err)
		}
		root = f
	}
	tree := fragment.NewTree(root)

	e := teng.New(nil)
	req := teng.Request{
		TemplateFilename: *template,
		DictFilename:     *dict,
		ParamsFilename:   *params,
		Lang:             *lang,
		ContentType:      *contentType,
	}

	if *out == "" {
		sw := writer.NewStringWriter()
		status, errLog := e.Generate(req, tree, sw)
		for _, entry := range errLog.Entries() {
			log.Printf("teng: %s", entry)
		}
		os.Stdout.WriteString(sw.String())
		os.Exit(status)
	}

	fw, err := writer.CreateFileWriter(*out)
	if err != nil {
		log.Fatalf("teng: create output file: %v", err)
	}
	status, errLog := e.Generate(req, tree, fw)
	for _, entry := range errLog.Entries() {
		log.Printf("teng: %s", entry)
	}
	if err := fw.Flush(); err != nil {
		log.Fatalf("teng: flush output: %v", err)
	}
	os.Exit(status)
}
