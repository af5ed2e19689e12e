// Command gengolden regenerates the want.jir and totals.yaml sections of the
// golden fixtures from their input.jir sections.
//
// Usage (from the repository root):
//
//	go run ./testdata/cmd/gengolden
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/pkg/errors"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/mpyw/reflectfold"
)

func main() {
	files, err := filepath.Glob(filepath.Join("testdata", "src", "*.txtar"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p, err := reflectfold.New(reflectfold.Options{
		Workers: 1,
		Logger:  &log.Logger{Handler: discard.Default, Level: log.InfoLevel},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("Generating golden for %s...\n", filepath.Base(file))
		if err := generate(p, file); err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}
		fmt.Printf("  Updated %s\n", filepath.Base(file))
	}
}

func generate(p *reflectfold.Pass, path string) error {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return err
	}

	var input []byte
	found := false
	for _, f := range ar.Files {
		if f.Name == "input.jir" {
			input, found = f.Data, true
			break
		}
	}
	if !found {
		return errors.New("no input.jir section")
	}

	out, rep, err := p.Rewrite(context.Background(), filepath.Base(path), input)
	if err != nil {
		return err
	}
	totals, err := yaml.Marshal(rep.Totals)
	if err != nil {
		return errors.Wrap(err, "marshal totals")
	}

	ar.Files = []txtar.File{
		{Name: "input.jir", Data: input},
		{Name: "want.jir", Data: out},
		{Name: "totals.yaml", Data: totals},
	}
	return os.WriteFile(path, txtar.Format(ar), 0o644)
}
