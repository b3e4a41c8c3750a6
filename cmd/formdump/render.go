package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func render(w io.Writer, format Format, summary Summary) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		return renderText(w, summary)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func renderText(w io.Writer, summary Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "KIND\tNAME\tFILE NAME\tCONTENT TYPE\tSIZE\tVALUE")
	for _, p := range summary.Parameters {
		fmt.Fprintf(tw, "parameter\t%s\t\t\t%d\t%q\n", p.Name, len(p.Value), p.Value)
	}
	for _, f := range summary.Files {
		fmt.Fprintf(tw, "file\t%s\t%s\t%s\t%d\t%s\n", f.Name, f.FileName, f.ContentType, f.Size, f.Path)
	}

	return tw.Flush()
}
