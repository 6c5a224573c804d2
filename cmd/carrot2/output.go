package main

import (
	"encoding/json"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// output renders command results as a table or as indented JSON
type output struct {
	jsonMode bool
	w        io.Writer
}

func (o *output) print(headers []string, rows [][]string, jsonData any) error {
	if o.jsonMode {
		return o.json(jsonData)
	}
	o.table(headers, rows)
	return nil
}

func (o *output) table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(o.w)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		t.AppendRow(r)
	}

	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}

func (o *output) json(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
