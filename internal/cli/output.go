package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/Foreman/internal/mq"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками данных и сообщений.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Event выводит событие задания: данные work complete — в stdout,
// остальные события — в stderr. В JSON-режиме каждое событие —
// отдельная строка JSON в stdout.
func (o *Output) Event(e JobEvent) {
	if o.jsonMode {
		json.NewEncoder(o.w).Encode(e)
		return
	}

	p := e.Payload
	switch e.Type {
	case mq.MessageTypeWorkStatus:
		fmt.Fprintf(o.errW, "%s: %d/%d\n", p.Handle, p.Numerator, p.Denominator)
	case mq.MessageTypeWorkComplete:
		o.w.Write(p.Data)
		if len(p.Data) > 0 && p.Data[len(p.Data)-1] != '\n' {
			fmt.Fprintln(o.w)
		}
	case mq.MessageTypeWorkFail:
		fmt.Fprintf(o.errW, "%s: failed\n", p.Handle)
	default:
		// work.data, work.warning, work.exception
		fmt.Fprintf(o.errW, "%s: %s: %s\n", p.Handle, strings.TrimPrefix(string(e.Type), "work."), p.Data)
	}
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
