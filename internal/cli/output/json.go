// Package output renders command results as text or as a JSON envelope
// and carries the error codes shared by kb and ccouch.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *Meta       `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count int `json:"count,omitempty"`
}

// Printer writes results to Out, as an envelope when JSON is set.
type Printer struct {
	Out  io.Writer
	JSON bool
}

func (p *Printer) encode(resp Response) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success writes a successful envelope. It is a no-op in text mode.
func (p *Printer) Success(data interface{}, meta *Meta) error {
	if !p.JSON {
		return nil
	}
	return p.encode(Response{OK: true, Data: data, Meta: meta})
}

// Fail writes an error envelope for err. It is a no-op in text mode.
func (p *Printer) Fail(err error) error {
	if !p.JSON || err == nil {
		return nil
	}
	code, suggestion := Classify(err)
	return p.encode(Response{
		Error: &ErrorInfo{Code: code, Message: err.Error(), Suggestion: suggestion},
	})
}

// Printf writes text output. It is a no-op in JSON mode.
func (p *Printer) Printf(format string, args ...interface{}) {
	if p.JSON {
		return
	}
	fmt.Fprintf(p.Out, format, args...)
}

// Println writes a line of text output. It is a no-op in JSON mode.
func (p *Printer) Println(args ...interface{}) {
	if p.JSON {
		return
	}
	fmt.Fprintln(p.Out, args...)
}
