// Package fifoproto implements the command-fifo wire format:
// ASCII request lines in, "<code> <text>" response lines out, where
// code < 0 is fatal, code == 0 is completion, and code > 0 is
// intermediate progress. Every command yields at least one response
// line; once a non-positive code is sent, no more lines follow for that
// command.
package fifoproto

import "fmt"

// Response is one line of a fifo reply.
type Response struct {
	Code int
	Text string
}

// String renders the response in the wire format "<code> <text>".
func (r Response) String() string {
	return fmt.Sprintf("%d %s", r.Code, r.Text)
}

// Terminal reports whether this response ends the command (code <= 0).
func (r Response) Terminal() bool {
	return r.Code <= 0
}

// Progress builds an intermediate (code > 0) response.
func Progress(code int, text string) Response {
	if code <= 0 {
		code = 1
	}
	return Response{Code: code, Text: text}
}

// Success builds the terminal code-0 response.
func Success(text string) Response {
	return Response{Code: 0, Text: text}
}

// Fail builds a terminal negative-code response.
func Fail(code int, text string) Response {
	if code >= 0 {
		code = -1
	}
	return Response{Code: code, Text: text}
}

// WxAlertCode is the reserved progress code for a weather-alert
// preemption: the shutter transitions to CLOSING with response code 9.
const WxAlertCode = 9

// Writer is whatever a device's fifo handler writes responses to: a
// net.Conn, an os.File opened on the `.out` fifo, or (in tests) a
// strings.Builder-backed stub.
type Writer interface {
	WriteResponse(Response) error
}

// Sink collects responses in memory; tests use it as a response sink.
type Sink struct {
	Responses []Response
}

func (s *Sink) WriteResponse(r Response) error {
	s.Responses = append(s.Responses, r)
	return nil
}

// Done reports whether the last response written was terminal.
func (s *Sink) Done() bool {
	if len(s.Responses) == 0 {
		return false
	}
	return s.Responses[len(s.Responses)-1].Terminal()
}
