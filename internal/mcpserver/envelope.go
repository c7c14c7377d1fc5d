// Package mcpserver implements the two HTTP surfaces spec §4.K/§4.L
// describe: a bindable read-only server for search and catalog browsing,
// and a loopback-only admin server for catalog mutation and wizard control.
// Grounded on the teacher's internal/http Echo server: same middleware
// stack (recover, request ID, structured access log), same envelope-style
// JSON responses.
package mcpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/behemotion/docbro/internal/errs"
)

// Envelope is the shared response shape every MCP endpoint returns (spec
// §4.K).
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Error    *EnvelopeError `json:"error,omitempty"`
	Metadata any            `json:"metadata,omitempty"`
}

// EnvelopeError is the error half of Envelope.
type EnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func okWithMeta(data, metadata any) Envelope {
	return Envelope{Success: true, Data: data, Metadata: metadata}
}

func fail(code, message string) Envelope {
	return Envelope{Success: false, Error: &EnvelopeError{Code: code, Message: message}}
}

// writeErr translates an errs.Error (or any error) into the matching HTTP
// status and envelope, per spec §4.K: validation errors are 400, unknown
// entity is 404, everything else uncaught is 500.
func writeErr(c echo.Context, err error) error {
	kind, tagged := errs.As(err)
	if !tagged {
		return c.JSON(http.StatusInternalServerError, fail("internal", "internal error"))
	}
	status := errs.HTTPStatus(kind)
	return c.JSON(status, fail(string(kind), err.Error()))
}
