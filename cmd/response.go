package cmd

import (
	"runtime"

	"github.com/svnwire/svnwire/wire"
)

// Error is a handler error carrying the debugging context the wire
// failure-response format transmits: an application error number, a
// human-readable message, and the source file/line where it was
// raised. Chain it via Cause to build a causal error chain.
type Error struct {
	Errno   uint64
	Message string
	File    string
	Line    uint32
	Cause   error
}

// NewError returns a new *Error, capturing the caller's file/line.
func NewError(errno uint64, message string, cause error) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{Errno: errno, Message: message, File: file, Line: uint32(line), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorRecord is one link of a failure response's error chain, in wire
// order: outermost cause first.
type ErrorRecord struct {
	Errno   uint64
	Message string
	File    string
	Line    uint32
}

// chainToRecords flattens a Go error chain into wire order, outermost
// first. Links that are not a *Error contribute a record with only a
// Message (Errno/File/Line left zero).
func chainToRecords(err error) []ErrorRecord {
	var recs []ErrorRecord
	for err != nil {
		if e, ok := err.(*Error); ok {
			recs = append(recs, ErrorRecord{Errno: e.Errno, Message: e.Message, File: e.File, Line: e.Line})
			err = e.Cause
			continue
		}
		recs = append(recs, ErrorRecord{Message: err.Error()})
		break // generic errors carry no further wire-visible cause
	}
	return recs
}

// recordsToChain reconstructs a Go error chain from wire order
// (outermost first), so that the innermost record becomes the deepest
// Unwrap() cause.
func recordsToChain(recs []ErrorRecord) error {
	var err error
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		err = &Error{Errno: r.Errno, Message: r.Message, File: r.File, Line: r.Line, Cause: err}
	}
	return err
}

// writeSuccess writes "(success . body)".
func writeSuccess(conn *wire.Conn, body wire.Item) error {
	if body.IsZero() {
		a := wire.NewArena()
		body = a.List()
	}
	return conn.WriteTuple("wl", "success", body)
}

// writeFailure writes "(failure . ((errno message file line)…))".
func writeFailure(conn *wire.Conn, a *wire.Arena, err error) error {
	recs := chainToRecords(err)
	items := make([]wire.Item, len(recs))
	for i, r := range recs {
		items[i] = a.List(a.Number(r.Errno), a.String([]byte(r.Message)), a.String([]byte(r.File)), a.Number(uint64(r.Line)))
	}
	return conn.WriteTuple("wl", "failure", a.List(items...))
}

// ReadResponse reads one "(status . body)" tuple and, for a failure
// response, reconstructs the error chain per recordsToChain. On
// success, body is returned as-is.
func ReadResponse(conn *wire.Conn, a *wire.Arena) (body wire.Item, err error) {
	var status string
	var list wire.Item
	if rerr := conn.ReadTuple(a, "wl", &status, &list); rerr != nil {
		return wire.Item{}, rerr
	}

	switch status {
	case "success":
		return list, nil
	case "failure":
		var recs []ErrorRecord
		for _, it := range list.List() {
			var errno, line uint64
			var message, file []byte
			if perr := wire.ParseTuple(it, "nssn", &errno, &message, &file, &line); perr != nil {
				return wire.Item{}, perr
			}
			recs = append(recs, ErrorRecord{Errno: errno, Message: string(message), File: string(file), Line: uint32(line)})
		}
		return wire.Item{}, recordsToChain(recs)
	default:
		return wire.Item{}, wire.ErrMalformed
	}
}
