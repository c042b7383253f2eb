package host

import (
	"bufio"
	"context"
	"io"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxRequestSize bounds one request line; update_content carries the whole
// document.
const maxRequestSize = 64 << 20

// Serve reads newline-delimited requests from r and writes one response
// line per request to w:
//
//	{"id":1,"op":"update_metadata","arg":"{\"start\":1,...}"}
//	{"ok":true,"result":null,"id":1}
//
// The arg may also be given as a JSON value, which is passed on as its raw
// text. Serve returns nil at end of input and ctx.Err() once ctx is done;
// cancellation is observed between requests.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if _, err := out.WriteString(d.handle(string(line))); err != nil {
			return err
		}
		if err := out.WriteByte('\n'); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handle answers one request line.
func (d *Dispatcher) handle(line string) string {
	if !gjson.Valid(line) {
		return errorEnvelope(errInvalidRequest("not valid JSON"))
	}

	req := gjson.GetMany(line, "id", "op", "arg")
	id, op, arg := req[0], req[1], req[2]

	var resp string
	switch {
	case op.Type != gjson.String:
		resp = errorEnvelope(errInvalidRequest("missing op"))
	case arg.Type == gjson.String:
		resp = d.Call(op.Str, arg.Str)
	default:
		resp = d.Call(op.Str, arg.Raw)
	}

	if id.Exists() {
		if withID, err := sjson.SetRaw(resp, "id", id.Raw); err == nil {
			resp = withID
		}
	}
	return resp
}

type errInvalidRequest string

func (e errInvalidRequest) Error() string { return "host: invalid request: " + string(e) }
