// Package codec provides Envelope codecs for chanrpc.Router. JSON is the
// canonical wire encoding (section 6.3 of the specification); the
// Codec interface it satisfies keeps it swappable, the way the ber
// subpackage swaps in a compact binary alternative for constrained
// serial links.
package codec

import (
	"encoding/json"

	"github.com/damianoneill/chanrpc"
	"github.com/pkg/errors"
)

// JSON implements chanrpc.Codec using encoding/json, matching the field
// presence rules of section 4.1 exactly.
type JSON struct{}

// wireError is the canonical shape of a failure reply's "error" object.
type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// wireFrame is the on-the-wire JSON shape. Parsing tolerates any field
// order and missing optional fields (the zero value of every field here
// is the "absent" value).
type wireFrame struct {
	Version int             `json:"v"`
	ID      int64           `json:"id,omitempty"`
	Src     string          `json:"src"`
	Dst     string          `json:"dst,omitempty"`
	Tag     string          `json:"tag,omitempty"`
	Method  string          `json:"method,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

// Parse implements chanrpc.Codec.
func (JSON) Parse(frame []byte) (*chanrpc.Envelope, error) {
	var w wireFrame
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, errors.Wrap(chanrpc.ErrMalformedFrame, err.Error())
	}
	e := &chanrpc.Envelope{
		Version: w.Version,
		ID:      w.ID,
		Src:     w.Src,
		Dst:     w.Dst,
		Tag:     w.Tag,
		Method:  w.Method,
	}
	if len(w.Args) > 0 {
		e.Args = []byte(w.Args)
	}
	switch {
	case w.Error != nil:
		e.ErrorCode = w.Error.Code
		e.ErrorMsg = w.Error.Message
	case len(w.Result) > 0:
		e.Result = []byte(w.Result)
	}
	return e, nil
}

// Emit implements chanrpc.Codec, producing a canonical object with field
// presence exactly as specified in section 4.1:
//   - src is always included
//   - id is included iff nonzero
//   - dst, tag are included iff nonempty
//   - requests carry method (+ args, if present)
//   - successful replies carry result
//   - error replies carry error: { code, message? }
func (JSON) Emit(e *chanrpc.Envelope) ([]byte, error) {
	w := wireFrame{Version: e.Version, Src: e.Src}
	if e.ID != 0 {
		w.ID = e.ID
	}
	if e.Dst != "" {
		w.Dst = e.Dst
	}
	if e.Tag != "" {
		w.Tag = e.Tag
	}

	switch {
	case e.IsRequest():
		w.Method = e.Method
		if len(e.Args) > 0 {
			w.Args = e.Args
		}
	case e.ErrorCode != 0:
		w.Error = &wireError{Code: e.ErrorCode, Message: e.ErrorMsg}
	default:
		result := e.Result
		if result == nil {
			result = json.RawMessage("null")
		}
		w.Result = result
	}

	frame, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "emit envelope")
	}
	return frame, nil
}
