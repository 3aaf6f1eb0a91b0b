// Package ber implements a compact binary chanrpc.Codec using ASN.1 BER
// encoding, for channels where JSON's per-message overhead matters (serial
// links to the constrained devices this module targets per section 1).
// Encoding uses the standard library's encoding/asn1 (valid BER is valid
// DER's superset); decoding uses github.com/geoffgarside/ber, which is
// more tolerant of non-canonical BER than encoding/asn1.Unmarshal, the
// same division of labor the teacher's SNMP package uses it for (lenient
// decode of agent-supplied BER, see snmp/types.go).
package ber

import (
	"encoding/asn1"

	"github.com/damianoneill/chanrpc"
	"github.com/geoffgarside/ber"
	"github.com/pkg/errors"
)

// wireEnvelope is the ASN.1 SEQUENCE every Envelope maps to. Unlike the
// JSON codec, fields are always encoded (no presence suppression): the
// round-trip property of section 8 holds trivially since every field
// carries through unconditionally.
type wireEnvelope struct {
	Version   int
	ID        int64
	Src       string
	Dst       string
	Tag       string
	Method    string
	Args      []byte
	Result    []byte
	ErrorCode int
	ErrorMsg  string
}

// Codec implements chanrpc.Codec.
type Codec struct{}

// Parse implements chanrpc.Codec.
func (Codec) Parse(frame []byte) (*chanrpc.Envelope, error) {
	var w wireEnvelope
	if _, err := ber.Unmarshal(frame, &w); err != nil {
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
		e.Args = w.Args
	}
	switch {
	case w.ErrorCode != 0:
		e.ErrorCode = w.ErrorCode
		e.ErrorMsg = w.ErrorMsg
	case len(w.Result) > 0:
		e.Result = w.Result
	}
	return e, nil
}

// Emit implements chanrpc.Codec.
func (Codec) Emit(e *chanrpc.Envelope) ([]byte, error) {
	w := wireEnvelope{Version: e.Version, ID: e.ID, Src: e.Src, Dst: e.Dst, Tag: e.Tag}
	switch {
	case e.IsRequest():
		w.Method = e.Method
		w.Args = e.Args
	case e.ErrorCode != 0:
		w.ErrorCode = e.ErrorCode
		w.ErrorMsg = e.ErrorMsg
	default:
		w.Result = e.Result
	}
	frame, err := asn1.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "emit envelope (ber)")
	}
	return frame, nil
}
