package codec_test

import (
	"testing"

	"github.com/damianoneill/chanrpc"
	"github.com/damianoneill/chanrpc/codec"
	assert "github.com/stretchr/testify/require"
)

func TestJSONEmitRequest(t *testing.T) {
	c := codec.JSON{}
	e := &chanrpc.Envelope{
		Version: chanrpc.Version2,
		ID:      7,
		Src:     "A",
		Dst:     "B",
		Tag:     "tag-1",
		Method:  "echo",
		Args:    []byte(`{"n":1}`),
	}
	frame, err := c.Emit(e)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"v":2,"id":7,"src":"A","dst":"B","tag":"tag-1","method":"echo","args":{"n":1}}`, string(frame))
}

func TestJSONEmitSuccessReply(t *testing.T) {
	c := codec.JSON{}
	e := &chanrpc.Envelope{Version: chanrpc.Version2, ID: 7, Src: "B", Dst: "A", Result: []byte(`42`)}
	frame, err := c.Emit(e)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"v":2,"id":7,"src":"B","dst":"A","result":42}`, string(frame))
}

func TestJSONEmitErrorReply(t *testing.T) {
	c := codec.JSON{}
	e := &chanrpc.Envelope{Version: chanrpc.Version2, ID: 7, Src: "B", Dst: "A", ErrorCode: 404, ErrorMsg: "not found"}
	frame, err := c.Emit(e)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"v":2,"id":7,"src":"B","dst":"A","error":{"code":404,"message":"not found"}}`, string(frame))
}

func TestJSONEmitOmitsZeroFields(t *testing.T) {
	c := codec.JSON{}
	// A notification: no id, no dst, no tag.
	e := &chanrpc.Envelope{Version: chanrpc.Version2, Src: "A", Method: "ping"}
	frame, err := c.Emit(e)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"v":2,"src":"A","method":"ping"}`, string(frame))
}

func TestJSONParseRequest(t *testing.T) {
	c := codec.JSON{}
	e, err := c.Parse([]byte(`{"v":2,"id":7,"src":"A","dst":"B","method":"echo","args":{"n":1}}`))
	assert.NoError(t, err)
	assert.True(t, e.IsRequest())
	assert.Equal(t, int64(7), e.ID)
	assert.Equal(t, "A", e.Src)
	assert.Equal(t, "echo", e.Method)
	assert.JSONEq(t, `{"n":1}`, string(e.Args))
}

func TestJSONParseErrorReply(t *testing.T) {
	c := codec.JSON{}
	e, err := c.Parse([]byte(`{"v":2,"id":7,"error":{"code":500,"message":"boom"}}`))
	assert.NoError(t, err)
	assert.False(t, e.IsRequest())
	assert.True(t, e.IsError())
	assert.Equal(t, 500, e.ErrorCode)
	assert.Equal(t, "boom", e.ErrorMsg)
}

func TestJSONParseMalformedFrame(t *testing.T) {
	c := codec.JSON{}
	_, err := c.Parse([]byte(`{not json`))
	assert.Error(t, err)
	assert.ErrorIs(t, err, chanrpc.ErrMalformedFrame)
}

func TestJSONRoundTrip(t *testing.T) {
	c := codec.JSON{}
	original := &chanrpc.Envelope{
		Version: chanrpc.Version2,
		ID:      99,
		Src:     "A",
		Dst:     "B",
		Tag:     "t",
		Method:  "m",
		Args:    []byte(`[1,2,3]`),
	}
	frame, err := c.Emit(original)
	assert.NoError(t, err)

	parsed, err := c.Parse(frame)
	assert.NoError(t, err)
	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.Src, parsed.Src)
	assert.Equal(t, original.Dst, parsed.Dst)
	assert.Equal(t, original.Tag, parsed.Tag)
	assert.Equal(t, original.Method, parsed.Method)
	assert.JSONEq(t, string(original.Args), string(parsed.Args))
}
