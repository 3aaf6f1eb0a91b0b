package chanrpc

import (
	"encoding/json"
	"sort"
)

// Built-in introspection handlers (section 4.7) and the optional RPC.Hello
// handshake (section 6.4, supplemented per SPEC_FULL.md since the original
// mg_rpc.c answers it with the endpoint's own identity).

const (
	// MethodList is the introspection method listing every registered
	// method name.
	MethodList = "RPC.List"
	// MethodDescribe is the introspection method describing one method's
	// args_fmt.
	MethodDescribe = "RPC.Describe"
	// MethodHello is the handshake method peers use to learn an
	// endpoint's identity.
	MethodHello = "RPC.Hello"
)

// listResult and describeResult mirror the canonical JSON shapes handlers
// are expected to emit; other codecs translate them as they see fit.
type listResult struct {
	Methods []string `json:"methods"`
}

type describeArgs struct {
	Name string `json:"name"`
}

type describeResult struct {
	Name    string `json:"name"`
	ArgsFmt string `json:"args_fmt"`
}

type helloResult struct {
	ID string `json:"id"`
}

// AddListHandler registers the RPC.List and RPC.Describe introspection
// handlers described in section 4.7. Both require a trusted channel.
func (r *Router) AddListHandler() error {
	if err := r.AddHandler(MethodList, "", r.handleList); err != nil {
		return err
	}
	return r.AddHandler(MethodDescribe, `{"name":"string"}`, r.handleDescribe)
}

// AddHelloHandler registers RPC.Hello, which replies with this router's
// own configured identity, the way mg_rpc.c answers MG_RPC_HELLO_CMD.
func (r *Router) AddHelloHandler() error {
	return r.AddHandler(MethodHello, "", r.handleHello)
}

func (r *Router) handleList(req *RequestInfo, fi FrameInfo, _ []byte) {
	if !fi.ChannelIsTrusted {
		_ = r.RespondError(req, 403, "unauthorized")
		return
	}
	methods := make([]string, 0, len(r.handlers.byMethod))
	for m := range r.handlers.byMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	payload, err := json.Marshal(listResult{Methods: methods})
	if err != nil {
		_ = r.RespondError(req, 500, err.Error())
		return
	}
	_ = r.RespondSuccess(req, payload)
}

func (r *Router) handleDescribe(req *RequestInfo, fi FrameInfo, args []byte) {
	if !fi.ChannelIsTrusted {
		_ = r.RespondError(req, 403, "unauthorized")
		return
	}
	var a describeArgs
	if len(args) == 0 {
		_ = r.RespondError(req, 400, "name is required")
		return
	}
	if err := json.Unmarshal(args, &a); err != nil || a.Name == "" {
		_ = r.RespondError(req, 400, "name is required")
		return
	}
	hi, ok := r.handlers.byMethod[a.Name]
	if !ok {
		_ = r.RespondError(req, 404, "No handler for "+a.Name)
		return
	}
	payload, err := json.Marshal(describeResult{Name: hi.method, ArgsFmt: hi.argsFmt})
	if err != nil {
		_ = r.RespondError(req, 500, err.Error())
		return
	}
	_ = r.RespondSuccess(req, payload)
}

func (r *Router) handleHello(req *RequestInfo, _ FrameInfo, _ []byte) {
	payload, err := json.Marshal(helloResult{ID: r.cfg.ID})
	if err != nil {
		_ = r.RespondError(req, 500, err.Error())
		return
	}
	_ = r.RespondSuccess(req, payload)
}
