package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/command"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// BuffServiceName is the fully-qualified name of the buff service
	BuffServiceName = "buffring.v1.BuffService"

	// BuffServiceSendProcedure applies one command message
	BuffServiceSendProcedure = "/" + BuffServiceName + "/Send"
	// BuffServiceListBuffsProcedure returns the registry snapshot
	BuffServiceListBuffsProcedure = "/" + BuffServiceName + "/ListBuffs"
)

// BuffServiceHandler serves commands and snapshots over Connect. Messages are
// well-known protobuf types so any Connect, gRPC or gRPC-Web client can call
// it without generated stubs
type BuffServiceHandler struct {
	receiver *command.Receiver
	state    StateProvider
}

// NewBuffServiceHandler builds the handler and returns its mount path
func NewBuffServiceHandler(receiver *command.Receiver, state StateProvider, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &BuffServiceHandler{receiver: receiver, state: state}

	sendHandler := connect.NewUnaryHandler(
		BuffServiceSendProcedure,
		h.Send,
		opts...,
	)
	listHandler := connect.NewUnaryHandler(
		BuffServiceListBuffsProcedure,
		h.ListBuffs,
		opts...,
	)

	return "/" + BuffServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BuffServiceSendProcedure:
			sendHandler.ServeHTTP(w, r)
		case BuffServiceListBuffsProcedure:
			listHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// Send decodes the struct as a command message and applies it. Unknown
// actions and malformed messages are dropped and still answer with Empty
func (h *BuffServiceHandler) Send(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	if req.Msg != nil {
		h.receiver.Receive(ctx, "connect", req.Msg.AsMap())
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// ListBuffs returns {"buffs": [...]} in display order
func (h *BuffServiceHandler) ListBuffs(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	out, err := viewsToStruct(h.state.Snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func viewsToStruct(views []buff.View) (*structpb.Struct, error) {
	if views == nil {
		views = []buff.View{}
	}
	raw, err := json.Marshal(SyncPayload{Buffs: views})
	if err != nil {
		return nil, fmt.Errorf("marshal buffs: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal buffs: %w", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("convert buffs: %w", err)
	}
	return out, nil
}
