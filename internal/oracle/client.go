package oracle

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region constants

const (
	serviceName = "oracle.v1.ChatService"
	chatMethod  = "/" + serviceName + "/Chat"
)

// #endregion constants

// #region client-struct

// GRPCClient talks to the chat oracle sidecar over gRPC. Requests and replies are
// protobuf Structs so no generated stubs are needed on either side.
type GRPCClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor

// Dial connects to the oracle sidecar at addr.
func Dial(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, cc: conn}, nil
}

// NewGRPCClientWithConn wraps an existing connection. Used by tests with bufconn.
func NewGRPCClientWithConn(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

// #endregion constructor

// #region close

// Close shuts down the gRPC connection if this client owns it.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region chat

// Chat sends the role-tagged messages and returns the oracle's reply text.
func (c *GRPCClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	req, err := encodeRequest(messages, opts)
	if err != nil {
		return "", err
	}

	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, chatMethod, req, resp); err != nil {
		log.Printf("[ORACLE] chat failed: code=%s messages=%d", status.Code(err), len(messages))
		return "", fmt.Errorf("chat rpc: %w", err)
	}
	return decodeResponse(resp)
}

// #endregion chat

// #region encoding

func encodeRequest(messages []Message, opts Options) (*structpb.Struct, error) {
	msgs := make([]any, len(messages))
	for i, m := range messages {
		msgs[i] = map[string]any{
			"role": string(m.Role),
			"text": m.Text,
		}
	}
	req, err := structpb.NewStruct(map[string]any{
		"messages": msgs,
		"options": map[string]any{
			"reasoning_effort": opts.ReasoningEffort,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	return req, nil
}

func decodeRequest(req *structpb.Struct) ([]Message, Options) {
	var opts Options
	fields := req.GetFields()
	if o := fields["options"].GetStructValue(); o != nil {
		opts.ReasoningEffort = o.GetFields()["reasoning_effort"].GetStringValue()
	}

	list := fields["messages"].GetListValue().GetValues()
	messages := make([]Message, 0, len(list))
	for _, v := range list {
		m := v.GetStructValue().GetFields()
		messages = append(messages, Message{
			Role: Role(m["role"].GetStringValue()),
			Text: m["text"].GetStringValue(),
		})
	}
	return messages, opts
}

func decodeResponse(resp *structpb.Struct) (string, error) {
	v, ok := resp.GetFields()["text"]
	if !ok {
		return "", fmt.Errorf("chat response missing text field")
	}
	return v.GetStringValue(), nil
}

// #endregion encoding
