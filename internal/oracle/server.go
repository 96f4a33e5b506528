package oracle

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChatServer is the server side of the oracle chat method.
type ChatServer interface {
	Chat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterChatServer registers srv on s under oracle.v1.ChatService.
func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&chatServiceDesc, srv)
}

// NewChatServer exposes any Client as a ChatServer, e.g. to serve a local model
// or a scripted fake behind the same wire contract the trainer dials.
func NewChatServer(c Client) ChatServer {
	return &clientServer{client: c}
}

type clientServer struct {
	client Client
}

func (s *clientServer) Chat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	messages, opts := decodeRequest(req)
	text, err := s.client.Chat(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"text": text})
}

func chatHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServer).Chat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: chatMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServer).Chat(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Chat", Handler: chatHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oracle/v1/chat.proto",
}
