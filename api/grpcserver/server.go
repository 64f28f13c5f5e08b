package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rbstore/domain/ordmap"
	"rbstore/infra/metrics"
	"rbstore/service"
)

const serviceName = "rbstore.v1.OrderedMap"

// OrderedMapServer is the server API of the OrderedMap service.
type OrderedMapServer interface {
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Put(context.Context, *PutRequest) (*PutResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

type Server struct {
	svc *service.IndexService
	log *slog.Logger
}

var _ OrderedMapServer = (*Server)(nil)

func NewServer(svc *service.IndexService, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log.With("component", "grpc")}
}

// NewGRPCServer builds a grpc.Server with the wire codec and the metrics
// interceptor installed, and registers srv on it.
func NewGRPCServer(srv OrderedMapServer, m *metrics.Metrics, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(codec{}),
		grpc.ChainUnaryInterceptor(metricsInterceptor(m)),
	}, opts...)
	s := grpc.NewServer(opts...)
	Register(s, srv)
	return s
}

func Register(s grpc.ServiceRegistrar, srv OrderedMapServer) {
	s.RegisterService(&serviceDesc, srv)
}

func (s *Server) Get(_ context.Context, req *GetRequest) (*GetResponse, error) {
	v, version, ok := s.svc.GetVersioned(req.Key)
	if !ok {
		return &GetResponse{}, nil
	}
	return &GetResponse{Value: v, Found: true, Version: version}, nil
}

func (s *Server) Put(ctx context.Context, req *PutRequest) (*PutResponse, error) {
	version, err := s.svc.Put(ctx, req.Key, req.Value)
	if err != nil {
		return nil, toStatus(err)
	}
	s.log.Debug("put", "key_len", len(req.Key), "value_len", len(req.Value), "version", version)
	return &PutResponse{Version: version}, nil
}

func (s *Server) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	st := s.svc.Stats()
	return &StatsResponse{Entries: uint64(st.Entries), LastVersion: st.LastVersion}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, ordmap.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func metricsInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.RPCTimes.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// --- service descriptor ---

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrderedMapServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "Stats", Handler: statsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordered_map.proto",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderedMapServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderedMapServer).Get(ctx, req.(*GetRequest))
	})
}

func putHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderedMapServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Put"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderedMapServer).Put(ctx, req.(*PutRequest))
	})
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderedMapServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Stats"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderedMapServer).Stats(ctx, req.(*StatsRequest))
	})
}
