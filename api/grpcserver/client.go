package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a thin typed wrapper over a connection to the OrderedMap
// service. It forces the wire codec on every call, so the connection needs
// no special dial options.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Get returns the value and version for key; found is false when the key
// is absent.
func (c *Client) Get(ctx context.Context, key []byte, opts ...grpc.CallOption) (value []byte, version uint64, found bool, err error) {
	out := new(GetResponse)
	if err := c.invoke(ctx, "Get", &GetRequest{Key: key}, out, opts); err != nil {
		return nil, 0, false, err
	}
	return out.Value, out.Version, out.Found, nil
}

func (c *Client) Put(ctx context.Context, key, value []byte, opts ...grpc.CallOption) (uint64, error) {
	out := new(PutResponse)
	if err := c.invoke(ctx, "Put", &PutRequest{Key: key, Value: value}, out, opts); err != nil {
		return 0, err
	}
	return out.Version, nil
}

func (c *Client) Stats(ctx context.Context, opts ...grpc.CallOption) (*StatsResponse, error) {
	out := new(StatsResponse)
	if err := c.invoke(ctx, "Stats", &StatsRequest{}, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.ForceCodec(codec{})}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}
