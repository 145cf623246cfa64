package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/peerglobe/model"
)

// Client is a thin GlobeControl client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetState(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetState"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLayout(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetLayout"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) NavigateTo(ctx context.Context, index int32, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "NavigateTo", wrapperspb.Int32(index), opts...)
}

func (c *Client) Next(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "Next", &emptypb.Empty{}, opts...)
}

func (c *Client) Previous(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "Previous", &emptypb.Empty{}, opts...)
}

func (c *Client) NavigateByExternalID(ctx context.Context, identifier string, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "NavigateByExternalID", wrapperspb.String(identifier), opts...)
}

func (c *Client) SelectEntity(ctx context.Context, id string, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "SelectEntity", wrapperspb.String(id), opts...)
}

func (c *Client) ClearSelection(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("ClearSelection"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func (c *Client) CenterOn(ctx context.Context, at model.Coordinate, zoom float64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{"lat": at.Lat, "lon": at.Lon, "zoom": zoom})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod("CenterOn"), in, new(emptypb.Empty), opts...)
}

func (c *Client) SetScan(ctx context.Context, scan model.ScanPayload, opts ...grpc.CallOption) error {
	targets := make([]any, len(scan.Targets))
	for i, t := range scan.Targets {
		targets[i] = t
	}
	in, err := structpb.NewStruct(map[string]any{
		"reference": map[string]any{"lat": scan.Reference.Lat, "lon": scan.Reference.Lon},
		"targets":   targets,
	})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod("SetScan"), in, new(emptypb.Empty), opts...)
}

func (c *Client) ClearScan(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "ClearScan", &emptypb.Empty{}, opts...)
}

func (c *Client) OpenDetail(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	return c.invokeBool(ctx, "OpenDetail", &emptypb.Empty{}, opts...)
}

func (c *Client) ResetRotation(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("ResetRotation"), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func (c *Client) invokeBool(ctx context.Context, method string, in any, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}
