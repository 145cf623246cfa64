package control

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/peerglobe/internal/engine"
	"github.com/signalsfoundry/peerglobe/internal/logging"
	"github.com/signalsfoundry/peerglobe/internal/observability"
	"github.com/signalsfoundry/peerglobe/model"
)

// Engine is what the control service drives. *engine.Engine implements it.
type Engine interface {
	State() engine.State
	Layout() engine.LayoutView
	NavigateTo(ctx context.Context, index int) (bool, error)
	Next(ctx context.Context) (bool, error)
	Previous(ctx context.Context) (bool, error)
	NavigateByExternalID(ctx context.Context, identifier string) (bool, error)
	ClickEntity(ctx context.Context, id string) (bool, error)
	ClearSelection(ctx context.Context) error
	CenterOn(ctx context.Context, c model.Coordinate, zoom float64) error
	SetScan(ctx context.Context, scan model.ScanPayload) error
	ClearScan(ctx context.Context) (bool, error)
	OpenDetail(ctx context.Context) (bool, error)
	ResetRotation(ctx context.Context) error
}

// Server implements GlobeControlServer on top of an Engine.
type Server struct {
	eng Engine
	log logging.Logger
}

var _ GlobeControlServer = (*Server)(nil)

// NewServer binds a control server to eng.
func NewServer(eng Engine, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{eng: eng, log: log}
}

// NewGRPCServer builds a gRPC server with the control and health services
// registered and the standard interceptor chain installed.
func NewGRPCServer(eng Engine, log logging.Logger, metrics *observability.GlobeCollector, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
			metrics.UnaryServerInterceptor(),
		),
	}
	srv := grpc.NewServer(append(base, opts...)...)
	RegisterGlobeControlServer(srv, NewServer(eng, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

func (s *Server) fail(ctx context.Context, method string, err error) error {
	st := ToStatusError(err)
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = s.log
	}
	log.Warn(ctx, "control request failed",
		logging.String("rpc", method),
		logging.Err(err),
	)
	return st
}

func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.eng.State())
	if err != nil {
		return nil, s.fail(ctx, "GetState", err)
	}
	return out, nil
}

func (s *Server) GetLayout(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.eng.Layout())
	if err != nil {
		return nil, s.fail(ctx, "GetLayout", err)
	}
	return out, nil
}

func (s *Server) NavigateTo(ctx context.Context, in *wrapperspb.Int32Value) (*wrapperspb.BoolValue, error) {
	return s.boolResult(ctx, "NavigateTo")(s.eng.NavigateTo(ctx, int(in.GetValue())))
}

func (s *Server) Next(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return s.boolResult(ctx, "Next")(s.eng.Next(ctx))
}

func (s *Server) Previous(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return s.boolResult(ctx, "Previous")(s.eng.Previous(ctx))
}

func (s *Server) NavigateByExternalID(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if in.GetValue() == "" {
		return nil, s.fail(ctx, "NavigateByExternalID", fmt.Errorf("%w: identifier is required", ErrInvalidRequest))
	}
	return s.boolResult(ctx, "NavigateByExternalID")(s.eng.NavigateByExternalID(ctx, in.GetValue()))
}

// SelectEntity behaves like a click on the entity's marker.
func (s *Server) SelectEntity(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if in.GetValue() == "" {
		return nil, s.fail(ctx, "SelectEntity", fmt.Errorf("%w: entity id is required", ErrInvalidRequest))
	}
	return s.boolResult(ctx, "SelectEntity")(s.eng.ClickEntity(ctx, in.GetValue()))
}

func (s *Server) ClearSelection(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.eng.ClearSelection(ctx); err != nil {
		return nil, s.fail(ctx, "ClearSelection", err)
	}
	return &emptypb.Empty{}, nil
}

// CenterOn expects {"lat": number, "lon": number, "zoom": number?}.
func (s *Server) CenterOn(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	c, err := coordinateFrom(in)
	if err != nil {
		return nil, s.fail(ctx, "CenterOn", err)
	}
	zoom, _, err := numberField(in, "zoom")
	if err != nil {
		return nil, s.fail(ctx, "CenterOn", err)
	}
	if err := s.eng.CenterOn(ctx, c, zoom); err != nil {
		return nil, s.fail(ctx, "CenterOn", err)
	}
	return &emptypb.Empty{}, nil
}

// SetScan expects {"reference": {"lat", "lon"}, "targets": [string...]}.
func (s *Server) SetScan(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	scan, err := scanFrom(in)
	if err != nil {
		return nil, s.fail(ctx, "SetScan", err)
	}
	if err := s.eng.SetScan(ctx, scan); err != nil {
		return nil, s.fail(ctx, "SetScan", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ClearScan(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return s.boolResult(ctx, "ClearScan")(s.eng.ClearScan(ctx))
}

func (s *Server) OpenDetail(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return s.boolResult(ctx, "OpenDetail")(s.eng.OpenDetail(ctx))
}

func (s *Server) ResetRotation(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.eng.ResetRotation(ctx); err != nil {
		return nil, s.fail(ctx, "ResetRotation", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) boolResult(ctx context.Context, method string) func(bool, error) (*wrapperspb.BoolValue, error) {
	return func(changed bool, err error) (*wrapperspb.BoolValue, error) {
		if err != nil {
			return nil, s.fail(ctx, method, err)
		}
		return wrapperspb.Bool(changed), nil
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return structpb.NewStruct(m)
}

// numberField reads an optional numeric field.
func numberField(s *structpb.Struct, name string) (float64, bool, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, false, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, name)
	}
	return n.NumberValue, true, nil
}

func coordinateFrom(s *structpb.Struct) (model.Coordinate, error) {
	lat, okLat, err := numberField(s, "lat")
	if err != nil {
		return model.Coordinate{}, err
	}
	lon, okLon, err := numberField(s, "lon")
	if err != nil {
		return model.Coordinate{}, err
	}
	if !okLat || !okLon {
		return model.Coordinate{}, fmt.Errorf("%w: lat and lon are required", ErrInvalidRequest)
	}
	return model.Coordinate{Lat: lat, Lon: lon}, nil
}

func scanFrom(s *structpb.Struct) (model.ScanPayload, error) {
	ref := s.GetFields()["reference"].GetStructValue()
	if ref == nil {
		return model.ScanPayload{}, fmt.Errorf("%w: reference is required", ErrInvalidRequest)
	}
	c, err := coordinateFrom(ref)
	if err != nil {
		return model.ScanPayload{}, err
	}
	scan := model.ScanPayload{Reference: c}
	for i, v := range s.GetFields()["targets"].GetListValue().GetValues() {
		str, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return model.ScanPayload{}, fmt.Errorf("%w: targets[%d] must be a string", ErrInvalidRequest, i)
		}
		scan.Targets = append(scan.Targets, str.StringValue)
	}
	return scan, nil
}
