package admin

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpcreflect"
	"github.com/mcdev12/typerace/go/internal/race/gateway"
	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatsSource reads a hub snapshot.
type StatsSource interface {
	Stats(ctx context.Context) (session.Stats, error)
}

// ConnectionSource reads transport counters.
type ConnectionSource interface {
	ConnectionStats() gateway.ConnectionStats
}

// Service implements typerace.admin.v1.AdminService.
type Service struct {
	hub   StatsSource
	conns ConnectionSource
}

func NewService(hub StatsSource, conns ConnectionSource) *Service {
	return &Service{hub: hub, conns: conns}
}

func (s *Service) GetStats(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	stats, err := s.hub.Stats(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	rooms := make([]any, 0, len(stats.Rooms))
	for _, r := range stats.Rooms {
		users := make([]any, 0, len(r.Users))
		for _, u := range r.Users {
			users = append(users, u.Username)
		}
		rooms = append(rooms, map[string]any{
			"name":  r.Name,
			"phase": r.Phase,
			"users": users,
		})
	}

	fields := map[string]any{
		"connected_users": stats.ConnectedUsers,
		"rooms":           len(stats.Rooms),
		"available_rooms": stats.Available,
		"countdown_rooms": stats.Countdown,
		"racing_rooms":    stats.Racing,
		"room_list":       rooms,
	}
	if s.conns != nil {
		fields["connections"] = s.conns.ConnectionStats().TotalConnections
	}

	body, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build stats: %w", err))
	}
	return connect.NewResponse(body), nil
}

// RegisterRoutes mounts the admin service and its reflection handlers.
func (s *Service) RegisterRoutes(mux *http.ServeMux) error {
	desc, err := registerDescriptor()
	if err != nil {
		return err
	}

	mux.Handle(GetStatsProcedure, connect.NewUnaryHandler(
		GetStatsProcedure,
		s.GetStats,
		connect.WithSchema(desc.Methods().ByName("GetStats")),
	))

	reflector := grpcreflect.NewStaticReflector(ServiceName)
	mux.Handle(grpcreflect.NewHandlerV1(reflector))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))

	log.Info().Str("service", ServiceName).Msg("admin routes registered")
	return nil
}
