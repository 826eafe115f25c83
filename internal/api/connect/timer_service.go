// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
	"github.com/osa030/medtimer/internal/api/medtimerv1/medtimerv1connect"
	"github.com/osa030/medtimer/internal/app/meditation"
	"github.com/osa030/medtimer/internal/app/notification"
	"github.com/osa030/medtimer/internal/app/timer"
	"github.com/osa030/medtimer/internal/domain/session"
	"github.com/osa030/medtimer/internal/infra/store"
)

// TimerService implements the TimerService RPC.
type TimerService struct {
	meditation *meditation.Service
}

// NewTimerService creates a new TimerService.
func NewTimerService(svc *meditation.Service) *TimerService {
	return &TimerService{meditation: svc}
}

// Ensure TimerService implements the interface.
var _ medtimerv1connect.TimerServiceHandler = (*TimerService)(nil)

// Start handles start requests.
func (s *TimerService) Start(
	ctx context.Context,
	req *connect.Request[medtimerv1.StartRequest],
) (*connect.Response[medtimerv1.StartResponse], error) {
	started, snap := s.meditation.Start()
	return connect.NewResponse(&medtimerv1.StartResponse{
		Started: started,
		State:   meditation.StateMessage(snap),
	}), nil
}

// RequestStop handles stop requests.
func (s *TimerService) RequestStop(
	ctx context.Context,
	req *connect.Request[medtimerv1.RequestStopRequest],
) (*connect.Response[medtimerv1.RequestStopResponse], error) {
	result := s.meditation.RequestStop()
	return connect.NewResponse(&medtimerv1.RequestStopResponse{
		Result: result.String(),
		State:  meditation.StateMessage(s.meditation.State()),
	}), nil
}

// ConfirmStop handles stop confirmations.
func (s *TimerService) ConfirmStop(
	ctx context.Context,
	req *connect.Request[medtimerv1.ConfirmStopRequest],
) (*connect.Response[medtimerv1.ConfirmStopResponse], error) {
	if err := s.meditation.ConfirmStop(req.Msg.KeepSession); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&medtimerv1.ConfirmStopResponse{
		State: meditation.StateMessage(s.meditation.State()),
	}), nil
}

// DismissStopDialog handles resume requests.
func (s *TimerService) DismissStopDialog(
	ctx context.Context,
	req *connect.Request[medtimerv1.DismissStopDialogRequest],
) (*connect.Response[medtimerv1.DismissStopDialogResponse], error) {
	if err := s.meditation.DismissStopDialog(); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&medtimerv1.DismissStopDialogResponse{
		State: meditation.StateMessage(s.meditation.State()),
	}), nil
}

// UpdateSettings handles settings changes.
func (s *TimerService) UpdateSettings(
	ctx context.Context,
	req *connect.Request[medtimerv1.UpdateSettingsRequest],
) (*connect.Response[medtimerv1.UpdateSettingsResponse], error) {
	res := s.meditation.Update(meditation.UpdateFromMessage(req.Msg))
	return connect.NewResponse(&medtimerv1.UpdateSettingsResponse{
		Settings: meditation.SettingsMessage(res.Settings),
	}), nil
}

// GetState returns the current timer state.
func (s *TimerService) GetState(
	ctx context.Context,
	req *connect.Request[medtimerv1.GetStateRequest],
) (*connect.Response[medtimerv1.GetStateResponse], error) {
	return connect.NewResponse(&medtimerv1.GetStateResponse{
		State: meditation.StateMessage(s.meditation.State()),
	}), nil
}

// ListSessions returns the session log with aggregate stats.
func (s *TimerService) ListSessions(
	ctx context.Context,
	req *connect.Request[medtimerv1.ListSessionsRequest],
) (*connect.Response[medtimerv1.ListSessionsResponse], error) {
	sessions, err := s.meditation.Sessions(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	stats, err := s.meditation.Stats(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(meditation.SessionListMessage(sessions, stats)), nil
}

// DeleteSession removes one session.
func (s *TimerService) DeleteSession(
	ctx context.Context,
	req *connect.Request[medtimerv1.DeleteSessionRequest],
) (*connect.Response[medtimerv1.DeleteSessionResponse], error) {
	if req.Msg.Id <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("invalid session id %d", req.Msg.Id))
	}
	if err := s.meditation.DeleteSession(ctx, req.Msg.Id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&medtimerv1.DeleteSessionResponse{}), nil
}

// ClearAllSessions removes every session.
func (s *TimerService) ClearAllSessions(
	ctx context.Context,
	req *connect.Request[medtimerv1.ClearAllSessionsRequest],
) (*connect.Response[medtimerv1.ClearAllSessionsResponse], error) {
	if err := s.meditation.ClearAllSessions(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&medtimerv1.ClearAllSessionsResponse{}), nil
}

// ExportCsv renders the session log as CSV.
func (s *TimerService) ExportCsv(
	ctx context.Context,
	req *connect.Request[medtimerv1.ExportCsvRequest],
) (*connect.Response[medtimerv1.ExportCsvResponse], error) {
	csv, err := s.meditation.ExportCSV(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&medtimerv1.ExportCsvResponse{Csv: csv}), nil
}

// SubscribeEvents streams the current state followed by every tick and
// phase change until the client goes away or the daemon shuts down.
func (s *TimerService) SubscribeEvents(
	ctx context.Context,
	req *connect.Request[medtimerv1.SubscribeEventsRequest],
	stream *connect.ServerStream[medtimerv1.Event],
) error {
	sub := s.meditation.Subscribe(stream)
	defer s.meditation.Unsubscribe(sub.ID())

	select {
	case <-ctx.Done():
		return nil
	case <-sub.Done():
	}

	switch err := sub.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, notification.ErrQueueFull), errors.Is(err, notification.ErrSendTimeout):
		return connect.NewError(connect.CodeResourceExhausted, err)
	default:
		return err
	}
}

// WatchSessions streams the session list with totals, once on subscribe and
// again after every change to the log.
func (s *TimerService) WatchSessions(
	ctx context.Context,
	req *connect.Request[medtimerv1.WatchSessionsRequest],
	stream *connect.ServerStream[medtimerv1.ListSessionsResponse],
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lists, err := s.meditation.WatchSessions(ctx)
	if err != nil {
		return toConnectError(err)
	}

	for {
		select {
		case <-s.meditation.Done():
			return nil
		case sessions, ok := <-lists:
			if !ok {
				return nil
			}
			msg := meditation.SessionListMessage(sessions, session.Summarize(sessions))
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, timer.ErrNoStopPending):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, store.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		zlog.Error().Err(err).Msg("rpc: internal error")
		return connect.NewError(connect.CodeInternal, err)
	}
}
