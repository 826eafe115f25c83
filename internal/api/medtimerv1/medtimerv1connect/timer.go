// Package medtimerv1connect wires the medtimer.v1 messages to Connect
// handlers and clients.
package medtimerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
)

// TimerServiceName is the fully-qualified name of the TimerService.
const TimerServiceName = "medtimer.v1.TimerService"

// Procedure paths of the TimerService.
const (
	TimerServiceStartProcedure             = "/medtimer.v1.TimerService/Start"
	TimerServiceRequestStopProcedure       = "/medtimer.v1.TimerService/RequestStop"
	TimerServiceConfirmStopProcedure       = "/medtimer.v1.TimerService/ConfirmStop"
	TimerServiceDismissStopDialogProcedure = "/medtimer.v1.TimerService/DismissStopDialog"
	TimerServiceUpdateSettingsProcedure    = "/medtimer.v1.TimerService/UpdateSettings"
	TimerServiceGetStateProcedure          = "/medtimer.v1.TimerService/GetState"
	TimerServiceListSessionsProcedure      = "/medtimer.v1.TimerService/ListSessions"
	TimerServiceDeleteSessionProcedure     = "/medtimer.v1.TimerService/DeleteSession"
	TimerServiceClearAllSessionsProcedure  = "/medtimer.v1.TimerService/ClearAllSessions"
	TimerServiceExportCsvProcedure         = "/medtimer.v1.TimerService/ExportCsv"
	TimerServiceSubscribeEventsProcedure   = "/medtimer.v1.TimerService/SubscribeEvents"
	TimerServiceWatchSessionsProcedure     = "/medtimer.v1.TimerService/WatchSessions"
)

// TimerServiceHandler is implemented by the server.
type TimerServiceHandler interface {
	Start(context.Context, *connect.Request[medtimerv1.StartRequest]) (*connect.Response[medtimerv1.StartResponse], error)
	RequestStop(context.Context, *connect.Request[medtimerv1.RequestStopRequest]) (*connect.Response[medtimerv1.RequestStopResponse], error)
	ConfirmStop(context.Context, *connect.Request[medtimerv1.ConfirmStopRequest]) (*connect.Response[medtimerv1.ConfirmStopResponse], error)
	DismissStopDialog(context.Context, *connect.Request[medtimerv1.DismissStopDialogRequest]) (*connect.Response[medtimerv1.DismissStopDialogResponse], error)
	UpdateSettings(context.Context, *connect.Request[medtimerv1.UpdateSettingsRequest]) (*connect.Response[medtimerv1.UpdateSettingsResponse], error)
	GetState(context.Context, *connect.Request[medtimerv1.GetStateRequest]) (*connect.Response[medtimerv1.GetStateResponse], error)
	ListSessions(context.Context, *connect.Request[medtimerv1.ListSessionsRequest]) (*connect.Response[medtimerv1.ListSessionsResponse], error)
	DeleteSession(context.Context, *connect.Request[medtimerv1.DeleteSessionRequest]) (*connect.Response[medtimerv1.DeleteSessionResponse], error)
	ClearAllSessions(context.Context, *connect.Request[medtimerv1.ClearAllSessionsRequest]) (*connect.Response[medtimerv1.ClearAllSessionsResponse], error)
	ExportCsv(context.Context, *connect.Request[medtimerv1.ExportCsvRequest]) (*connect.Response[medtimerv1.ExportCsvResponse], error)
	SubscribeEvents(context.Context, *connect.Request[medtimerv1.SubscribeEventsRequest], *connect.ServerStream[medtimerv1.Event]) error
	WatchSessions(context.Context, *connect.Request[medtimerv1.WatchSessionsRequest], *connect.ServerStream[medtimerv1.ListSessionsResponse]) error
}

// NewTimerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewTimerServiceHandler(svc TimerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(medtimerv1.Codec{})}, opts...)
	readOnly := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)

	handlers := map[string]http.Handler{
		TimerServiceStartProcedure:             connect.NewUnaryHandler(TimerServiceStartProcedure, svc.Start, opts...),
		TimerServiceRequestStopProcedure:       connect.NewUnaryHandler(TimerServiceRequestStopProcedure, svc.RequestStop, opts...),
		TimerServiceConfirmStopProcedure:       connect.NewUnaryHandler(TimerServiceConfirmStopProcedure, svc.ConfirmStop, opts...),
		TimerServiceDismissStopDialogProcedure: connect.NewUnaryHandler(TimerServiceDismissStopDialogProcedure, svc.DismissStopDialog, opts...),
		TimerServiceUpdateSettingsProcedure:    connect.NewUnaryHandler(TimerServiceUpdateSettingsProcedure, svc.UpdateSettings, opts...),
		TimerServiceGetStateProcedure:          connect.NewUnaryHandler(TimerServiceGetStateProcedure, svc.GetState, readOnly...),
		TimerServiceListSessionsProcedure:      connect.NewUnaryHandler(TimerServiceListSessionsProcedure, svc.ListSessions, readOnly...),
		TimerServiceDeleteSessionProcedure:     connect.NewUnaryHandler(TimerServiceDeleteSessionProcedure, svc.DeleteSession, opts...),
		TimerServiceClearAllSessionsProcedure:  connect.NewUnaryHandler(TimerServiceClearAllSessionsProcedure, svc.ClearAllSessions, opts...),
		TimerServiceExportCsvProcedure:         connect.NewUnaryHandler(TimerServiceExportCsvProcedure, svc.ExportCsv, readOnly...),
		TimerServiceSubscribeEventsProcedure:   connect.NewServerStreamHandler(TimerServiceSubscribeEventsProcedure, svc.SubscribeEvents, opts...),
		TimerServiceWatchSessionsProcedure:     connect.NewServerStreamHandler(TimerServiceWatchSessionsProcedure, svc.WatchSessions, opts...),
	}

	path := "/" + TimerServiceName + "/"
	return path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, path) {
			http.NotFound(w, r)
			return
		}
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// TimerServiceClient is a client for the TimerService.
type TimerServiceClient struct {
	start             *connect.Client[medtimerv1.StartRequest, medtimerv1.StartResponse]
	requestStop       *connect.Client[medtimerv1.RequestStopRequest, medtimerv1.RequestStopResponse]
	confirmStop       *connect.Client[medtimerv1.ConfirmStopRequest, medtimerv1.ConfirmStopResponse]
	dismissStopDialog *connect.Client[medtimerv1.DismissStopDialogRequest, medtimerv1.DismissStopDialogResponse]
	updateSettings    *connect.Client[medtimerv1.UpdateSettingsRequest, medtimerv1.UpdateSettingsResponse]
	getState          *connect.Client[medtimerv1.GetStateRequest, medtimerv1.GetStateResponse]
	listSessions      *connect.Client[medtimerv1.ListSessionsRequest, medtimerv1.ListSessionsResponse]
	deleteSession     *connect.Client[medtimerv1.DeleteSessionRequest, medtimerv1.DeleteSessionResponse]
	clearAllSessions  *connect.Client[medtimerv1.ClearAllSessionsRequest, medtimerv1.ClearAllSessionsResponse]
	exportCsv         *connect.Client[medtimerv1.ExportCsvRequest, medtimerv1.ExportCsvResponse]
	subscribeEvents   *connect.Client[medtimerv1.SubscribeEventsRequest, medtimerv1.Event]
	watchSessions     *connect.Client[medtimerv1.WatchSessionsRequest, medtimerv1.ListSessionsResponse]
}

// NewTimerServiceClient creates a client for the TimerService at baseURL
// (for example http://localhost:8080). The JSON codec is always installed.
func NewTimerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TimerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(medtimerv1.Codec{})}, opts...)

	return &TimerServiceClient{
		start:             connect.NewClient[medtimerv1.StartRequest, medtimerv1.StartResponse](httpClient, baseURL+TimerServiceStartProcedure, opts...),
		requestStop:       connect.NewClient[medtimerv1.RequestStopRequest, medtimerv1.RequestStopResponse](httpClient, baseURL+TimerServiceRequestStopProcedure, opts...),
		confirmStop:       connect.NewClient[medtimerv1.ConfirmStopRequest, medtimerv1.ConfirmStopResponse](httpClient, baseURL+TimerServiceConfirmStopProcedure, opts...),
		dismissStopDialog: connect.NewClient[medtimerv1.DismissStopDialogRequest, medtimerv1.DismissStopDialogResponse](httpClient, baseURL+TimerServiceDismissStopDialogProcedure, opts...),
		updateSettings:    connect.NewClient[medtimerv1.UpdateSettingsRequest, medtimerv1.UpdateSettingsResponse](httpClient, baseURL+TimerServiceUpdateSettingsProcedure, opts...),
		getState:          connect.NewClient[medtimerv1.GetStateRequest, medtimerv1.GetStateResponse](httpClient, baseURL+TimerServiceGetStateProcedure, opts...),
		listSessions:      connect.NewClient[medtimerv1.ListSessionsRequest, medtimerv1.ListSessionsResponse](httpClient, baseURL+TimerServiceListSessionsProcedure, opts...),
		deleteSession:     connect.NewClient[medtimerv1.DeleteSessionRequest, medtimerv1.DeleteSessionResponse](httpClient, baseURL+TimerServiceDeleteSessionProcedure, opts...),
		clearAllSessions:  connect.NewClient[medtimerv1.ClearAllSessionsRequest, medtimerv1.ClearAllSessionsResponse](httpClient, baseURL+TimerServiceClearAllSessionsProcedure, opts...),
		exportCsv:         connect.NewClient[medtimerv1.ExportCsvRequest, medtimerv1.ExportCsvResponse](httpClient, baseURL+TimerServiceExportCsvProcedure, opts...),
		subscribeEvents:   connect.NewClient[medtimerv1.SubscribeEventsRequest, medtimerv1.Event](httpClient, baseURL+TimerServiceSubscribeEventsProcedure, opts...),
		watchSessions:     connect.NewClient[medtimerv1.WatchSessionsRequest, medtimerv1.ListSessionsResponse](httpClient, baseURL+TimerServiceWatchSessionsProcedure, opts...),
	}
}

func (c *TimerServiceClient) Start(ctx context.Context, req *connect.Request[medtimerv1.StartRequest]) (*connect.Response[medtimerv1.StartResponse], error) {
	return c.start.CallUnary(ctx, req)
}

func (c *TimerServiceClient) RequestStop(ctx context.Context, req *connect.Request[medtimerv1.RequestStopRequest]) (*connect.Response[medtimerv1.RequestStopResponse], error) {
	return c.requestStop.CallUnary(ctx, req)
}

func (c *TimerServiceClient) ConfirmStop(ctx context.Context, req *connect.Request[medtimerv1.ConfirmStopRequest]) (*connect.Response[medtimerv1.ConfirmStopResponse], error) {
	return c.confirmStop.CallUnary(ctx, req)
}

func (c *TimerServiceClient) DismissStopDialog(ctx context.Context, req *connect.Request[medtimerv1.DismissStopDialogRequest]) (*connect.Response[medtimerv1.DismissStopDialogResponse], error) {
	return c.dismissStopDialog.CallUnary(ctx, req)
}

func (c *TimerServiceClient) UpdateSettings(ctx context.Context, req *connect.Request[medtimerv1.UpdateSettingsRequest]) (*connect.Response[medtimerv1.UpdateSettingsResponse], error) {
	return c.updateSettings.CallUnary(ctx, req)
}

func (c *TimerServiceClient) GetState(ctx context.Context, req *connect.Request[medtimerv1.GetStateRequest]) (*connect.Response[medtimerv1.GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *TimerServiceClient) ListSessions(ctx context.Context, req *connect.Request[medtimerv1.ListSessionsRequest]) (*connect.Response[medtimerv1.ListSessionsResponse], error) {
	return c.listSessions.CallUnary(ctx, req)
}

func (c *TimerServiceClient) DeleteSession(ctx context.Context, req *connect.Request[medtimerv1.DeleteSessionRequest]) (*connect.Response[medtimerv1.DeleteSessionResponse], error) {
	return c.deleteSession.CallUnary(ctx, req)
}

func (c *TimerServiceClient) ClearAllSessions(ctx context.Context, req *connect.Request[medtimerv1.ClearAllSessionsRequest]) (*connect.Response[medtimerv1.ClearAllSessionsResponse], error) {
	return c.clearAllSessions.CallUnary(ctx, req)
}

func (c *TimerServiceClient) ExportCsv(ctx context.Context, req *connect.Request[medtimerv1.ExportCsvRequest]) (*connect.Response[medtimerv1.ExportCsvResponse], error) {
	return c.exportCsv.CallUnary(ctx, req)
}

func (c *TimerServiceClient) SubscribeEvents(ctx context.Context, req *connect.Request[medtimerv1.SubscribeEventsRequest]) (*connect.ServerStreamForClient[medtimerv1.Event], error) {
	return c.subscribeEvents.CallServerStream(ctx, req)
}

func (c *TimerServiceClient) WatchSessions(ctx context.Context, req *connect.Request[medtimerv1.WatchSessionsRequest]) (*connect.ServerStreamForClient[medtimerv1.ListSessionsResponse], error) {
	return c.watchSessions.CallServerStream(ctx, req)
}
