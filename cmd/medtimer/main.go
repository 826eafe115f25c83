// Package main provides the medtimer command-line client.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/medtimer/internal/api/connect"
	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
	"github.com/osa030/medtimer/internal/api/medtimerv1/medtimerv1connect"
	"github.com/osa030/medtimer/internal/infra/config"
)

// socketBaseURL is the placeholder host used when dialing the unix socket.
const socketBaseURL = "http://medtimerd"

// setFlags records which `set` flags were given on the command line.
var setFlags struct {
	countdown, unit, intervals, volume, debug bool
}

var (
	app    = kingpin.New("medtimer", "Meditation timer client")
	socket = app.Flag("socket", "Daemon control socket").Envar("MEDTIMER_SOCKET").Default(config.DefaultSocketPath()).String()
	server = app.Flag("server", "Daemon URL, overrides --socket (e.g. http://localhost:7070)").Envar("MEDTIMER_SERVER").String()
	token  = app.Flag("token", "Token for a daemon listening on TCP").Envar("MEDTIMER_TOKEN").String()

	startCmd   = app.Command("start", "Start the countdown")
	stopCmd    = app.Command("stop", "Stop: cancels a countdown, asks for confirmation during meditation")
	keepCmd    = app.Command("keep", "Confirm the stop and keep the time meditated so far")
	discardCmd = app.Command("discard", "Confirm the stop and discard the session")
	resumeCmd  = app.Command("resume", "Dismiss the stop request and continue")

	setCmd       = app.Command("set", "Change timer settings (only the volume while running)")
	setCountdown = setCmd.Flag("countdown", "Countdown seconds (1-30)").IsSetByUser(&setFlags.countdown).Int32()
	setUnit      = setCmd.Flag("unit", "Interval length in minutes, seconds in debug mode (1-15)").IsSetByUser(&setFlags.unit).Int32()
	setIntervals = setCmd.Flag("intervals", "Number of intervals (1-10)").IsSetByUser(&setFlags.intervals).Int32()
	setVolume    = setCmd.Flag("volume", "White noise volume (0.0-1.0)").IsSetByUser(&setFlags.volume).Float64()
	setDebug     = setCmd.Flag("debug", "Interpret the interval unit as seconds (--no-debug for minutes)").IsSetByUser(&setFlags.debug).Bool()

	statusCmd = app.Command("status", "Show the timer state and settings")
	watchCmd  = app.Command("watch", "Follow the timer live")

	historyCmd    = app.Command("history", "List stored sessions")
	historyFollow = historyCmd.Flag("follow", "Keep running and reprint the list when it changes").Short('f').Bool()

	deleteCmd = app.Command("delete", "Delete one session")
	deleteID  = deleteCmd.Arg("id", "Session ID").Required().Int64()

	clearCmd = app.Command("clear", "Delete every session")
	clearYes = clearCmd.Flag("yes", "Do not ask for confirmation").Short('y').Bool()

	exportCmd    = app.Command("export", "Export sessions as CSV")
	exportOutput = exportCmd.Flag("output", "Write to file instead of stdout").Short('o').String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := newClient()
	ctx := context.Background()

	var err error
	switch command {
	case startCmd.FullCommand():
		err = start(ctx, client)
	case stopCmd.FullCommand():
		err = stop(ctx, client)
	case keepCmd.FullCommand():
		err = confirmStop(ctx, client, true)
	case discardCmd.FullCommand():
		err = confirmStop(ctx, client, false)
	case resumeCmd.FullCommand():
		err = resume(ctx, client)
	case setCmd.FullCommand():
		err = updateSettings(ctx, client)
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	case historyCmd.FullCommand():
		if *historyFollow {
			err = followSessions(ctx, client)
		} else {
			err = listSessions(ctx, client)
		}
	case deleteCmd.FullCommand():
		err = deleteSession(ctx, client, *deleteID)
	case clearCmd.FullCommand():
		err = clearSessions(ctx, client, *clearYes)
	case exportCmd.FullCommand():
		err = exportCSV(ctx, client, *exportOutput)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}

// newClient dials the daemon over its unix socket unless --server is set.
func newClient() *medtimerv1connect.TimerServiceClient {
	baseURL := *server
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if baseURL == "" {
		baseURL = socketBaseURL
		path := *socket
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}
	}

	var rt http.RoundTripper = transport
	if *token != "" {
		rt = tokenTransport{token: *token, next: transport}
	}
	return medtimerv1connect.NewTimerServiceClient(&http.Client{Transport: rt}, baseURL)
}

// tokenTransport adds the daemon token to every request.
type tokenTransport struct {
	token string
	next  http.RoundTripper
}

func (t tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(apiconnect.TokenHeader, t.token)
	return t.next.RoundTrip(req)
}

func start(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	resp, err := client.Start(ctx, connect.NewRequest(&medtimerv1.StartRequest{}))
	if err != nil {
		return err
	}
	if !resp.Msg.Started {
		fmt.Println("A session is already in progress.")
	} else {
		fmt.Println("Countdown started.")
	}
	fmt.Println(renderState(resp.Msg.State))
	return nil
}

func stop(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	resp, err := client.RequestStop(ctx, connect.NewRequest(&medtimerv1.RequestStopRequest{}))
	if err != nil {
		return err
	}
	switch resp.Msg.Result {
	case medtimerv1.StopResultCancelled:
		fmt.Println("Countdown cancelled.")
	case medtimerv1.StopResultAwaitingConfirmation:
		fmt.Println("Paused. Run `medtimer keep` to save the session, `medtimer discard` to drop it or `medtimer resume` to continue.")
	default:
		fmt.Println("Nothing to stop.")
	}
	return nil
}

func confirmStop(ctx context.Context, client *medtimerv1connect.TimerServiceClient, keep bool) error {
	_, err := client.ConfirmStop(ctx, connect.NewRequest(&medtimerv1.ConfirmStopRequest{KeepSession: keep}))
	if err != nil {
		return err
	}
	if keep {
		fmt.Println("Stopped. Session saved.")
	} else {
		fmt.Println("Stopped. Session discarded.")
	}
	return nil
}

func resume(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	resp, err := client.DismissStopDialog(ctx, connect.NewRequest(&medtimerv1.DismissStopDialogRequest{}))
	if err != nil {
		return err
	}
	fmt.Println("Resumed.")
	fmt.Println(renderState(resp.Msg.State))
	return nil
}

func updateSettings(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	req := &medtimerv1.UpdateSettingsRequest{}
	if setFlags.countdown {
		req.CountdownSeconds = setCountdown
	}
	if setFlags.unit {
		req.IntervalUnit = setUnit
	}
	if setFlags.intervals {
		req.NumIntervals = setIntervals
	}
	if setFlags.volume {
		req.WhiteNoiseVolume = setVolume
	}
	if setFlags.debug {
		req.Debug = setDebug
	}

	resp, err := client.UpdateSettings(ctx, connect.NewRequest(req))
	if err != nil {
		return err
	}
	fmt.Println(renderSettings(resp.Msg.Settings))
	return nil
}

func status(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	resp, err := client.GetState(ctx, connect.NewRequest(&medtimerv1.GetStateRequest{}))
	if err != nil {
		return err
	}
	fmt.Println(renderState(resp.Msg.State))
	fmt.Println()
	fmt.Println(renderSettings(resp.Msg.State.Settings))
	return nil
}

func watch(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	stream, err := client.SubscribeEvents(ctx, connect.NewRequest(&medtimerv1.SubscribeEventsRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching. Press Ctrl+C to exit.")

	for stream.Receive() {
		fmt.Println(renderEvent(stream.Msg()))
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func listSessions(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	resp, err := client.ListSessions(ctx, connect.NewRequest(&medtimerv1.ListSessionsRequest{}))
	if err != nil {
		return err
	}
	fmt.Println(renderSessions(resp.Msg))
	return nil
}

func followSessions(ctx context.Context, client *medtimerv1connect.TimerServiceClient) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	stream, err := client.WatchSessions(ctx, connect.NewRequest(&medtimerv1.WatchSessionsRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		fmt.Println(renderSessions(stream.Msg()))
		fmt.Println()
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func deleteSession(ctx context.Context, client *medtimerv1connect.TimerServiceClient, id int64) error {
	if _, err := client.DeleteSession(ctx, connect.NewRequest(&medtimerv1.DeleteSessionRequest{Id: id})); err != nil {
		return err
	}
	fmt.Printf("Session %d deleted.\n", id)
	return nil
}

func clearSessions(ctx context.Context, client *medtimerv1connect.TimerServiceClient, yes bool) error {
	if !yes {
		fmt.Print("Delete every session? This cannot be undone. [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}
	if _, err := client.ClearAllSessions(ctx, connect.NewRequest(&medtimerv1.ClearAllSessionsRequest{})); err != nil {
		return err
	}
	fmt.Println("All sessions deleted.")
	return nil
}

func exportCSV(ctx context.Context, client *medtimerv1connect.TimerServiceClient, output string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := client.ExportCsv(ctx, connect.NewRequest(&medtimerv1.ExportCsvRequest{}))
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Print(resp.Msg.Csv)
		return nil
	}
	if err := os.WriteFile(output, []byte(resp.Msg.Csv), 0o644); err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", output)
	return nil
}

// describeError turns RPC failures into something a user can act on.
func describeError(err error) string {
	switch connect.CodeOf(err) {
	case connect.CodeUnavailable:
		return "cannot reach medtimerd, is the daemon running?"
	case connect.CodeFailedPrecondition:
		return "no stop is waiting for confirmation"
	case connect.CodeNotFound:
		return "no such session"
	case connect.CodeUnauthenticated:
		return "the daemon rejected the token, check --token"
	}
	return err.Error()
}
