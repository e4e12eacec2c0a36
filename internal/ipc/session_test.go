package ipc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"mpvctl/internal/ipc"
	"mpvctl/internal/ipc/ipctest"
)

const (
	testPoll    = 20 * time.Millisecond
	waitTimeout = 2 * time.Second
)

func startSession(t *testing.T, srv *ipctest.Server, opts ...ipc.Option) *ipc.Session {
	t.Helper()
	opts = append([]ipc.Option{ipc.WithPollInterval(testPoll), ipc.WithConnectTimeout(time.Second)}, opts...)
	conn, err := ipc.Dial(context.Background(), srv.Path(), opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	session := conn.Start()
	t.Cleanup(func() { _ = session.Stop() })
	srv.WaitAccepted(t, waitTimeout)
	return session
}

func TestSendCommandReturnsCorrelatedReply(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	type result struct {
		reply ipc.Reply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := session.SendCommand(context.Background(), ipc.Command{"command": []string{"get_property", "pause"}}, waitTimeout)
		done <- result{reply, err}
	}()

	req := srv.NextRequest(t, waitTimeout)
	if req.ID != 1 {
		t.Fatalf("first request id = %d, want 1", req.ID)
	}
	if len(req.Command) != 2 || req.Command[0] != "get_property" || req.Command[1] != "pause" {
		t.Fatalf("unexpected command %v", req.Command)
	}
	srv.Push(t, `{"error":"success","request_id":1,"data":false}`+"\n")

	res := <-done
	if res.err != nil {
		t.Fatalf("SendCommand: %v", res.err)
	}
	if res.reply.Error != "success" || res.reply.ID() != 1 || string(res.reply.Data) != "false" {
		t.Fatalf("unexpected reply %+v data=%s", res.reply, res.reply.Data)
	}
	if got := len(session.UnmatchedReplies()); got != 0 {
		t.Fatalf("matched reply leaked into unmatched log: %d", got)
	}
}

func TestWaitForEventWokenByScriptMessage(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	type result struct {
		ev ipc.Event
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		ev, ok := session.WaitForEvent(context.Background(), "webm-script-loaded", waitTimeout)
		done <- result{ev, ok}
	}()

	time.Sleep(50 * time.Millisecond)
	srv.Push(t, `{"event":"client-message","args":["webm-script-loaded"]}`+"\n")

	res := <-done
	if !res.ok {
		t.Fatal("expected event to be found")
	}
	msg, isScript := res.ev.(ipc.ScriptMessage)
	if !isScript {
		t.Fatalf("expected ScriptMessage, got %T", res.ev)
	}
	if len(msg.Args) != 1 || msg.Args[0] != "webm-script-loaded" {
		t.Fatalf("unexpected args %v", msg.Args)
	}
	if got := len(session.Events()); got != 1 {
		t.Fatalf("event log = %d, want 1", got)
	}
}

func TestEventWithoutWaiterIsLogged(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	srv.Event(t, "pause")
	waitFor(t, func() bool { return len(session.Events()) == 1 })

	events := session.Events()
	if ev, ok := events[0].(ipc.GenericEvent); !ok || ev.Event != "pause" {
		t.Fatalf("unexpected event %#v", events[0])
	}
}

func TestWaitForEventFastPathReturnsFirstMatch(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	srv.ScriptMessage(t, "ready", "first")
	srv.ScriptMessage(t, "ready", "second")
	waitFor(t, func() bool { return len(session.Events()) == 2 })

	start := time.Now()
	ev, ok := session.WaitForEvent(context.Background(), "ready", 5*time.Second)
	if !ok {
		t.Fatal("expected logged event")
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("fast path blocked for %s", elapsed)
	}
	if args := ev.(ipc.ScriptMessage).Args; args[1] != "first" {
		t.Fatalf("expected first match, got %v", args)
	}
}

func TestWaitForEventTimesOut(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	const timeout = 150 * time.Millisecond
	start := time.Now()
	ev, ok := session.WaitForEvent(context.Background(), "never", timeout)
	elapsed := time.Since(start)
	if ok || ev != nil {
		t.Fatalf("expected not found, got %#v", ev)
	}
	if elapsed < timeout {
		t.Fatalf("returned after %s, before timeout %s", elapsed, timeout)
	}
	if elapsed > timeout+testPoll+500*time.Millisecond {
		t.Fatalf("returned after %s, far beyond timeout %s", elapsed, timeout)
	}
}

func TestMalformedLineDoesNotBlockSiblings(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	srv.Push(t, "not-json\n"+`{"event":"seek"}`+"\n")
	ev, ok := session.WaitForEvent(context.Background(), "seek", waitTimeout)
	if !ok || ev.Name() != "seek" {
		t.Fatalf("expected seek event, got %#v ok=%v", ev, ok)
	}
	if got := len(session.Events()); got != 1 {
		t.Fatalf("event log = %d, want 1", got)
	}
}

func TestFrameSplitAcrossWritesIsReassembled(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	srv.Push(t, `{"event":"client-me`)
	time.Sleep(3 * testPoll)
	srv.Push(t, `ssage","args":["split"]}`+"\n")

	if _, ok := session.WaitForEvent(context.Background(), "split", waitTimeout); !ok {
		t.Fatal("split frame was not reassembled")
	}
}

func TestConcurrentSendersReceiveOwnReplies(t *testing.T) {
	srv := ipctest.NewServer(t)
	srv.Handle(func(req ipctest.Request) []string {
		// Echo the property name back so each caller can check its own reply.
		return []string{ipctest.ReplyLine(req.ID, "success", req.Command[1])}
	})
	session := startSession(t, srv)

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("prop-%d", i)
		g.Go(func() error {
			reply, err := session.SendCommand(context.Background(), ipc.GetProperty(name), waitTimeout)
			if err != nil {
				return err
			}
			var got string
			if err := reply.Decode(&got); err != nil {
				return err
			}
			if got != name {
				return fmt.Errorf("caller %s received reply for %s", name, got)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if id := session.LastRequestID(); id != 32 {
		t.Fatalf("LastRequestID = %d, want 32", id)
	}
}

func TestTimedOutRequestIDIsNotReusedAndLateReplyIsUnmatched(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	_, err := session.SendCommand(context.Background(), ipc.GetProperty("pause"), 100*time.Millisecond)
	if !errors.Is(err, ipc.ErrCommandTimeout) {
		t.Fatalf("expected ErrCommandTimeout, got %v", err)
	}
	first := srv.NextRequest(t, waitTimeout)

	srv.Reply(t, first.ID, "success", true)
	waitFor(t, func() bool { return len(session.UnmatchedReplies()) == 1 })

	srv.Handle(ipctest.Success(nil))
	reply, err := session.SendCommand(context.Background(), ipc.GetProperty("pause"), waitTimeout)
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if reply.ID() <= first.ID {
		t.Fatalf("request id %d reused or decreased after %d", reply.ID(), first.ID)
	}
	if got := len(session.UnmatchedReplies()); got != 1 {
		t.Fatalf("unmatched = %d, want 1", got)
	}
}

func TestSendCommandOKReportsCommandError(t *testing.T) {
	srv := ipctest.NewServer(t)
	srv.Handle(func(req ipctest.Request) []string {
		return []string{ipctest.ReplyLine(req.ID, "property not found", nil)}
	})
	session := startSession(t, srv)

	_, err := session.SendCommandOK(context.Background(), ipc.GetProperty("bogus"), waitTimeout)
	var cmdErr *ipc.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if cmdErr.Code != "property not found" {
		t.Fatalf("code = %q", cmdErr.Code)
	}
}

func TestStopRejectsFurtherCommands(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if session.Running() {
		t.Fatal("session still running after Stop")
	}
	if _, err := session.SendCommand(context.Background(), ipc.GetProperty("pause"), time.Second); !errors.Is(err, ipc.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestStopLeavesPendingWaitersToTimeOut(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	var wg sync.WaitGroup
	wg.Add(1)
	var ok bool
	go func() {
		defer wg.Done()
		_, ok = session.WaitForEvent(context.Background(), "never", 300*time.Millisecond)
	}()
	time.Sleep(50 * time.Millisecond)
	if err := session.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	wg.Wait()
	if ok {
		t.Fatal("waiter should not be satisfied after Stop")
	}
}

func TestServerHangupEndsSession(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	srv.Hangup()
	select {
	case <-session.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not end after hangup")
	}
	if session.Err() == nil {
		t.Fatal("expected terminal read error")
	}
	if _, err := session.SendCommand(context.Background(), ipc.Quit(), time.Second); !errors.Is(err, ipc.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestDialRetriesUntilSocketListens(t *testing.T) {
	path := ipctest.SocketPath(t)
	ready := make(chan *ipctest.Server, 1)
	go func() {
		time.Sleep(150 * time.Millisecond)
		srv, err := ipctest.Listen(path)
		if err != nil {
			ready <- nil
			return
		}
		ready <- srv
	}()

	conn, err := ipc.Dial(context.Background(), path, ipc.WithConnectTimeout(3*time.Second))
	srv := <-ready
	if srv == nil {
		t.Fatal("listen failed")
	}
	t.Cleanup(srv.Close)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	_ = conn.Close()
}

func TestDialTimesOut(t *testing.T) {
	path := ipctest.SocketPath(t)
	start := time.Now()
	_, err := ipc.Dial(context.Background(), path, ipc.WithConnectTimeout(150*time.Millisecond))
	if !errors.Is(err, ipc.ErrConnectionTimeout) {
		t.Fatalf("expected ErrConnectionTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("gave up after %s", elapsed)
	}
}

type memoryRecorder struct {
	mu     sync.Mutex
	frames []ipc.Frame
}

func (r *memoryRecorder) Record(_ context.Context, _ string, f ipc.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *memoryRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Kind()
	}
	return out
}

func TestRecorderSeesBothDirections(t *testing.T) {
	srv := ipctest.NewServer(t)
	srv.Handle(ipctest.Success("idle"))
	rec := &memoryRecorder{}
	session := startSession(t, srv, ipc.WithRecorder(rec))

	if _, err := session.SendCommand(context.Background(), ipc.GetProperty("idle-active"), waitTimeout); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	srv.Event(t, "idle")
	waitFor(t, func() bool { return len(rec.kinds()) == 3 })

	if got := strings.Join(rec.kinds(), ","); got != "command,reply,event" {
		t.Fatalf("recorded kinds = %s", got)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var sent map[string]any
	if err := json.Unmarshal(rec.frames[0].Raw, &sent); err != nil {
		t.Fatalf("outbound frame is not json: %v", err)
	}
	if sent["request_id"] != float64(1) {
		t.Fatalf("outbound request_id = %v", sent["request_id"])
	}
	if !rec.frames[1].Matched {
		t.Fatal("reply frame should be marked matched")
	}
}

func TestSubscribeStreamsEventsUntilStop(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	events, cancel := session.Subscribe(8)
	defer cancel()

	srv.Event(t, "start-file")
	select {
	case ev := <-events:
		if ev.Name() != "start-file" {
			t.Fatalf("unexpected event %q", ev.Name())
		}
	case <-time.After(waitTimeout):
		t.Fatal("no event streamed")
	}

	_ = session.Stop()
	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(waitTimeout):
		t.Fatal("subscription not closed after Stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWaitForEventMultipleWaitersSameName(t *testing.T) {
	srv := ipctest.NewServer(t)
	session := startSession(t, srv)

	var group errgroup.Group
	for i := 0; i < 3; i++ {
		group.Go(func() error {
			ev, ok := session.WaitForEvent(context.Background(), "file-loaded", waitTimeout)
			if !ok {
				return fmt.Errorf("waiter %d not woken", i)
			}
			if ev.Name() != "file-loaded" {
				return fmt.Errorf("waiter %d got %q", i, ev.Name())
			}
			return nil
		})
	}

	time.Sleep(50 * time.Millisecond)
	srv.Event(t, "file-loaded")

	if err := group.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := len(session.Events()); got != 1 {
		t.Fatalf("event log = %d, want 1", got)
	}
}
