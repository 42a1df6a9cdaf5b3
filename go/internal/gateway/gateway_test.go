package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/mcdev12/buffring/go/internal/journal"
	"github.com/mcdev12/buffring/go/internal/overlay"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type fixture struct {
	controller *buff.Controller
	scene      *overlay.Scene
	receiver   *command.Receiver
	service    *Service
	server     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	scene := overlay.NewScene(clock, overlay.DefaultTiming())
	controller := buff.NewController(buff.DefaultConfig(), buff.WithClock(clock), buff.WithSinks(scene))
	receiver := command.NewReceiver(controller, nil)
	markup := overlay.NewMarkup(buff.DefaultGeometry(), overlay.DefaultTiming())

	cfg := DefaultConfig()
	cfg.JetStreamEnabled = false
	svc, err := NewService(cfg, receiver, controller, scene, markup)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	controller.AddSink(svc.Sink())

	ctx, cancel := context.WithCancel(context.Background())
	go svc.connectionManager.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &fixture{
		controller: controller,
		scene:      scene,
		receiver:   receiver,
		service:    svc,
		server:     srv,
	}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := f.server.Client().Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp, body
}

func TestListBuffs(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("speed", 10)
	f.controller.Add("focus", 4)

	resp, body := f.get(t, "/api/buffs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got BuffsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if len(got.Buffs) != 2 {
		t.Fatalf("buffs = %+v", got.Buffs)
	}
	// Same add time, so ties break by name
	if got.Buffs[0].Name != "focus" || got.Buffs[1].Name != "speed" {
		t.Fatalf("order = %s, %s", got.Buffs[0].Name, got.Buffs[1].Name)
	}
	if got.Buffs[1].TimeLeft != 10 || got.Buffs[1].Offset != 0 {
		t.Errorf("speed = %+v", got.Buffs[1])
	}
	if got.Stats.Added != 2 || got.Stats.Active != 2 {
		t.Errorf("stats = %+v", got.Stats)
	}
}

func TestListBuffsEmpty(t *testing.T) {
	f := newFixture(t)

	_, body := f.get(t, "/api/buffs")
	if !strings.Contains(string(body), `"buffs":[]`) {
		t.Errorf("empty tray body = %s", body)
	}
}

func TestGetBuff(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("strength", 8)

	resp, body := f.get(t, "/api/buffs/strength")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view buff.View
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Name != "strength" || view.Duration != 8 {
		t.Errorf("view = %+v", view)
	}

	resp, _ = f.get(t, "/api/buffs/agility")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown buff status = %d, want 404", resp.StatusCode)
	}
}

func TestScene(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("speed", 10)
	f.controller.Remove("speed")

	_, body := f.get(t, "/api/scene")
	var got SceneResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Elements) != 1 || got.Elements[0].State != overlay.ElementRemoving {
		t.Errorf("elements = %+v, want one fading element", got.Elements)
	}
}

type fakeJournal struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (j *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	j.limit = limit
	return j.entries, j.err
}

func TestJournal(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.get(t, "/api/journal")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("journal disabled status = %d, want 503", resp.StatusCode)
	}

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	j := &fakeJournal{entries: []journal.Entry{
		{Source: "nats", Action: "add", Buff: "speed", Duration: 10, ReceivedAt: at},
	}}
	f.service.UseJournal(j)

	resp, body := f.get(t, "/api/journal?limit=5")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got JournalResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, body)
	}
	if j.limit != 5 || len(got.Entries) != 1 || got.Entries[0].Buff != "speed" || got.Entries[0].Source != "nats" {
		t.Errorf("limit = %d, entries = %+v", j.limit, got.Entries)
	}

	f.get(t, "/api/journal?limit=100000")
	if j.limit != maxJournalLimit {
		t.Errorf("limit = %d, want cap %d", j.limit, maxJournalLimit)
	}

	resp, _ = f.get(t, "/api/journal?limit=lots")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}

	j.err = errors.New("connection refused")
	resp, _ = f.get(t, "/api/journal")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("journal failure status = %d, want 500", resp.StatusCode)
	}
}

func TestOverlayPage(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("speed", 10)

	resp, body := f.get(t, "/overlay")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), `id="buff-speed"`) {
		t.Errorf("page missing speed element:\n%s", body)
	}
}

func TestConnectSend(t *testing.T) {
	f := newFixture(t)
	client := connect.NewClient[structpb.Struct, emptypb.Empty](
		f.server.Client(),
		f.server.URL+BuffServiceSendProcedure,
	)

	msg, err := structpb.NewStruct(map[string]any{"action": "add", "buff": "speed", "duration": 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.CallUnary(context.Background(), connect.NewRequest(msg)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if view, ok := f.controller.Get("speed"); !ok || view.Duration != 10 {
		t.Errorf("speed = %+v, %v", view, ok)
	}

	ignored := []map[string]any{
		{"action": "dance", "buff": "speed"},
		{"action": "extend", "buff": "speed"},
		{},
	}
	for _, fields := range ignored {
		bad, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := client.CallUnary(context.Background(), connect.NewRequest(bad)); err != nil {
			t.Errorf("Send(%v) error = %v, want silent drop", fields, err)
		}
	}
	if view, ok := f.controller.Get("speed"); f.controller.Len() != 1 || !ok || view.Duration != 10 || view.TimeLeft != 10 {
		t.Errorf("registry changed by ignored commands: len=%d speed=%+v", f.controller.Len(), view)
	}
}

func TestConnectListBuffs(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("focus", 6)

	client := connect.NewClient[emptypb.Empty, structpb.Struct](
		f.server.Client(),
		f.server.URL+BuffServiceListBuffsProcedure,
	)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		t.Fatalf("ListBuffs() error = %v", err)
	}

	buffs := resp.Msg.GetFields()["buffs"].GetListValue().GetValues()
	if len(buffs) != 1 {
		t.Fatalf("buffs = %v", buffs)
	}
	fields := buffs[0].GetStructValue().GetFields()
	if fields["name"].GetStringValue() != "focus" || fields["time_left"].GetNumberValue() != 6 {
		t.Errorf("buff = %v", fields)
	}
}

func dialOverlay(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/overlay?client_id=test"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) OverlayFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame OverlayFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// readFrameOfType skips frames queued before the ones the test cares about
func readFrameOfType(t *testing.T, conn *websocket.Conn, want FrameType) OverlayFrame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if frame := readFrame(t, conn); frame.Type == want {
			return frame
		}
	}
	t.Fatalf("no %s frame received", want)
	return OverlayFrame{}
}

func TestWebSocketSyncThenEvents(t *testing.T) {
	f := newFixture(t)
	f.controller.Add("stamina", 5)

	conn := dialOverlay(t, f)

	sync := readFrame(t, conn)
	if sync.Type != FrameTypeSync {
		t.Fatalf("first frame = %s, want Sync", sync.Type)
	}
	var payload SyncPayload
	if err := json.Unmarshal(sync.Data, &payload); err != nil {
		t.Fatalf("decode sync: %v", err)
	}
	if len(payload.Buffs) != 1 || payload.Buffs[0].Name != "stamina" {
		t.Errorf("sync buffs = %+v", payload.Buffs)
	}

	f.controller.Extend("stamina", 3)

	frame := readFrameOfType(t, conn, FrameTypeExtended)
	var ev buff.Event
	if err := json.Unmarshal(frame.Data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Buff != "stamina" || ev.Duration != 8 || ev.TimeLeft != 8 {
		t.Errorf("event = %+v", ev)
	}
}

func decodeFrame(t *testing.T, data []byte) OverlayFrame {
	t.Helper()
	var frame OverlayFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestSyncSeqCoversQueuedFrames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	controller := buff.NewController(buff.DefaultConfig(), buff.WithClock(clock))
	cm := NewConnectionManager(DefaultConnectionConfig(), nil, controller)
	controller.AddSink(cm)

	// Queued but not yet fanned out when the client connects
	controller.Add("speed", 10)

	conn := &Connection{ID: "late", Send: make(chan []byte, 8), Manager: cm}
	cm.registerConnection(conn)
	cm.handleBroadcast(<-cm.broadcastCh)

	sync := decodeFrame(t, <-conn.Send)
	if sync.Type != FrameTypeSync || sync.Seq != 1 {
		t.Fatalf("first frame = %s seq %d, want Sync seq 1", sync.Type, sync.Seq)
	}
	var payload SyncPayload
	if err := json.Unmarshal(sync.Data, &payload); err != nil || len(payload.Buffs) != 1 {
		t.Fatalf("sync payload = %+v, %v", payload, err)
	}

	stale := decodeFrame(t, <-conn.Send)
	if stale.Type != FrameTypeCreated || stale.Seq > sync.Seq {
		t.Errorf("queued frame = %s seq %d, want BuffCreated at or below sync seq %d", stale.Type, stale.Seq, sync.Seq)
	}

	controller.Extend("speed", 5)
	cm.handleBroadcast(<-cm.broadcastCh)

	fresh := decodeFrame(t, <-conn.Send)
	if fresh.Type != FrameTypeExtended || fresh.Seq <= sync.Seq {
		t.Errorf("later frame = %s seq %d, want BuffExtended above sync seq %d", fresh.Type, fresh.Seq, sync.Seq)
	}
}

func TestWebSocketAcceptsCommands(t *testing.T) {
	f := newFixture(t)
	conn := dialOverlay(t, f)
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"add","buff":"intelligence","duration":12}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	readFrameOfType(t, conn, FrameTypeCreated)
	if _, ok := f.controller.Get("intelligence"); !ok {
		t.Error("command from websocket not applied")
	}
}

func TestConsumerHandleMessage(t *testing.T) {
	f := newFixture(t)
	cc := &CommandConsumer{receiver: f.receiver, config: DefaultJetStreamConsumerConfig()}
	ctx := context.Background()

	if !cc.handleMessage(ctx, "buff.commands.add", []byte(`{"action":"add","buff":"speed","duration":10}`)) {
		t.Fatal("add command not recognised")
	}
	if !cc.handleMessage(ctx, "buff.commands.extend", []byte(`{"action":"extend","buff":"speed","duration":5}`)) {
		t.Fatal("extend command not recognised")
	}
	if view, _ := f.controller.Get("speed"); view.Duration != 15 || view.TimeLeft != 15 {
		t.Errorf("speed = %d/%d, want 15/15", view.TimeLeft, view.Duration)
	}

	if cc.handleMessage(ctx, "buff.commands.add", []byte(`not json`)) {
		t.Error("malformed payload reported as recognised")
	}
	if !cc.handleMessage(ctx, "buff.commands.remove", []byte(`{"action":"remove","buff":"speed"}`)) {
		t.Fatal("remove command not recognised")
	}
	if f.controller.Len() != 0 {
		t.Error("remove via consumer left buff in registry")
	}
}

func TestNewEventFrame(t *testing.T) {
	cases := map[buff.EventType]FrameType{
		buff.EventTypeCreated:  FrameTypeCreated,
		buff.EventTypeProgress: FrameTypeProgress,
		buff.EventTypeExtended: FrameTypeExtended,
		buff.EventTypeRemoving: FrameTypeRemoving,
	}
	for evType, want := range cases {
		frame, err := NewEventFrame(buff.Event{Type: evType, Buff: "speed"})
		if err != nil {
			t.Errorf("%s: %v", evType, err)
			continue
		}
		if frame.Type != want || frame.ID == "" {
			t.Errorf("%s: frame = %+v", evType, frame)
		}
	}

	if _, err := NewEventFrame(buff.Event{Type: "teleported"}); err == nil {
		t.Error("unknown event type accepted")
	}
}
