package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"notification-service/internal/modules/notifications/domain"
)

type fakePresence struct {
	connections map[string][]string
	addErr      error
}

func newFakePresence() *fakePresence {
	return &fakePresence{connections: make(map[string][]string)}
}

func (f *fakePresence) AddConnection(_ context.Context, userID, connectionID string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.connections[userID] = append(f.connections[userID], connectionID)
	return nil
}

func (f *fakePresence) RemoveConnection(_ context.Context, connectionID string) error {
	for userID, conns := range f.connections {
		kept := conns[:0]
		for _, id := range conns {
			if id != connectionID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(f.connections, userID)
		} else {
			f.connections[userID] = kept
		}
	}
	return nil
}

func (f *fakePresence) Connections(_ context.Context, userID string) ([]string, error) {
	return f.connections[userID], nil
}

func (f *fakePresence) IsUserOnline(_ context.Context, userID string) (bool, error) {
	return len(f.connections[userID]) > 0, nil
}

func (f *fakePresence) CountOnlineUsers(_ context.Context) (int, error) {
	return len(f.connections), nil
}

func (f *fakePresence) UserByConnection(_ context.Context, connectionID string) (string, error) {
	for userID, conns := range f.connections {
		for _, id := range conns {
			if id == connectionID {
				return userID, nil
			}
		}
	}
	return "", nil
}

type fakePusher struct {
	targeted [][]string
	frames   [][]byte
	allCalls int
}

func (f *fakePusher) PushToConnections(connectionIDs []string, frame []byte) {
	f.targeted = append(f.targeted, connectionIDs)
	f.frames = append(f.frames, frame)
}

func (f *fakePusher) PushToAll(frame []byte) {
	f.allCalls++
	f.frames = append(f.frames, frame)
}

type fakeBridge struct {
	connected  bool
	publishErr error
	targets    [][]string
	frames     [][]byte
}

func (f *fakeBridge) Connected() bool { return f.connected }

func (f *fakeBridge) PublishFrame(_ context.Context, connectionIDs []string, frame []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.targets = append(f.targets, connectionIDs)
	f.frames = append(f.frames, frame)
	return nil
}

func testNotification(userID string) *domain.Notification {
	return &domain.Notification{
		ID:           "n-1",
		Type:         domain.NotificationTaskCreated,
		Timestamp:    time.Now().UTC(),
		TargetUserID: userID,
		Message:      `New task "Ship it" has been created`,
		Data:         domain.TaskCreatedData{TaskID: "t-1", TaskTitle: "Ship it", CreatedBy: "u-2"},
	}
}

func TestDeliverToUserDropsOffline(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	pusher := &fakePusher{}
	uc := NewGatewayUseCase(presence, pusher, nil)

	if err := uc.DeliverToUser(context.Background(), testNotification("user-1")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(pusher.frames) != 0 {
		t.Fatalf("expected no pushes for offline user, got %d", len(pusher.frames))
	}
}

func TestDeliverToUserUsesBridgeWhenConnected(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	_ = presence.AddConnection(context.Background(), "user-1", "conn-a")
	_ = presence.AddConnection(context.Background(), "user-1", "conn-b")
	pusher := &fakePusher{}
	bridge := &fakeBridge{connected: true}
	uc := NewGatewayUseCase(presence, pusher, bridge)

	if err := uc.DeliverToUser(context.Background(), testNotification("user-1")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(bridge.frames) != 1 {
		t.Fatalf("expected one bridge publish, got %d", len(bridge.frames))
	}
	if len(bridge.targets[0]) != 2 {
		t.Fatalf("expected both connections targeted, got %v", bridge.targets[0])
	}
	if len(pusher.frames) != 0 {
		t.Fatal("local push must not happen when the bridge accepted the frame")
	}

	var frame domain.Frame
	if err := json.Unmarshal(bridge.frames[0], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Event != domain.EventNotification {
		t.Fatalf("unexpected event %q", frame.Event)
	}
	var n domain.Notification
	if err := json.Unmarshal(frame.Data, &n); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if n.ID != "n-1" || n.TargetUserID != "user-1" {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestDeliverToUserFallsBackToLocalPush(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	_ = presence.AddConnection(context.Background(), "user-1", "conn-a")
	pusher := &fakePusher{}
	bridge := &fakeBridge{connected: true, publishErr: errors.New("redis gone")}
	uc := NewGatewayUseCase(presence, pusher, bridge)

	if err := uc.DeliverToUser(context.Background(), testNotification("user-1")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(pusher.targeted) != 1 || pusher.targeted[0][0] != "conn-a" {
		t.Fatalf("expected local fallback push, got %v", pusher.targeted)
	}
}

func TestDeliverToUserLocalOnlyWithoutBridge(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	_ = presence.AddConnection(context.Background(), "user-1", "conn-a")
	pusher := &fakePusher{}
	uc := NewGatewayUseCase(presence, pusher, &fakeBridge{connected: false})

	if err := uc.DeliverToUser(context.Background(), testNotification("user-1")); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(pusher.targeted) != 1 {
		t.Fatalf("expected one local push, got %d", len(pusher.targeted))
	}
}

func TestBroadcastAll(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{}
	bridge := &fakeBridge{connected: true}
	uc := NewGatewayUseCase(newFakePresence(), pusher, bridge)

	if err := uc.BroadcastAll(context.Background(), domain.EventNotification, map[string]string{"msg": "maintenance"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(bridge.frames) != 1 || bridge.targets[0] != nil {
		t.Fatalf("expected untargeted bridge publish, got %v", bridge.targets)
	}

	bridge.connected = false
	if err := uc.BroadcastAll(context.Background(), domain.EventNotification, map[string]string{"msg": "again"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if pusher.allCalls != 1 {
		t.Fatalf("expected local broadcast when bridge down, got %d", pusher.allCalls)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	presence := newFakePresence()
	_ = presence.AddConnection(context.Background(), "user-1", "conn-a")
	_ = presence.AddConnection(context.Background(), "user-2", "conn-b")
	uc := NewGatewayUseCase(presence, &fakePusher{}, nil)

	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["connectedUsers"] != 2 {
		t.Fatalf("expected 2 connected users, got %v", stats["connectedUsers"])
	}
	if _, ok := stats["timestamp"].(time.Time); !ok {
		t.Fatal("expected timestamp in stats")
	}
}
