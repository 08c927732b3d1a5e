package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinicflow/config"
	"clinicflow/internal/changefeed"
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
	"clinicflow/internal/workspace"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type stubWorkspace struct {
	queue []entity.QueueEntry
}

func (stubWorkspace) ResolveDoctorID(context.Context, entity.Identity) *uuid.UUID { return nil }

func (stubWorkspace) PromoteTodayAppointments(context.Context, uuid.UUID, *uuid.UUID) (int, error) {
	return 0, nil
}

func (s stubWorkspace) Refresh(_ context.Context, clinicID uuid.UUID, _ *uuid.UUID) entity.WorkspaceSnapshot {
	return entity.WorkspaceSnapshot{
		ClinicID:     clinicID,
		Queue:        s.queue,
		Appointments: []entity.Appointment{},
	}
}

func (stubWorkspace) AutoAssign(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

type stubLookup struct{}

func (stubLookup) LookupPhone(_ context.Context, _ uuid.UUID, prefix string) (*entity.PhoneLookup, error) {
	return &entity.PhoneLookup{Phone: prefix, Suggestions: []entity.PhoneSuggestion{}}, nil
}

func (stubLookup) ReturningSummary(context.Context, uuid.UUID, string, time.Time) string {
	return ""
}

type stateMessage struct {
	Type    string          `json:"type"`
	Data    workspace.State `json:"data"`
	Message string          `json:"message"`
}

func newWorkspaceServer(t *testing.T) (*workspace.Registry, *websocket.Conn) {
	t.Helper()

	registry, url := newWorkspaceServerFor(t, staffIdentity())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return registry, conn
}

func newWorkspaceServerFor(t *testing.T, identity entity.Identity) (*workspace.Registry, string) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	queue := []entity.QueueEntry{
		entity.NewQueueEntry(entity.Patient{ID: uuid.New(), Name: "Budi", Status: entity.PatientStatusInQueue}),
	}
	registry := workspace.NewRegistry(log, stubWorkspace{queue: queue}, stubLookup{}, changefeed.NewBroker(8),
		config.WorkspaceConfig{LookupMinDigits: 6})
	h := NewWorkspaceHandler(log, registry, func(string) bool { return true })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Connect(w, r.WithContext(identityContext(r.Context(), identity)))
	}))
	t.Cleanup(srv.Close)

	return registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) stateMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg stateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWorkspaceSocket_PushesState(t *testing.T) {
	_, conn := newWorkspaceServer(t)

	msg := readMessage(t, conn)
	if msg.Type != dto.WorkspaceMessageState {
		t.Fatalf("type = %q", msg.Type)
	}
	if len(msg.Data.Queue) != 1 || msg.Data.Queue[0].Name != "Budi" {
		t.Errorf("queue = %+v", msg.Data.Queue)
	}
}

func TestWorkspaceSocket_Lookup(t *testing.T) {
	_, conn := newWorkspaceServer(t)
	readMessage(t, conn)

	if err := conn.WriteJSON(dto.WorkspaceCommand{Action: dto.WorkspaceActionLookup, Prefix: "0812"}); err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, conn)
	if msg.Data.Lookup == nil || msg.Data.Lookup.Phone != "0812" {
		t.Errorf("lookup = %+v", msg.Data.Lookup)
	}
}

func TestWorkspaceSocket_UnknownAction(t *testing.T) {
	_, conn := newWorkspaceServer(t)
	readMessage(t, conn)

	if err := conn.WriteJSON(dto.WorkspaceCommand{Action: "dance"}); err != nil {
		t.Fatal(err)
	}

	msg := readMessage(t, conn)
	if msg.Type != dto.WorkspaceMessageError || msg.Message != "unknown action dance" {
		t.Errorf("message = %+v", msg)
	}
}

func TestWorkspaceSocket_ClosedOnLogout(t *testing.T) {
	registry, conn := newWorkspaceServer(t)
	readMessage(t, conn)

	if n := registry.DeactivateToken("token-1"); n != 1 {
		t.Fatalf("closed %d sessions, want 1", n)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read error = %v, want normal closure", err)
	}
}

func TestWorkspaceSocket_ClientDisconnectEndsSession(t *testing.T) {
	registry, conn := newWorkspaceServer(t)
	readMessage(t, conn)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sessions = %d after disconnect", registry.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkspaceSocket_ClinicGate(t *testing.T) {
	missingRow := staffIdentity()
	missingRow.Clinic = nil
	unassigned := staffIdentity()
	unassigned.User.ClinicID = nil
	unassigned.Clinic = nil

	t.Run("missing clinic row still opens", func(t *testing.T) {
		_, url := newWorkspaceServerFor(t, missingRow)
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		if msg := readMessage(t, conn); msg.Type != dto.WorkspaceMessageState {
			t.Errorf("type = %q", msg.Type)
		}
	})

	t.Run("no clinic assignment is forbidden", func(t *testing.T) {
		_, url := newWorkspaceServerFor(t, unassigned)
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatal("expected handshake to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Fatalf("response = %v, want 403", resp)
		}
	})
}
