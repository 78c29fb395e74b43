package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/api/http/handlers"
	"github.com/spec-kit/guest-services/internal/auth"
	"github.com/spec-kit/guest-services/internal/domain"
	"github.com/spec-kit/guest-services/internal/events"
	"github.com/spec-kit/guest-services/internal/observability"
	"github.com/spec-kit/guest-services/internal/repository/memory"
	"github.com/spec-kit/guest-services/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	store.PutStaff(domain.StaffMember{
		ID: "hk-1", HotelID: "hotel-1", Name: "Ana", Role: domain.StaffRoleStaff,
		Departments: []string{"housekeeping"}, Active: true,
	})

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics("guest_services_test", registry)
	broker := events.NewBroker(events.BrokerConfig{BufferSize: 16}, nil, metrics)
	t.Cleanup(broker.Close)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		OutboxRepo: store.Outbox(),
		StaffRepo:  store.Staff(),
		HotelRepo:  store.Hotels(),
	})
	wf := service.NewWorkflow(service.WorkflowDependencies{
		Broker:   broker,
		Notifier: notifications,
		History:  store.History(),
		Metrics:  metrics,
	})
	assignments := service.NewAssignmentService(store.Staff())
	threads := service.NewThreadService(service.ThreadDependencies{
		ThreadRepo:  store.Threads(),
		MessageRepo: store.Messages(),
		NoteRepo:    store.Notes(),
		Assignments: assignments,
		Workflow:    wf,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		NoteRepo:    store.Notes(),
		Assignments: assignments,
		Workflow:    wf,
	})

	tokens := auth.NewTokenManager("test-secret", 5)
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("guest-services", "test", nil, broker.SubscriberCount),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Threads:        handlers.NewThreadsHandler(threads),
		Staff:          handlers.NewStaffHandler(service.NewStaffService(store.Staff())),
		Realtime:       handlers.NewRealtimeHandler(service.NewRealtimeService(broker), time.Second, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Staff()),
		Gatherer:       registry,
	})
	return &testServer{app: app, tokens: tokens, store: store}
}

func (s *testServer) token(t *testing.T, principal domain.Principal) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(principal)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func guestPrincipal() domain.Principal {
	return domain.GuestPrincipal("guest-1", "hotel-1", "stay-1")
}

func staffPrincipal() domain.Principal {
	return domain.StaffPrincipal("hk-1", "hotel-1", domain.StaffRoleStaff, "housekeeping")
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodGet, "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
	assert.EqualValues(t, 0, body["realtimeSubscribers"])
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodPost, "/v1/tickets", "", `{"department":"housekeeping","title":"Towels"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(body))

	status, body = srv.do(t, fiber.MethodGet, "/v1/tickets/t-1", "not-a-jwt", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(body))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodGet, "/nope", "", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(body))
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	guest := srv.token(t, guestPrincipal())
	staff := srv.token(t, staffPrincipal())

	status, body := srv.do(t, fiber.MethodPost, "/v1/tickets", guest, `{"department":"Housekeeping","title":"Extra towels","roomNumber":" 101 "}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	data := body["data"].(map[string]any)
	ticketID := data["id"].(string)
	assert.Equal(t, "housekeeping", data["department"])
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "101", data["roomNumber"])
	assert.Equal(t, "hk-1", data["assignedStaffUserId"])

	status, body = srv.do(t, fiber.MethodPatch, "/v1/tickets/"+ticketID, guest, `{"status":"resolved"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", errorCode(body))

	status, body = srv.do(t, fiber.MethodPatch, "/v1/tickets/"+ticketID, staff, `{"status":"bogus"}`)
	assert.Equal(t, "invalid_status", errorCode(body), status)

	status, body = srv.do(t, fiber.MethodPatch, "/v1/tickets/"+ticketID, staff, `{"status":"in_progress"}`)
	require.Equal(t, fiber.StatusOK, status, body)
	data = body["data"].(map[string]any)
	assert.Equal(t, "in_progress", data["status"])
	assert.Equal(t, "hk-1", data["assignedStaffUserId"])

	status, body = srv.do(t, fiber.MethodPatch, "/v1/tickets/"+ticketID, staff, `{"assignedStaffUserId":null}`)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Nil(t, body["data"].(map[string]any)["assignedStaffUserId"])

	status, body = srv.do(t, fiber.MethodGet, "/v1/tickets/"+ticketID+"/history", staff, "")
	require.Equal(t, fiber.StatusOK, status, body)
	entries := body["data"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, "created", entries[0].(map[string]any)["changeType"])

	status, _ = srv.do(t, fiber.MethodGet, "/v1/tickets/"+ticketID+"/history", guest, "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCreateTicketValidationDetails(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodPost, "/v1/tickets", srv.token(t, guestPrincipal()), `{"title":"Towels"}`)
	assert.Equal(t, "validation_failed", errorCode(body), status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "is required", details["department"])
}

func TestStaffTokenForUnknownMemberIsRejected(t *testing.T) {
	srv := newTestServer(t)
	ghost := srv.token(t, domain.StaffPrincipal("ghost", "hotel-1", domain.StaffRoleAdmin))
	status, body := srv.do(t, fiber.MethodGet, "/v1/staff", ghost, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(body))
}

func TestStaffRosterIsStaffOnly(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodGet, "/v1/staff/me", srv.token(t, staffPrincipal()), "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "hk-1", body["data"].(map[string]any)["id"])

	status, _ = srv.do(t, fiber.MethodGet, "/v1/staff", srv.token(t, guestPrincipal()), "")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestThreadConversationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	guest := srv.token(t, guestPrincipal())
	staff := srv.token(t, staffPrincipal())

	status, body := srv.do(t, fiber.MethodPost, "/v1/threads", guest, `{"department":"housekeeping","title":"Pillows","firstMessage":"Two more please"}`)
	require.Equal(t, fiber.StatusCreated, status, body)
	threadID := body["data"].(map[string]any)["id"].(string)

	status, body = srv.do(t, fiber.MethodPost, "/v1/threads/"+threadID+"/messages", staff, `{"bodyText":"On the way"}`)
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = srv.do(t, fiber.MethodGet, "/v1/threads/"+threadID+"/messages", guest, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, body["data"].([]any), 2)

	status, body = srv.do(t, fiber.MethodPost, "/v1/threads/"+threadID+"/archive", staff, "")
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "archived", body["data"].(map[string]any)["status"])

	status, body = srv.do(t, fiber.MethodPost, "/v1/threads/"+threadID+"/messages", guest, `{"bodyText":"Thanks"}`)
	assert.Equal(t, "thread_archived", errorCode(body), status)
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, fiber.MethodGet, "/health/live", "", "")

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := srv.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "guest_services_test")
}
