package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kivabase/kivabase-backend/internal/accessgate"
	tenantdomain "github.com/kivabase/kivabase-backend/internal/tenants/domain"
)

// dialTestServer stands up the websocket endpoint behind a stub gate
// that attaches the project, then dials it.
func dialTestServer(t *testing.T, hub *Hub, projectID string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	rt := r.Group("/realtime/projects/:projectId")
	rt.Use(func(c *gin.Context) {
		c.Set(accessgate.CtxProject, &tenantdomain.Project{ID: c.Param("projectId")})
	})
	NewWSHandler(hub).Register(rt)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime/projects/" + projectID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *Hub) subscriberCount(projectID, table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[subKey{projectID: projectID, table: table}])
}

func waitForSubscribers(t *testing.T, hub *Hub, projectID, table string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.subscriberCount(projectID, table) == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWebsocketSubscribeReceivesChanges(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "p1")

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "subscribe", Table: "items"}))
	waitForSubscribers(t, hub, "p1", "items", 1)

	hub.Publish("p1", "items", "INSERT", map[string]any{"id": "r1", "title": "one"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change Change
	require.NoError(t, conn.ReadJSON(&change))

	assert.Equal(t, "change", change.Type)
	assert.Equal(t, "INSERT", change.Event)
	assert.Equal(t, "items", change.Table)
	record, ok := change.Record.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", record["id"])
}

func TestWebsocketUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "p1")

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "subscribe", Table: "items"}))
	waitForSubscribers(t, hub, "p1", "items", 1)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "unsubscribe", Table: "items"}))
	waitForSubscribers(t, hub, "p1", "items", 0)

	// The event while unsubscribed is dropped at the hub; after
	// resubscribing, the first delivered frame is the later one.
	hub.Publish("p1", "items", "DELETE", map[string]any{"id": "missed"})

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "subscribe", Table: "items"}))
	waitForSubscribers(t, hub, "p1", "items", 1)
	hub.Publish("p1", "items", "INSERT", map[string]any{"id": "r2"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change Change
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, "INSERT", change.Event)
	record, ok := change.Record.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r2", record["id"])
}

func TestWebsocketScopedToPathProject(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "p1")

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "subscribe", Table: "items"}))
	waitForSubscribers(t, hub, "p1", "items", 1)

	// Another project's event never reaches this connection.
	hub.Publish("p2", "items", "DELETE", map[string]any{"id": "other"})
	hub.Publish("p1", "items", "INSERT", map[string]any{"id": "mine"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change Change
	require.NoError(t, conn.ReadJSON(&change))
	record, ok := change.Record.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mine", record["id"])
}
