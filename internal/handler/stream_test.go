package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduinstitute/liveclass-server/internal/fanout"
)

// readSSEEvent reads lines until a complete event and returns its type and data.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var eventType, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			return eventType, data
		}
	}
}

func waitForSubscriber(t *testing.T, broker *fanout.Broker, room string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return broker.ClientCount(room) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStreamHandler_Events(t *testing.T) {
	srv := newTestServer(t)
	srv.seedSession(t, "s1", 5)
	srv.seedLearner(t, "l1")

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	t.Run("unknown session is 404", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/live-sessions/missing/events")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("streams the snapshot then enrollment updates", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/live-sessions/s1/events", nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		reader := bufio.NewReader(resp.Body)
		eventType, data := readSSEEvent(t, reader)
		assert.Equal(t, "connected", eventType)
		assert.JSONEq(t, `{"sessionId":"s1","enrolledCount":0,"maxParticipants":5,"studentName":""}`, data)

		waitForSubscriber(t, srv.broker, fanout.SessionRoom("s1"))

		rec := srv.do(t, http.MethodPost, "/live-sessions/s1/enroll", map[string]string{"studentId": "l1"})
		require.Equal(t, http.StatusOK, rec.Code)

		eventType, data = readSSEEvent(t, reader)
		assert.Equal(t, fanout.EventEnrollmentUpdate, eventType)

		var update fanout.EnrollmentUpdate
		require.NoError(t, json.Unmarshal([]byte(data), &update))
		assert.Equal(t, "s1", update.SessionID)
		assert.Equal(t, 1, update.EnrolledCount)
		assert.Equal(t, "Learner l1", update.StudentName)
	})
}

func TestStreamHandler_WebSocket(t *testing.T) {
	srv := newTestServer(t)
	srv.seedSession(t, "s1", 5)
	srv.seedLearner(t, "l1")

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live-sessions/s1/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event fanout.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "connected", event.Type)

	waitForSubscriber(t, srv.broker, fanout.SessionRoom("s1"))

	rec := srv.do(t, http.MethodPost, "/live-sessions/s1/enroll", map[string]string{"studentId": "l1"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, fanout.EventEnrollmentUpdate, event.Type)

	var update fanout.EnrollmentUpdate
	require.NoError(t, json.Unmarshal(event.Data, &update))
	assert.Equal(t, 1, update.EnrolledCount)

	conn.Close()
	require.Eventually(t, func() bool {
		return srv.broker.ClientCount(fanout.SessionRoom("s1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	t.Run("empty list allows all", func(t *testing.T) {
		assert.True(t, originChecker(nil)(req("https://evil.example")))
	})

	t.Run("wildcard allows all", func(t *testing.T) {
		assert.True(t, originChecker([]string{"*"})(req("https://evil.example")))
	})

	t.Run("explicit list", func(t *testing.T) {
		check := originChecker([]string{"https://app.example"})
		assert.True(t, check(req("https://app.example")))
		assert.True(t, check(req("")))
		assert.False(t, check(req("https://evil.example")))
	})
}
