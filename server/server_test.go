package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/finsense/plugin/chat_apps"
	"github.com/hrygo/finsense/plugin/cron"
)

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.echoServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "0.1.0", body["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.handleIncoming(context.Background(), &chat_apps.IncomingMessage{
		ActorID: testActor, ChatID: testActor, Type: chat_apps.MessageTypeText, Content: "xin chào",
	})

	rec := httptest.NewRecorder()
	ts.echoServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "interpretations")
}

func TestNewServer_RequiresTelegramToken(t *testing.T) {
	ts := newTestServer(t)
	p := *ts.Profile
	p.TelegramToken = ""

	_, err := NewServer(context.Background(), &p, ts.Store)
	require.Error(t, err)
}

func TestHandleIncoming_Text(t *testing.T) {
	ts := newTestServer(t)

	ts.handleIncoming(context.Background(), &chat_apps.IncomingMessage{
		ActorID: testActor, ChatID: testActor, Type: chat_apps.MessageTypeText, Content: "xin chào",
	})

	assert.Equal(t, []string{"Thưa ngài, FinSense chưa hiểu rõ yêu cầu. Hãy dùng /add_expense hoặc mô tả chi tiết hơn!"}, ts.channel.texts())
	user, err := ts.Store.GetUser(context.Background(), testActor)
	require.NoError(t, err)
	require.NotNil(t, user, "first contact creates the profile")
}

func TestStartAndShutdown(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ts.Start(ctx))

	pending := ts.scheduler.Pending()
	require.Len(t, pending, 2)
	names := []string{pending[0].Name, pending[1].Name}
	assert.ElementsMatch(t, []string{"weekly-digest", "investment-check"}, names)
	for _, job := range pending {
		assert.Equal(t, cron.KindRecurring, job.Kind)
	}

	ts.channel.incoming <- command("start")
	assert.Eventually(t, func() bool {
		return len(ts.channel.texts()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, replyWelcome, ts.channel.texts()[0])

	ts.Shutdown(context.Background())
	ts.channel.mu.Lock()
	defer ts.channel.mu.Unlock()
	assert.True(t, ts.channel.closed)
}

func TestStart_InvalidCron(t *testing.T) {
	ts := newTestServer(t)
	ts.Profile.WeeklyDigestCron = "every monday"

	err := ts.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekly digest")
}
