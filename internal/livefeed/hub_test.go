package livefeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-voice-query-service/internal/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	h, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)

	event := models.StageEvent{QueryID: "q1", Stage: models.StageGeneration, LatencyMs: 1200, InfoDensity: 0.4}

	// Registration is asynchronous; keep reporting until both clients see it.
	for _, conn := range []*websocket.Conn{a, b} {
		got := make(chan models.StageEvent, 1)
		go func(c *websocket.Conn) {
			var e models.StageEvent
			if c.ReadJSON(&e) == nil {
				got <- e
			}
		}(conn)

		deadline := time.After(2 * time.Second)
	wait:
		for {
			h.Report(event)
			select {
			case e := <-got:
				assert.Equal(t, event, e)
				break wait
			case <-deadline:
				t.Fatal("client did not receive event")
			case <-time.After(20 * time.Millisecond):
			}
		}
	}
}

func TestHub_ReportNeverBlocks(t *testing.T) {
	h := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*3; i++ {
			h.Report(models.StageEvent{Stage: models.StageTotal})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Report blocked with no running hub")
	}
}

func TestHub_ReportAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < bufferSize*2; i++ {
		h.Report(models.StageEvent{})
	}
}
