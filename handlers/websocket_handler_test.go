package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litian80/tcg-manager-sub000/realtime"
	"github.com/litian80/tcg-manager-sub000/services"
)

func wsServer(t *testing.T, hub *realtime.Hub, svc services.TournamentService) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", NewWebSocketHandler(hub, svc, []string{"*"}, discardLogger()).ServeWs)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketHandler_JoinsRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub(discardLogger())
	go hub.Run(ctx)

	svc := &stubTournamentService{}
	ws, _, err := websocket.DefaultDialer.Dial(wsServer(t, hub, svc)+"/ws/tournaments/7", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.RoomSize(realtime.TournamentRoom(7)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, svc.viewer)
}

func TestWebSocketHandler_StoppedHubClosesConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub := realtime.NewHub(discardLogger())
	hub.Run(ctx)

	ws, _, err := websocket.DefaultDialer.Dial(wsServer(t, hub, &stubTournamentService{})+"/ws/tournaments/7", nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, hub.RoomSize(realtime.TournamentRoom(7)))
}

func TestWebSocketHandler_HiddenTournament(t *testing.T) {
	hub := realtime.NewHub(discardLogger())
	svc := &stubTournamentService{err: services.ErrTournamentNotFound}

	_, resp, err := websocket.DefaultDialer.Dial(wsServer(t, hub, svc)+"/ws/tournaments/7", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
