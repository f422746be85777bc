package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatorder-backend/apperr"
	"chatorder-backend/config"
)

func TestHTTPMessenger(t *testing.T) {
	var got []outboundPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gw-token", r.Header.Get("Authorization"))
		var p outboundPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		got = append(got, p)
		if p.To == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewMessenger(config.TransportConfig{OutboundURL: srv.URL, Token: "gw-token"})
	require.IsType(t, &HTTPMessenger{}, m)

	ctx := context.Background()
	require.NoError(t, m.SendText(ctx, "549111", "hola"))
	require.NoError(t, m.SendMedia(ctx, "549111", "https://cdn.example.com/a.jpg", "Cuaderno"))

	err := m.SendText(ctx, "broken", "hola")
	assert.True(t, apperr.IsExternal(err))

	require.Len(t, got, 3)
	assert.Equal(t, outboundPayload{To: "549111", Text: "hola"}, got[0])
	assert.Equal(t, "https://cdn.example.com/a.jpg", got[1].MediaURL)
	assert.Equal(t, "Cuaderno", got[1].Caption)
}

func TestNewMessenger_WithoutGateway(t *testing.T) {
	m := NewMessenger(config.TransportConfig{})
	assert.IsType(t, LogMessenger{}, m)
	assert.NoError(t, m.SendText(context.Background(), "549111", "hola"))
}
