package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/core/auth"
	"github.com/dmitrymomot/authkit/core/syncchannel"
	"github.com/dmitrymomot/authkit/httpapi"
)

func TestHub_SignOutReachesOtherSurfaces(t *testing.T) {
	t.Parallel()

	svc, err := auth.New(newMemStore(), auth.Config{
		SecretKey:  "test-secret-key-at-least-32-bytes!",
		BcryptCost: 4,
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	hub := httpapi.NewHub(svc, nil)
	mux := http.NewServeMux()
	httpapi.NewHandler(svc, hub).Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	// First surface signs up.
	_, signUp := postJSON(t, server.URL+"/auth/signup", map[string]string{
		"email": "a@b.com", "password": "secret123",
	})
	require.True(t, signUp.Success)
	token := signUp.Data.(map[string]any)["token"].(string)

	claims := svc.VerifyToken(token)
	require.NotNil(t, claims)

	// Second surface holds the same token and listens on the sync channel.
	ch := syncchannel.New(syncchannel.Config{
		URL: "ws" + strings.TrimPrefix(server.URL, "http") + "/auth/sync",
	}, nil)
	t.Cleanup(ch.Disconnect)

	var (
		mu       sync.Mutex
		received []auth.Session
	)
	ch.OnSessionUpdate(func(sess auth.Session) {
		mu.Lock()
		received = append(received, sess)
		mu.Unlock()
	})

	ch.Connect(context.Background(), token)
	require.Eventually(t, func() bool {
		return ch.State() == syncchannel.StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	// First surface signs out; the hub pushes the update.
	_, signOut := postJSON(t, server.URL+"/auth/signout", map[string]string{
		"sessionId": claims.SessionID,
	})
	require.True(t, signOut.Success)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, claims.SessionID, received[0].SessionID)
	assert.True(t, received[0].IsExpired())
}

func TestHub_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	svc, err := auth.New(newMemStore(), auth.Config{
		SecretKey:  "test-secret-key-at-least-32-bytes!",
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	hub := httpapi.NewHub(svc, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.Serve))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "?token=garbage")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_ConcurrentPushes(t *testing.T) {
	t.Parallel()

	svc, err := auth.New(newMemStore(), auth.Config{
		SecretKey:  "test-secret-key-at-least-32-bytes!",
		BcryptCost: 4,
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	hub := httpapi.NewHub(svc, nil)
	mux := http.NewServeMux()
	httpapi.NewHandler(svc, hub).Routes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	_, signUp := postJSON(t, server.URL+"/auth/signup", map[string]string{
		"email": "a@b.com", "password": "secret123",
	})
	require.True(t, signUp.Success)
	token := signUp.Data.(map[string]any)["token"].(string)
	claims := svc.VerifyToken(token)
	require.NotNil(t, claims)

	ch := syncchannel.New(syncchannel.Config{
		URL: "ws" + strings.TrimPrefix(server.URL, "http") + "/auth/sync",
	}, nil)
	t.Cleanup(ch.Disconnect)

	var (
		mu       sync.Mutex
		received []auth.Session
	)
	ch.OnSessionUpdate(func(sess auth.Session) {
		mu.Lock()
		received = append(received, sess)
		mu.Unlock()
	})

	ch.Connect(context.Background(), token)
	require.Eventually(t, func() bool {
		return ch.State() == syncchannel.StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	// Simultaneous pushes to the same connection must all arrive intact.
	const pushes = 5
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < pushes; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Push(auth.Session{
				SessionID: claims.SessionID,
				UserID:    claims.UserID,
				CreatedAt: now,
				ExpiresAt: now.Add(time.Duration(n+1) * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == pushes
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, sess := range received {
		assert.Equal(t, claims.SessionID, sess.SessionID)
	}
}
