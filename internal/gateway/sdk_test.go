package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKClientSend(t *testing.T) {
	server, captured := newGatewayServer(t, http.StatusOK, `{
		"id": "gen-1",
		"model": "anthropic/claude-3.5-sonnet",
		"choices": [{"message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}]
	}`)

	client := NewSDKClient("sk-test", WithBaseURL(server.URL))
	reply, err := client.Send(context.Background(), "hi", "anthropic/claude-3.5-sonnet", nil)

	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, "Bearer sk-test", captured.header.Get("Authorization"))
	assert.Equal(t, "hi", userContent(t, captured.body))
}

func TestSDKClientSendWithImage(t *testing.T) {
	server, captured := newGatewayServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)

	client := NewSDKClient("sk-test", WithBaseURL(server.URL))
	_, err := client.Send(context.Background(), "describe", "openai/gpt-4o", solidImage(4, 4))
	require.NoError(t, err)

	parts, ok := userContent(t, captured.body).([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "describe", parts[0].(map[string]any)["text"])
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
}

func TestSDKClientErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		reply      string
		wantKind   ErrorKind
		wantStatus int
		wantBody   string
	}{
		{
			name:       "json error envelope",
			status:     http.StatusUnauthorized,
			reply:      `{"error":{"message":"No auth credentials found","code":401}}`,
			wantKind:   KindAPIRejection,
			wantStatus: 401,
			wantBody:   `{"error":{"message":"No auth credentials found","code":401}}`,
		},
		{
			name:       "plain text error",
			status:     http.StatusBadGateway,
			reply:      "bad gateway",
			wantKind:   KindAPIRejection,
			wantStatus: 502,
			wantBody:   "bad gateway",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			reply:      "unauthorized",
			wantKind:   KindAPIRejection,
			wantStatus: 401,
			wantBody:   "unauthorized",
		},
		{
			name:       "invalid utf-8 body",
			status:     http.StatusBadRequest,
			reply:      "bad \xff input",
			wantKind:   KindAPIRejection,
			wantStatus: 400,
			wantBody:   "bad \uFFFD input",
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			reply:    `{"choices":[]}`,
			wantKind: KindDecoding,
		},
		{
			name:     "garbage body",
			status:   http.StatusOK,
			reply:    `not json`,
			wantKind: KindDecoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newGatewayServer(t, tt.status, tt.reply)
			client := NewSDKClient("sk-test", WithBaseURL(server.URL))

			_, err := client.Send(context.Background(), "hi", "openai/gpt-4o", nil)

			var gwErr *Error
			require.True(t, errors.As(err, &gwErr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantKind, gwErr.Kind)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, gwErr.StatusCode)
			}
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, gwErr.Body)
			}
		})
	}
}

func TestSDKClientMatchesHTTPClientRejection(t *testing.T) {
	for _, reply := range []string{"unauthorized", `{"error":{"message":"No auth credentials found","code":401}}`} {
		server, _ := newGatewayServer(t, http.StatusUnauthorized, reply)

		_, httpErr := NewHTTPClient("sk-test", WithBaseURL(server.URL)).Send(context.Background(), "hi", "openai/gpt-4o", nil)
		_, sdkErr := NewSDKClient("sk-test", WithBaseURL(server.URL)).Send(context.Background(), "hi", "openai/gpt-4o", nil)

		var fromHTTP, fromSDK *Error
		require.ErrorAs(t, httpErr, &fromHTTP)
		require.ErrorAs(t, sdkErr, &fromSDK)
		assert.Equal(t, fromHTTP.Kind, fromSDK.Kind)
		assert.Equal(t, fromHTTP.StatusCode, fromSDK.StatusCode)
		assert.Equal(t, fromHTTP.Body, fromSDK.Body)
	}
}

func TestSDKClientTruncatedBody(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Length", "100")
			w.WriteHeader(status)
			_, _ = w.Write([]byte("unauth"))
		}))
		t.Cleanup(server.Close)

		_, err := NewSDKClient("sk-test", WithBaseURL(server.URL)).Send(context.Background(), "hi", "openai/gpt-4o", nil)

		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, KindNetwork, gwErr.Kind, "status %d", status)
	}
}

func TestClassifySDKErrorContext(t *testing.T) {
	err := classifySDKError(context.Canceled, nil)
	assert.Equal(t, KindNetwork, err.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}
