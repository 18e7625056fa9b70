package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Body      requestBody
	CSRF      string
	RequestID string
	Custom    string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, endpoint string) (*Client, http.CookieJar) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c, err := NewClient(endpoint, WithJar(jar))
	require.NoError(t, err)
	return c, jar
}

func setCSRF(t *testing.T, jar http.CookieJar, endpoint, value string) {
	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: CSRFCookie, Value: value, Path: "/"}})
}

func TestExecute_SendsQueryAndDecodesData(t *testing.T) {
	var got capturedRequest
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.Body))
		got.CSRF = r.Header.Get(CSRFHeader)
		got.RequestID = r.Header.Get(RequestIDHeader)
		got.Custom = r.Header.Get("X-Custom")
		w.Write([]byte(`{"data":{"placeOrder":{"id":5}}}`))
	})

	c, jar := newTestClient(t, srv.URL+"/graphql/")
	setCSRF(t, jar, srv.URL, "tok-1")

	var out struct {
		PlaceOrder struct {
			ID int `json:"id"`
		} `json:"placeOrder"`
	}
	err := c.Execute(context.Background(), Request{
		Query:     "mutation($userId:Int!){placeOrder(userId:$userId){id}}",
		Variables: map[string]any{"userId": 3},
		Headers:   map[string]string{"X-Custom": "yes"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 5, out.PlaceOrder.ID)
	assert.Contains(t, got.Body.Query, "placeOrder")
	assert.Equal(t, float64(3), got.Body.Variables["userId"])
	assert.Equal(t, "tok-1", got.CSRF)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "yes", got.Custom)
}

func TestExecute_ReadsCSRFFreshOnEveryCall(t *testing.T) {
	var tokens []string
	var ids []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get(CSRFHeader))
		ids = append(ids, r.Header.Get(RequestIDHeader))
		w.Write([]byte(`{"data":{}}`))
	})

	c, jar := newTestClient(t, srv.URL)

	require.NoError(t, c.Execute(context.Background(), Request{Query: "{a}"}, nil))
	setCSRF(t, jar, srv.URL, "one")
	require.NoError(t, c.Execute(context.Background(), Request{Query: "{a}"}, nil))
	setCSRF(t, jar, srv.URL, "two")
	require.NoError(t, c.Execute(context.Background(), Request{Query: "{a}"}, nil))

	assert.Equal(t, []string{"", "one", "two"}, tokens)
	require.Len(t, ids, 3)
	assert.NotEqual(t, ids[1], ids[2])
}

func TestExecute_ServerErrors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"Username already exists"},{"message":"second"}]}`))
	})
	c, _ := newTestClient(t, srv.URL)

	err := c.Execute(context.Background(), Request{Query: "{a}"}, nil)
	require.Error(t, err)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"Username already exists", "second"}, se.Messages)
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Equal(t, "Username already exists", Message(err))
}

func TestExecute_ServerErrorsWinOverStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"bad query"}]}`))
	})
	c, _ := newTestClient(t, srv.URL)

	err := c.Execute(context.Background(), Request{Query: "{a}"}, nil)
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "bad query", Message(err))
}

func TestExecute_TransportFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"non-2xx without errors", http.StatusInternalServerError, `oops`},
		{"undecodable body", http.StatusOK, `<html>`},
		{"undecodable data", http.StatusOK, `{"data":{"n":"not-a-number"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			})
			c, _ := newTestClient(t, srv.URL)

			var out struct {
				N int `json:"n"`
			}
			err := c.Execute(context.Background(), Request{Query: "{n}"}, &out)
			assert.ErrorIs(t, err, ErrTransport)
			assert.Equal(t, NetworkErrorMessage, Message(err))
		})
	}
}

func TestExecute_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c, _ := newTestClient(t, endpoint)
	err := c.Execute(context.Background(), Request{Query: "{a}"}, nil)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestExecute_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{}}`))
	})
	c, _ := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Execute(ctx, Request{Query: "{a}"}, nil)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWithEndpoint_SharesJar(t *testing.T) {
	var csrf string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/", r.URL.Path)
		csrf = r.Header.Get(CSRFHeader)
		w.Write([]byte(`{"data":{}}`))
	})
	c, jar := newTestClient(t, srv.URL+"/graphql/")
	setCSRF(t, jar, srv.URL, "shared")

	auth, err := c.WithEndpoint(srv.URL + "/auth/")
	require.NoError(t, err)
	require.NoError(t, auth.Execute(context.Background(), Request{Query: "{a}"}, nil))
	assert.Equal(t, "shared", csrf)
}

func TestNewClient_InvalidEndpoint(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)
}

func TestMessage_PlainError(t *testing.T) {
	assert.Equal(t, NetworkErrorMessage, Message(errors.New("boom")))
	assert.Equal(t, NetworkErrorMessage, Message(&ServerError{}))
}
