package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	mocks "github.com/CzzzzzzJ/shuaigou-dy/internal/testing"
)

func newTestService(t *testing.T, cfg shared.CozeConfig) *CozeService {
	t.Helper()
	svc, err := NewCozeService(cfg, nil)
	if err != nil {
		t.Fatalf("NewCozeService() error: %v", err)
	}
	svc.SetRetryPolicy(3, time.Millisecond)
	return svc
}

func TestNewCozeService(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		if _, err := NewCozeService(shared.CozeConfig{}, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("NewCozeService() error = %v, want %v", err, shared.ErrMissingCredentials)
		}
	})

	t.Run("defaults the base URL", func(t *testing.T) {
		svc, err := NewCozeService(shared.CozeConfig{APIToken: "tok"}, nil)
		if err != nil {
			t.Fatalf("NewCozeService() error: %v", err)
		}
		if svc.cfg.BaseURL != "https://api.coze.com" {
			t.Errorf("BaseURL = %q", svc.cfg.BaseURL)
		}
		if svc.Name() != "Coze" {
			t.Errorf("Name() = %q", svc.Name())
		}
	})

	t.Run("rewrite token alone is sufficient", func(t *testing.T) {
		if _, err := NewCozeService(shared.CozeConfig{RewriteAPIToken: "tok"}, nil); err != nil {
			t.Fatalf("NewCozeService() error: %v", err)
		}
	})
}

func TestCozeService_Rewrite_Direct(t *testing.T) {
	var gotReq streamRunRequest
	var gotAuth, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Write([]byte("data: {\"content\":\"{\\\"output\\\":\\\"改写结果\\\"}\",\"node_title\":\"End\"}\n\n"))
	}))
	defer server.Close()

	svc := newTestService(t, shared.CozeConfig{
		RewriteAPIToken:   "rewrite-token",
		RewriteWorkflowID: "wf-rewrite",
		BaseURL:           server.URL,
	})

	raw, err := svc.Rewrite(context.Background(), "原始文案", "改成卖汉服的")
	if err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}
	if !strings.Contains(raw, "End") {
		t.Errorf("Rewrite() raw = %q, want stream text", raw)
	}
	if gotAuth != "Bearer rewrite-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != streamRunPath {
		t.Errorf("path = %q, want %q", gotPath, streamRunPath)
	}
	if gotReq.WorkflowID != "wf-rewrite" {
		t.Errorf("workflow_id = %q", gotReq.WorkflowID)
	}
	want := map[string]string{"user_id": "default_user", "text": "原始文案", "user_input": "改成卖汉服的"}
	for k, v := range want {
		if gotReq.Parameters[k] != v {
			t.Errorf("parameters[%s] = %q, want %q", k, gotReq.Parameters[k], v)
		}
	}
}

func TestCozeService_Extract_Direct(t *testing.T) {
	var gotReq streamRunRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		w.Write([]byte("data: {\"content\":\"{\\\"content\\\":\\\"文案\\\",\\\"title\\\":\\\"标题\\\"}\"}\n\n"))
	}))
	defer server.Close()

	svc := newTestService(t, shared.CozeConfig{
		APIToken:          "extract-token",
		ExtractWorkflowID: "wf-extract",
		BaseURL:           server.URL,
	})

	if _, err := svc.Extract(context.Background(), "https://v.douyin.com/abc/"); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if gotReq.WorkflowID != "wf-extract" {
		t.Errorf("workflow_id = %q", gotReq.WorkflowID)
	}
	if gotReq.Parameters["user_id"] != "default" {
		t.Errorf("parameters[user_id] = %q", gotReq.Parameters["user_id"])
	}
	if gotReq.Parameters["BOT_USER_INPUT"] != "https://v.douyin.com/abc/" {
		t.Errorf("parameters[BOT_USER_INPUT] = %q", gotReq.Parameters["BOT_USER_INPUT"])
	}
}

func TestCozeService_ProxyFallback(t *testing.T) {
	t.Run("proxy is tried when direct fails", func(t *testing.T) {
		directCalls := 0
		direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			directCalls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer direct.Close()

		proxyCalls := 0
		var proxyAuth string
		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proxyCalls++
			proxyAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(proxyEnvelope{Data: "data: {\"node_title\":\"End\"}\n\n"})
		}))
		defer proxy.Close()

		svc := newTestService(t, shared.CozeConfig{
			APIToken: "tok",
			BaseURL:  direct.URL,
			ProxyURL: proxy.URL,
		})

		raw, err := svc.Extract(context.Background(), "https://v.douyin.com/abc/")
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if raw != "data: {\"node_title\":\"End\"}\n\n" {
			t.Errorf("raw = %q", raw)
		}
		if directCalls != 1 || proxyCalls != 1 {
			t.Errorf("direct = %d, proxy = %d, want 1 each", directCalls, proxyCalls)
		}
		if proxyAuth != "Bearer tok" {
			t.Errorf("proxy Authorization = %q, want forwarded bearer", proxyAuth)
		}
	})

	t.Run("both transports failing retries the pair up to the bound", func(t *testing.T) {
		directCalls := 0
		direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			directCalls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer direct.Close()

		proxyCalls := 0
		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proxyCalls++
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(proxyEnvelope{Error: "upstream unavailable", Status: 502})
		}))
		defer proxy.Close()

		svc := newTestService(t, shared.CozeConfig{
			APIToken: "tok",
			BaseURL:  direct.URL,
			ProxyURL: proxy.URL,
		})

		_, err := svc.Extract(context.Background(), "https://v.douyin.com/abc/")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("Extract() error = %v, want wrapped %v", err, shared.ErrAPIRequest)
		}
		if directCalls != 3 || proxyCalls != 3 {
			t.Errorf("direct = %d, proxy = %d, want 3 each", directCalls, proxyCalls)
		}
	})

	t.Run("no proxy configured fails on the direct error", func(t *testing.T) {
		direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer direct.Close()

		svc := newTestService(t, shared.CozeConfig{APIToken: "tok", BaseURL: direct.URL})

		_, err := svc.Extract(context.Background(), "https://v.douyin.com/abc/")

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("Extract() error = %v, want *StatusError", err)
		}
		if statusErr.Status != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", statusErr.Status)
		}
	})
}

func TestCozeService_StreamRun(t *testing.T) {
	t.Run("unknown transport", func(t *testing.T) {
		svc := newTestService(t, shared.CozeConfig{APIToken: "tok"})
		if _, err := svc.StreamRun(context.Background(), Transport(99), "tok", streamRunRequest{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("StreamRun() error = %v, want %v", err, shared.ErrInvalidArgument)
		}
	})

	t.Run("unreachable host is a transport error", func(t *testing.T) {
		svc := newTestService(t, shared.CozeConfig{APIToken: "tok", BaseURL: "http://127.0.0.1:1"})
		svc.SetRetryPolicy(1, time.Millisecond)
		if _, err := svc.Extract(context.Background(), "https://v.douyin.com/abc/"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("Extract() error = %v, want %v", err, shared.ErrAPIRequest)
		}
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		client := &http.Client{Transport: mocks.NewMockRoundTripper(nil, errors.New("connection refused"))}
		svc, err := NewCozeService(shared.CozeConfig{APIToken: "tok"}, client)
		if err != nil {
			t.Fatalf("NewCozeService() error: %v", err)
		}

		if _, err := svc.StreamRun(context.Background(), TransportDirect, "tok", streamRunRequest{}); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("StreamRun() error = %v, want %v", err, shared.ErrAPIRequest)
		}
	})

	t.Run("body read failure is a transport error", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &mocks.FCloser{},
		}
		client := &http.Client{Transport: mocks.NewMockRoundTripper(resp, nil)}
		svc, err := NewCozeService(shared.CozeConfig{APIToken: "tok"}, client)
		if err != nil {
			t.Fatalf("NewCozeService() error: %v", err)
		}

		_, err = svc.StreamRun(context.Background(), TransportDirect, "tok", streamRunRequest{})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("StreamRun() error = %v, want %v", err, shared.ErrAPIRequest)
		}
		if !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("StreamRun() error = %v, want a read failure", err)
		}
	})
}

func TestDecodeProxyEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       string
		wantErr    error
		wantStatus int
	}{
		{
			name:   "success envelope",
			status: http.StatusOK,
			body:   `{"data":"data: {}\n\n"}`,
			want:   "data: {}\n\n",
		},
		{
			name:       "error envelope with message",
			status:     http.StatusBadGateway,
			body:       `{"error":"Failed to call Coze API","message":"timeout","status":502}`,
			wantErr:    shared.ErrAPIRequest,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "error envelope without message",
			status:     http.StatusInternalServerError,
			body:       `{"error":"boom"}`,
			wantErr:    shared.ErrAPIRequest,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "non-JSON failure body",
			status:     http.StatusServiceUnavailable,
			body:       "upstream gone",
			wantErr:    shared.ErrAPIRequest,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:    "non-JSON success body",
			status:  http.StatusOK,
			body:    "not an envelope",
			wantErr: shared.ErrBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeProxyEnvelope(tt.status, []byte(tt.body))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("decodeProxyEnvelope() error = %v, want %v", err, tt.wantErr)
				}
				if tt.wantStatus != 0 {
					var statusErr *StatusError
					if !errors.As(err, &statusErr) || statusErr.Status != tt.wantStatus {
						t.Errorf("error = %v, want StatusError with status %d", err, tt.wantStatus)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeProxyEnvelope() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeProxyEnvelope() = %q, want %q", got, tt.want)
			}
		})
	}
}
