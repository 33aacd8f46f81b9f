package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPostReturnsReplyMessage(t *testing.T) {
	var gotBody map[string]interface{}
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"hi"}`)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	reply, err := c.Post(context.Background(), srv.URL, map[string]string{"type": "message"}, time.Second)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if reply.Message == nil || *reply.Message != "hi" {
		t.Fatalf("expected reply message hi, got %#v", reply.Message)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected JSON content type, got %q", gotContentType)
	}
	if gotBody["type"] != "message" {
		t.Fatalf("unexpected body: %#v", gotBody)
	}
}

func TestPostWithoutMessageField(t *testing.T) {
	bodies := []string{`{}`, `{"message":null}`, `{"message":42}`, ``, `not json`, `[{"message":"x"}]`}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		reply, err := NewClient(Options{}).Post(context.Background(), srv.URL, struct{}{}, time.Second)
		srv.Close()
		if err != nil {
			t.Fatalf("body %q: unexpected error %v", body, err)
		}
		if reply == nil || reply.Message != nil {
			t.Fatalf("body %q: expected empty reply, got %#v", body, reply)
		}
	}
}

func TestPostSendsBearerSecret(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if _, err := NewClient(Options{Secret: "s3cret"}).Post(context.Background(), srv.URL, struct{}{}, time.Second); err != nil {
		t.Fatalf("post: %v", err)
	}
	if auth != "Bearer s3cret" {
		t.Fatalf("expected bearer header, got %q", auth)
	}
}

func TestPostHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow inactive", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(Options{}).Post(context.Background(), srv.URL, struct{}{}, time.Second)
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %T %v", err, err)
	}
	if werr.Kind != KindHTTPStatus || werr.StatusCode != 404 || werr.Status != "Not Found" {
		t.Fatalf("unexpected error: %+v", werr)
	}
}

func TestPostConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewClient(Options{}).Post(context.Background(), "http://"+addr+"/webhook", struct{}{}, time.Second)
	var werr *Error
	if !errors.As(err, &werr) || werr.Kind != KindConnectionRefused {
		t.Fatalf("expected connection refused, got %v", err)
	}
}

func TestPostTimeoutIsNoResponse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewClient(Options{}).Post(context.Background(), srv.URL, struct{}{}, 50*time.Millisecond)
	var werr *Error
	if !errors.As(err, &werr) || werr.Kind != KindNoResponse {
		t.Fatalf("expected no response, got %v", err)
	}
}

func TestPostMalformedURLIsOther(t *testing.T) {
	_, err := NewClient(Options{}).Post(context.Background(), "ftp://example.invalid/hook", struct{}{}, time.Second)
	var werr *Error
	if !errors.As(err, &werr) || werr.Kind != KindOther {
		t.Fatalf("expected other, got %v", err)
	}
	if !strings.Contains(werr.Message(), "unsupported protocol scheme") {
		t.Fatalf("expected underlying message, got %q", werr.Message())
	}
}

func TestPostUnmarshalableBodyIsOther(t *testing.T) {
	_, err := NewClient(Options{}).Post(context.Background(), "http://127.0.0.1/", map[string]interface{}{"c": make(chan int)}, time.Second)
	var werr *Error
	if !errors.As(err, &werr) || werr.Kind != KindOther {
		t.Fatalf("expected other for marshal failure, got %v", err)
	}
}
