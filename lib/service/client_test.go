// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bureau-foundation/memsandbox/lib/codec"
	"github.com/bureau-foundation/memsandbox/lib/testutil"
)

type echoRequest struct {
	Action  string `cbor:"action"`
	SpaceID string `cbor:"space_id"`
	Payload []byte `cbor:"payload"`
}

func startEchoServer(t *testing.T) *ServiceClient {
	t.Helper()
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request echoRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return request, nil
	})
	server.Handle("release-space", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("space limit reached")
	})
	startServer(t, server, socketPath)
	return NewServiceClient(socketPath)
}

func TestClientCall(t *testing.T) {
	client := startEchoServer(t)

	var result echoRequest
	err := client.Call(context.Background(), "echo", map[string]any{
		"space_id": "c0ffee",
		"payload":  []byte{0, 1, 2},
	}, &result)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Action != "echo" || result.SpaceID != "c0ffee" || len(result.Payload) != 3 {
		t.Errorf("result = %+v", result)
	}
}

func TestClientCallNilFieldsAndResult(t *testing.T) {
	client := startEchoServer(t)

	if err := client.Call(context.Background(), "release-space", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// A nil-data response leaves result untouched.
	result := echoRequest{SpaceID: "unchanged"}
	if err := client.Call(context.Background(), "release-space", nil, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.SpaceID != "unchanged" {
		t.Errorf("result modified: %+v", result)
	}
}

func TestClientCallServiceError(t *testing.T) {
	client := startEchoServer(t)

	err := client.Call(context.Background(), "fail", nil, nil)
	var serviceError *ServiceError
	if !errors.As(err, &serviceError) {
		t.Fatalf("expected *ServiceError, got %T: %v", err, err)
	}
	if serviceError.Action != "fail" || serviceError.Message != "space limit reached" {
		t.Errorf("ServiceError = %+v", serviceError)
	}

	err = client.Call(context.Background(), "missing", nil, nil)
	if !errors.As(err, &serviceError) {
		t.Fatalf("unknown action: expected *ServiceError, got %v", err)
	}
}

func TestClientCallConnectionRefused(t *testing.T) {
	client := NewServiceClient(filepath.Join(testutil.SocketDir(t), "absent.sock"))

	err := client.Call(context.Background(), "echo", nil, nil)
	if err == nil {
		t.Fatal("expected error for a missing socket")
	}
	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		t.Error("connection failures must not be *ServiceError")
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	client := startEchoServer(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := testutil.UniqueID("space")
			var result echoRequest
			if err := client.Call(context.Background(), "echo", map[string]any{"space_id": id}, &result); err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			if result.SpaceID != id {
				t.Errorf("call %d: space_id = %q, want %q", i, result.SpaceID, id)
			}
		}()
	}
	wg.Wait()
}
