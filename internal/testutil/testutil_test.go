package testutil

import (
	"context"
	"testing"
)

func TestNewTestServerWiring(t *testing.T) {
	ts := NewTestServer()
	if ts.Server == nil || ts.Sessions == nil || ts.Users == nil || ts.Sender == nil {
		t.Fatal("expected fully wired test server")
	}
	if ts.Server.Router() == nil {
		t.Error("expected router")
	}
}

func TestStubCompletion(t *testing.T) {
	stub := &StubCompletion{Reply: "Hallo"}
	reply, err := stub.GenerateReply(context.Background(), "sys", "ctx", nil)
	if err != nil || reply != "Hallo" {
		t.Errorf("expected canned reply, got %q, %v", reply, err)
	}
}
