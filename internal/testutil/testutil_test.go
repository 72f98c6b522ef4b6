package testutil

import (
	"net/http"
	"testing"
)

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodPost, "/api/diagram")
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if req.URL.Path != "/api/diagram" {
		t.Errorf("path = %s, want /api/diagram", req.URL.Path)
	}
}

func TestNewTestRecorder(t *testing.T) {
	rec := NewTestRecorder()
	if rec.Code != http.StatusOK {
		t.Errorf("fresh recorder code = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body == nil {
		t.Error("fresh recorder should have a body buffer")
	}
}

func TestAssertHelpersAcceptValidInput(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
	AssertNoError(t, nil)
}
