package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHMACVerifier_AcceptsValidSignature(t *testing.T) {
	v := NewHMACVerifier("topsecret", "")
	body := []byte(`{"event":"subscription.suspended"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set(DefaultSignatureHeader, v.Sign(body))

	require.NoError(t, v.Verify(context.Background(), req, body))
}

func TestHMACVerifier_RejectsTamperedBody(t *testing.T) {
	v := NewHMACVerifier("topsecret", "")
	body := []byte(`{"event":"subscription.suspended"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set(DefaultSignatureHeader, v.Sign(body))

	tampered := []byte(`{"event":"subscription.activated"}`)
	require.Error(t, v.Verify(context.Background(), req, tampered))
}

func TestHMACVerifier_RejectsMissingHeader(t *testing.T) {
	v := NewHMACVerifier("topsecret", "")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	require.Error(t, v.Verify(context.Background(), req, nil))
}

func TestHMACVerifier_RejectsEmptySecret(t *testing.T) {
	v := NewHMACVerifier("", "")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	req.Header.Set(DefaultSignatureHeader, "deadbeef")
	require.Error(t, v.Verify(context.Background(), req, nil))
}

func TestMemoryReplayProtector_RejectsSeenEvent(t *testing.T) {
	p := NewMemoryReplayProtector("", time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	req.Header.Set(DefaultEventIDHeader, "evt-42")

	require.NoError(t, p.Check(context.Background(), req, nil))
	require.ErrorIs(t, p.Check(context.Background(), req, nil), ErrReplayDetected)
}

func TestMemoryReplayProtector_RejectsMissingEventID(t *testing.T) {
	p := NewMemoryReplayProtector("", time.Minute)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", nil)
	require.Error(t, p.Check(context.Background(), req, nil))
}
