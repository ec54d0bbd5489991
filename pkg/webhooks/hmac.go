package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultSignatureHeader = "X-Nero-Signature"
	DefaultEventIDHeader   = "X-Nero-Event-Id"
)

// HMACVerifier checks an HMAC-SHA256 hex digest of the raw body against
// the signature header. This is the scheme the billing provider uses.
type HMACVerifier struct {
	secret []byte
	header string
}

func NewHMACVerifier(secret, header string) *HMACVerifier {
	if header == "" {
		header = DefaultSignatureHeader
	}
	return &HMACVerifier{secret: []byte(secret), header: header}
}

func (v *HMACVerifier) Verify(_ context.Context, r *http.Request, body []byte) error {
	if len(v.secret) == 0 {
		return errors.New("webhook secret not configured")
	}
	got := r.Header.Get(v.header)
	if got == "" {
		return errors.New("missing signature header")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(got)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// Sign computes the digest the provider would send for body.
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// MemoryReplayProtector rejects events whose id header was already seen
// within the TTL window. Events without an id header are rejected.
type MemoryReplayProtector struct {
	header string
	ttl    time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryReplayProtector(header string, ttl time.Duration) *MemoryReplayProtector {
	if header == "" {
		header = DefaultEventIDHeader
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryReplayProtector{
		header: header,
		ttl:    ttl,
		seen:   make(map[string]time.Time),
	}
}

func (p *MemoryReplayProtector) Check(_ context.Context, r *http.Request, _ []byte) error {
	id := r.Header.Get(p.header)
	if id == "" {
		return errors.New("missing event id header")
	}

	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, exp := range p.seen {
		if !now.Before(exp) {
			delete(p.seen, k)
		}
	}
	if exp, ok := p.seen[id]; ok && now.Before(exp) {
		return ErrReplayDetected
	}
	p.seen[id] = now.Add(p.ttl)
	return nil
}
