package push

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docket-app/docket/internal/database"
	"github.com/docket-app/docket/internal/model"
	"github.com/docket-app/docket/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestConfigured(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	if !NewService(pub, priv, "mailto:ops@docket.test").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewService("", "", "mailto:ops@docket.test").Configured() {
		t.Error("expected Configured() = false")
	}
}

func TestSendExpiredSubscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	svc := NewService(pub, priv, "mailto:ops@docket.test")

	// Valid-shaped client keys so payload encryption succeeds.
	clientPub, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate client keys: %v", err)
	}
	sub := &model.PushSubscription{
		Endpoint:  server.URL,
		P256dhKey: clientPub,
		AuthKey:   base64.RawURLEncoding.EncodeToString(make([]byte, 16)),
	}

	if err := svc.Send(sub, Payload{Title: "t"}); err != ErrExpired {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestNotifierPrunesExpiredSubscriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	subs := store.NewPushStore(db)

	clientPub, _, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate client keys: %v", err)
	}
	if _, err := subs.Subscribe(&model.PushSubscription{
		FirmID: 1, MemberID: 3, Endpoint: server.URL,
		P256dhKey: clientPub,
		AuthKey:   base64.RawURLEncoding.EncodeToString(make([]byte, 16)),
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}
	notifier := NewNotifier(NewService(pub, priv, "mailto:ops@docket.test"), subs, slog.Default())

	if err := notifier.Notify("subject", "<p>body</p>", []int64{3}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	remaining, err := subs.ListByMembers([]int64{3})
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("subscriptions after prune = %d, want 0", len(remaining))
	}
}

func TestNotifierUnconfiguredIsNoop(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	notifier := NewNotifier(NewService("", "", ""), store.NewPushStore(db), slog.Default())
	if err := notifier.Notify("subject", "<p>body</p>", []int64{1}); err != nil {
		t.Errorf("notify: %v, want nil when unconfigured", err)
	}
}
