package webhooks

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func nopLog() *zap.Logger { return zap.NewNop() }

func TestSignVerify(t *testing.T) {
	body := []byte(`{"type":"plan.solved"}`)
	at := time.Unix(1700000000, 0)
	sig := SignHMAC("k", body, at)
	if !strings.HasPrefix(sig, "t=1700000000,v1=") {
		t.Fatalf("unexpected header %q", sig)
	}
	if !VerifyHMAC("k", body, sig, at.Add(time.Minute), 5*time.Minute) {
		t.Fatal("signature should verify")
	}
	if VerifyHMAC("other", body, sig, at, 0) {
		t.Fatal("wrong secret must not verify")
	}
	if VerifyHMAC("k", []byte(`{}`), sig, at, 0) {
		t.Fatal("altered body must not verify")
	}
	if VerifyHMAC("k", body, sig, at.Add(time.Hour), 5*time.Minute) {
		t.Fatal("stale signature must not verify")
	}
	if !VerifyHMAC("k", body, sig, at.Add(time.Hour), 0) {
		t.Fatal("zero tolerance skips the age check")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	body := []byte(`{}`)
	for _, h := range []string{"", "v1=abcd", "t=x,v1=abcd", "t=1,v1=zz", "t=1"} {
		if VerifyHMAC("k", body, h, time.Unix(1, 0), 0) {
			t.Fatalf("header %q must not verify", h)
		}
	}
}
