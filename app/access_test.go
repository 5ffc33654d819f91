package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/modgate/adapters/clock"
	"github.com/artpar/modgate/adapters/memory"
	"github.com/artpar/modgate/app"
	"github.com/artpar/modgate/domain/access"
	"github.com/artpar/modgate/domain/dispatch"
	"github.com/rs/zerolog"
)

func TestAccessService_IssueAndResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAccessStore()
	svc := app.NewAccessService(store, clock.NewFake(baseTime), "", zerolog.Nop())

	rawKey, rec, err := svc.Issue(ctx, access.CreateParams{
		ApplicationID: 5,
		Name:          "ci",
		Permissions:   []string{"read"},
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !strings.HasPrefix(rawKey, access.DefaultKeyPrefix) || len(rawKey) != 67 {
		t.Errorf("raw key = %q", rawKey)
	}
	if rec.ID == 0 || !rec.CreatedAt.Equal(baseTime) {
		t.Errorf("record = %+v", rec)
	}

	got, err := svc.Resolve(ctx, rawKey)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.ID != rec.ID || got.ApplicationID != 5 || !got.HasPermission("read") {
		t.Errorf("Resolve() = %+v", got)
	}
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(baseTime) {
		t.Errorf("LastUsedAt = %v", got.LastUsedAt)
	}
}

func TestAccessService_Resolve_Failures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAccessStore()
	clk := clock.NewFake(baseTime)
	svc := app.NewAccessService(store, clk, "", zerolog.Nop())

	expiry := baseTime.Add(time.Hour)
	expiring, _, _ := svc.Issue(ctx, access.CreateParams{ApplicationID: 1, ExpiresAt: &expiry})
	revoked, revokedRec, _ := svc.Issue(ctx, access.CreateParams{ApplicationID: 1})
	if err := svc.Revoke(ctx, revokedRec.ID); err != nil {
		t.Fatal(err)
	}
	clk.Advance(2 * time.Hour)

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"bad format", "not-a-key", access.ErrNotFound},
		{"unknown key", access.DefaultKeyPrefix + strings.Repeat("0", 64), access.ErrNotFound},
		{"expired", expiring, access.ErrRejected},
		{"revoked", revoked, access.ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Resolve(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAccessService_List(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAccessService(memory.NewAccessStore(), clock.NewFake(baseTime), "tk_", zerolog.Nop())

	svc.Issue(ctx, access.CreateParams{ApplicationID: 1, Name: "a"})
	svc.Issue(ctx, access.CreateParams{ApplicationID: 2, Name: "b"})

	all, _ := svc.List(ctx, 0)
	if len(all) != 2 {
		t.Errorf("List(0) = %d records", len(all))
	}
	one, _ := svc.List(ctx, 2)
	if len(one) != 1 || one[0].Name != "b" {
		t.Errorf("List(2) = %+v", one)
	}
}

func TestAccessService_IssueLongPrefix(t *testing.T) {
	svc := app.NewAccessService(memory.NewAccessStore(), clock.NewFake(baseTime), "modgate_live_", zerolog.Nop())

	raw, _, err := svc.Issue(context.Background(), access.CreateParams{ApplicationID: 1})
	if !errors.Is(err, access.ErrKeyPrefixTooLong) || raw != "" {
		t.Errorf("Issue() = %q, %v, want ErrKeyPrefixTooLong", raw, err)
	}
	if all, _ := svc.List(context.Background(), 0); len(all) != 0 {
		t.Errorf("failed Issue stored %d records", len(all))
	}
}

func TestAuthFailureReason(t *testing.T) {
	auth := app.NewAuthenticator(memory.NewStaticResolver(nil))
	ctx := context.Background()

	_, err := auth.Authenticate(ctx, moduleRequest("v1", "x", nil))
	if !errors.Is(err, app.ErrUnauthorized) || app.AuthFailureReason(err) != app.AuthReasonMissing {
		t.Errorf("missing: %v (%s)", err, app.AuthFailureReason(err))
	}

	_, err = auth.Authenticate(ctx, moduleRequest("v1", "x", map[string]string{"access_key": "k"}))
	if app.AuthFailureReason(err) != app.AuthReasonNotFound {
		t.Errorf("not found: %v", err)
	}

	// empty parameter falls through to basic auth
	req := moduleRequest("v1", "x", map[string]string{"access_key": ""})
	req.BasicAuth = &dispatch.BasicAuth{Password: "k"}
	if key, ok := app.Credential(req); !ok || key != "k" {
		t.Errorf("Credential() = %q, %v", key, ok)
	}
}
