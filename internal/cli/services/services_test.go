package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/tripkit/internal/cli"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/places"
	"github.com/julianstephens/tripkit/internal/voice"
)

func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	for _, k := range []string{"TRIPKIT_OPENAI_API_KEY", "TRIPKIT_AMAP_KEY", "TRIPKIT_XUNFEI_APP_ID",
		"TRIPKIT_XUNFEI_API_KEY", "TRIPKIT_XUNFEI_API_SECRET", "TRIPKIT_SUPABASE_URL",
		"TRIPKIT_SYNC_API_BASE", "TRIPKIT_POSTGRES_URL"} {
		t.Setenv(k, "")
	}

	ctx, err := cli.NewContext(cli.Options{
		Ctx:       context.Background(),
		ConfigDir: t.TempDir(),
		KV:        localstore.NewMemoryKV(),
	})
	if err != nil {
		t.Fatalf("failed to create context: %v", err)
	}
	if err := ctx.Open(); err != nil {
		t.Fatalf("failed to open context: %v", err)
	}
	t.Cleanup(ctx.Close)
	return ctx
}

func TestParseFallsBackToLocal(t *testing.T) {
	ctx := setupTestContext(t)
	text := "I want to go to Beijing for 2 people, budget 5000"

	for _, local := range []bool{true, false} {
		fields := parse(ctx, text, local)
		if fields.Budget != 5000 || fields.Travelers != 2 {
			t.Errorf("parse(local=%v) = %+v", local, fields)
		}
	}
}

func TestVoiceParseCmd(t *testing.T) {
	ctx := setupTestContext(t)
	cmd := &VoiceParseCmd{Text: []string{"Shanghai", "budget", "8000"}, Local: true}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestVoiceTranscribeNeedsCredentials(t *testing.T) {
	ctx := setupTestContext(t)
	audio := filepath.Join(t.TempDir(), "clip.pcm")
	if err := os.WriteFile(audio, make([]byte, 1280), 0600); err != nil {
		t.Fatal(err)
	}

	err := (&VoiceTranscribeCmd{File: audio}).Run(ctx)
	if !errors.Is(err, voice.ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestPlacesSearchValidation(t *testing.T) {
	ctx := setupTestContext(t)

	tests := []struct {
		name string
		cmd  PlacesSearchCmd
		want error
	}{
		{"no keywords", PlacesSearchCmd{Sort: "weight", Page: 1, Limit: 10}, places.ErrNoKeywords},
		{"no key", PlacesSearchCmd{Keywords: "hotel", City: "Shanghai", Sort: "weight", Page: 1, Limit: 10}, places.ErrNoKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Run(ctx); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	bad := PlacesSearchCmd{Keywords: "hotel", Near: "not-a-coordinate", Sort: "weight", Page: 1, Limit: 10}
	if err := bad.Run(ctx); err == nil {
		t.Error("expected an error for a malformed coordinate")
	}
}
