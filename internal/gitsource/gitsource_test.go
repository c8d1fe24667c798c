package gitsource

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/logger"
)

func TestIsGitURL(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"https://github.com/example/vocab.git", true},
		{"https://github.com/example/vocab", true},
		{"git@github.com:example/vocab.git", true},
		{"ssh://git@example.com/vocab", true},
		{"./words", false},
		{"/home/me/words", false},
		{"words", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGitURL(tt.source))
		})
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/example/vocab.git", want: filepath.Join("repos", "github.com", "example", "vocab")},
		{name: "https without suffix", url: "https://gitlab.com/a/b", want: filepath.Join("repos", "gitlab.com", "a", "b")},
		{name: "scp-like", url: "git@github.com:example/vocab.git", want: filepath.Join("repos", "github.com", "example", "vocab")},
		{name: "garbage", url: "not a url", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSyncExistingNonRepository(t *testing.T) {
	dir := t.TempDir()
	err := Sync(context.Background(), logger.Discard(), "https://example.invalid/vocab.git", dir)
	assert.Error(t, err)
}
