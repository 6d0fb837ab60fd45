package infra

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyProvider(t *testing.T) {
	tests := []struct {
		name   string
		testFn func(t *testing.T, provider *FileKeyProvider)
	}{
		{
			name: "KeyExists returns false when no key file",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				assert.False(t, provider.KeyExists())
			},
		},
		{
			name: "EnsureKey creates key file with correct permissions",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				key, err := provider.EnsureKey()
				require.NoError(t, err)
				assert.Len(t, key, keySize)
				assert.True(t, provider.KeyExists())

				// Check file permissions (0600)
				info, err := os.Stat(provider.keyPath)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
			},
		},
		{
			name: "EnsureKey is stable across calls",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				first, err := provider.EnsureKey()
				require.NoError(t, err)

				second, err := provider.EnsureKey()
				require.NoError(t, err)
				assert.Equal(t, first, second)
			},
		},
		{
			name: "StoreKey rejects wrong key size",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				err := provider.StoreKey([]byte("short"))
				require.Error(t, err)
			},
		},
		{
			name: "GetKey rejects tampered key file",
			testFn: func(t *testing.T, provider *FileKeyProvider) {
				_, err := provider.EnsureKey()
				require.NoError(t, err)

				require.NoError(t, os.WriteFile(provider.keyPath, []byte("not base64!!"), 0600))
				_, err = provider.GetKey()
				require.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewFileKeyProvider(t.TempDir())
			tt.testFn(t, provider)
		})
	}
}
