package store

import (
	"path/filepath"
	"testing"

	"github.com/casualjim/codelens/pkg/natsx"
	"github.com/casualjim/codelens/provider"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func TestStoreImplementations(t *testing.T) {
	factories := map[string]storeFactory{
		"Memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"Bolt": func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "codelens.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"SQLite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "codelens.sqlite"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"SQLiteMemory": func(t *testing.T) Store {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"NATS": func(t *testing.T) Store {
			nc, err := natsx.NewClient(nats.DefaultURL)
			if err != nil {
				t.Skipf("nats server not available: %v", err)
			}
			t.Cleanup(nc.Close)
			kv, err := natsx.KeyValue(nc, "codelens_store_test")
			if err != nil {
				t.Skipf("jetstream not available: %v", err)
			}
			for _, key := range []string{KeyProvider, KeyConversation, "missing"} {
				_ = kv.Purge(key)
			}
			return NewNATS(kv)
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				s := factory(t)
				v, ok, err := s.Get("missing")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Empty(t, v)
			})

			t.Run("set and get", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Set(KeyProvider, "gemini"))
				v, ok, err := s.Get(KeyProvider)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "gemini", v)
			})

			t.Run("overwrite", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Set(KeyConversation, `{"id":"a"}`))
				require.NoError(t, s.Set(KeyConversation, `{"id":"b"}`))
				v, ok, err := s.Get(KeyConversation)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, `{"id":"b"}`, v)
			})

			t.Run("remove", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Set(KeyConversation, "x"))
				require.NoError(t, s.Remove(KeyConversation))
				_, ok, err := s.Get(KeyConversation)
				require.NoError(t, err)
				assert.False(t, ok)

				assert.NoError(t, s.Remove("missing"))
			})

			t.Run("empty value", func(t *testing.T) {
				s := factory(t)
				require.NoError(t, s.Set(KeyProvider, ""))
				v, ok, err := s.Get(KeyProvider)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Empty(t, v)
			})
		})
	}
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codelens.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyGemini, "AIza-secret"))
	require.NoError(t, s.Close())

	_, _, err = s.Get(KeyGemini)
	assert.ErrorIs(t, err, ErrClosed)

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(KeyGemini)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AIza-secret", v)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codelens.sqlite")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyOpenAI, "sk-secret"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(KeyOpenAI)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-secret", v)
}

func TestCredentialKey(t *testing.T) {
	assert.Equal(t, "openai-api-key", CredentialKey(provider.KindOpenAI))
	assert.Equal(t, "gemini-api-key", CredentialKey(provider.KindGemini))
	assert.Equal(t, "claude-api-key", CredentialKey(provider.Kind("claude")))
}
