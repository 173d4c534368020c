package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

func TestParsePolicies(t *testing.T) {
	t.Parallel()

	doc := `
policies:
  avatars:
    max_file_size: 2MiB
    allowed_types: [image/png, image/jpeg]
    timeout: 30s
    acl: public-read
  reports:
    prefix: finance/reports
    max_files: 5
    max_file_size: 10MB
    max_fields: 4
    max_field_size: 1KiB
    allowed_types: [application/pdf]
`
	policies, err := ParsePolicies(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, policies, 2)

	avatars := policies["avatars"]
	require.Equal(t, "avatars", avatars.Name)
	require.Equal(t, "avatars", avatars.Prefix)
	require.Equal(t, 1, avatars.MaxFiles)
	require.Equal(t, 2*MiB, avatars.MaxFileSize)
	require.Equal(t, 30*time.Second, avatars.Timeout)
	require.Equal(t, storage.ACLPublicRead, avatars.ACL)

	reports := policies["reports"]
	require.Equal(t, "finance/reports", reports.Prefix)
	require.Equal(t, ByteSize(10_000_000), reports.MaxFileSize)
	require.Equal(t, KiB, reports.MaxFieldSize)
}

func TestParsePolicies_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"missing size", "policies:\n  a:\n    allowed_types: [text/plain]\n"},
		{"missing types", "policies:\n  a:\n    max_file_size: 1KiB\n"},
		{"bad size", "policies:\n  a:\n    max_file_size: lots\n    allowed_types: [text/plain]\n"},
		{"bad acl", "policies:\n  a:\n    max_file_size: 1KiB\n    allowed_types: [text/plain]\n    acl: world\n"},
		{"bad name", "policies:\n  A B:\n    max_file_size: 1KiB\n    allowed_types: [text/plain]\n"},
		{"unknown field", "policies:\n  a:\n    max_size: 1KiB\n    allowed_types: [text/plain]\n"},
		{"negative files", "policies:\n  a:\n    max_files: -1\n    max_file_size: 1KiB\n    allowed_types: [text/plain]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePolicies(strings.NewReader(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestParseByteSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want ByteSize
		err  bool
	}{
		{"512", 512, false},
		{"512b", 512, false},
		{"4KiB", 4 * KiB, false},
		{"4 kb", 4000, false},
		{"1GiB", GiB, false},
		{"-1", 0, true},
		{"MiB", 0, true},
		{"1.5MiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseByteSize(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPolicies(t *testing.T) {
	t.Parallel()

	for name, p := range DefaultPolicies() {
		require.Equal(t, name, p.Name)
		require.NoError(t, p.validate())
	}
}

// Load reads process-wide environment variables, so these subtests are sequential.
func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_CONN_URL", "postgres://localhost/uploadkit")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("STORAGE_BUCKET", "uploads")
	t.Setenv("STORAGE_ACCESS_KEY", "key")
	t.Setenv("STORAGE_SECRET_KEY", "secret")

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, ":8080", cfg.HTTP.Addr)
		require.Equal(t, "schema_migrations", cfg.DB.MigrationsTable)
		require.Equal(t, "us-east-1", cfg.Storage.Region)
		require.Equal(t, time.Hour, cfg.Upload.SweepAfter)
		require.False(t, cfg.Development())
		require.Contains(t, cfg.Upload.Policies, "documents")
	})

	t.Run("policy file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policies.yaml")
		require.NoError(t, os.WriteFile(path, []byte("policies:\n  avatars:\n    max_file_size: 1MiB\n    allowed_types: [image/*]\n"), 0o600))
		t.Setenv("UPLOAD_POLICIES_FILE", path)
		t.Setenv("APP_ENV", "development")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.Development())
		require.Equal(t, []string{"avatars"}, keys(cfg.Upload.Policies))
	})

	t.Run("missing policy file", func(t *testing.T) {
		t.Setenv("UPLOAD_POLICIES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load()
		require.ErrorIs(t, err, ErrLoadPolicies)
	})

	t.Run("dotenv file", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", "")
		require.NoError(t, os.Unsetenv("HTTP_ADDR"))
		t.Setenv("STORAGE_REGION", "eu-west-1")

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\nSTORAGE_REGION=ap-south-1\n"), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, ":9090", cfg.HTTP.Addr)
		require.Equal(t, "eu-west-1", cfg.Storage.Region, "process environment wins")
	})

	t.Run("invalid quota", func(t *testing.T) {
		t.Setenv("UPLOAD_TENANT_QUOTA", "-5")
		_, err := Load()
		require.ErrorIs(t, err, ErrInvalid)
	})
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"DATABASE_CONN_URL", "REDIS_URL", "STORAGE_BUCKET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	_, err := Load()
	require.ErrorIs(t, err, ErrLoadEnv)
}

func keys(m map[string]Policy) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestParsePolicies_ExampleFile(t *testing.T) {
	t.Parallel()

	f, err := os.Open(filepath.Join("..", "..", "policies.example.yaml"))
	require.NoError(t, err)
	defer f.Close()

	policies, err := ParsePolicies(f)
	require.NoError(t, err)
	require.Equal(t, storage.ACLPublicRead, policies["avatars"].ACL)
	require.Equal(t, ByteSize(2<<20), policies["avatars"].MaxFileSize)
	require.Equal(t, "documents", policies["documents"].Prefix)
}
