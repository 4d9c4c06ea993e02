package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, "http://localhost:5000", cfg.ClassifierURL)
	assert.Equal(t, int64(5242880), cfg.ImageMaxBytes)
	assert.False(t, cfg.ImagesEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "postgres complete",
			cfg:  Config{DBDriver: "postgres", DBHost: "db", DBUser: "u", DBName: "news", ClassifierTimeout: time.Second, ImageMaxBytes: 1},
		},
		{
			name:    "postgres missing host",
			cfg:     Config{DBDriver: "postgres", DBUser: "u", DBName: "news", ClassifierTimeout: time.Second, ImageMaxBytes: 1},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			cfg:     Config{DBDriver: "mysql", ClassifierTimeout: time.Second, ImageMaxBytes: 1},
			wantErr: true,
		},
		{
			name:    "zero classifier timeout",
			cfg:     Config{DBDriver: "sqlite", SQLitePath: "x.db", ImageMaxBytes: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "news", DBPassword: "secret", DBName: "verify", DBPort: 5433, DBSSLMode: "require"}
	assert.Equal(t, "host=db user=news password=secret dbname=verify port=5433 sslmode=require", cfg.DSN())
}
