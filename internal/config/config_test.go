package config

import (
	"arquitectura/internal/blob"
	"arquitectura/internal/core"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(pairs map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := pairs[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arquitectura.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadWith("", env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":8000" || cfg.Storage.Driver != "mongo" || cfg.Blob.Driver != "fs" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	sc := cfg.StorageConfig()
	if sc.Driver != core.StorageMongo || sc.MongoURI != "mongodb://localhost:27017" || sc.MongoDatabase != "arquitectura" || sc.MongoTimeout != 10*time.Second {
		t.Fatalf("unexpected storage config %+v", sc)
	}
}

func TestFileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
listen: ":9090"
debug: true
storage:
  driver: sqlite
  sqlite_path: /var/lib/arq/data.db
  mongo:
    timeout: 3s
blob:
  driver: s3
  s3:
    bucket: planos
    region: us-east-1
    path_style: true
`)
	cfg, err := LoadWith(path, env(map[string]string{
		"ARQUITECTURA_STORAGE_DRIVER": "postgres",
		"ARQUITECTURA_POSTGRES_DSN":   "postgres://db/arq",
		"ARQUITECTURA_S3_ENDPOINT":    "http://minio:9000",
		"ARQUITECTURA_DEBUG":          "false",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Debug {
		t.Fatalf("unexpected top-level settings %+v", cfg)
	}
	sc := cfg.StorageConfig()
	if sc.Driver != core.StoragePostgres || sc.PostgresDSN != "postgres://db/arq" || sc.SQLitePath != "/var/lib/arq/data.db" || sc.MongoTimeout != 3*time.Second {
		t.Fatalf("unexpected storage config %+v", sc)
	}
	bc := cfg.BlobConfig()
	if bc.Driver != blob.DriverS3 || bc.S3.Bucket != "planos" || bc.S3.Endpoint != "http://minio:9000" || !bc.S3.PathStyle || bc.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob config %+v", bc)
	}
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadWith(writeFile(t, ""), env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "mongo" {
		t.Fatalf("unexpected driver %s", cfg.Storage.Driver)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		path string
		env  map[string]string
		want string
	}{
		"missing file":      {path: filepath.Join(t.TempDir(), "nope.yaml"), want: "read config"},
		"unknown key":       {path: writeFile(t, "listne: x\n"), want: "parse config"},
		"bad bool":          {env: map[string]string{"ARQUITECTURA_DEBUG": "maybe"}, want: "ARQUITECTURA_DEBUG"},
		"bad duration":      {env: map[string]string{"ARQUITECTURA_MONGO_TIMEOUT": "soon"}, want: "MONGO_TIMEOUT"},
		"unknown storage":   {env: map[string]string{"ARQUITECTURA_STORAGE_DRIVER": "redis"}, want: "storage driver"},
		"unknown blob":      {env: map[string]string{"ARQUITECTURA_BLOB_DRIVER": "ftp"}, want: "blob driver"},
		"s3 without bucket": {env: map[string]string{"ARQUITECTURA_BLOB_DRIVER": "s3"}, want: "S3_BUCKET"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadWith(tc.path, env(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadUsesProcessEnvironment(t *testing.T) {
	t.Setenv("ARQUITECTURA_STORAGE_DRIVER", "memory")
	t.Setenv("ARQUITECTURA_LISTEN_ADDR", "127.0.0.1:0")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Listen != "127.0.0.1:0" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}
