// Package config assembles runtime settings from an optional YAML file and
// ARQUITECTURA_* environment variables. Environment values win over the file.
package config

import (
	"arquitectura/internal/blob"
	"arquitectura/internal/core"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ARQUITECTURA_"

// Config is the full runtime configuration.
type Config struct {
	Listen  string  `yaml:"listen"`
	Debug   bool    `yaml:"debug"`
	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
}

// Storage selects the document store.
type Storage struct {
	Driver      string `yaml:"driver"`
	Mongo       Mongo  `yaml:"mongo"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Mongo holds MongoDB connection settings.
type Mongo struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Blob selects the blueprint blob store.
type Blob struct {
	Driver string `yaml:"driver"`
	Root   string `yaml:"root"`
	S3     S3     `yaml:"s3"`
}

// S3 holds bucket settings for the s3 blob driver.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen: ":8000",
		Storage: Storage{
			Driver: string(core.StorageMongo),
			Mongo: Mongo{
				URI:      "mongodb://localhost:27017",
				Database: "arquitectura",
				Timeout:  10 * time.Second,
			},
			SQLitePath: "arquitectura.db",
		},
		Blob: Blob{
			Driver: string(blob.DriverFilesystem),
			Root:   "./planos",
		},
	}
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads path (when non-empty) over the defaults and then applies the
// process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("LISTEN_ADDR", &cfg.Listen)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("MONGO_URI", &cfg.Storage.Mongo.URI)
	str("MONGO_DATABASE", &cfg.Storage.Mongo.Database)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("BLOB_DRIVER", &cfg.Blob.Driver)
	str("BLOB_ROOT", &cfg.Blob.Root)
	str("S3_BUCKET", &cfg.Blob.S3.Bucket)
	str("S3_REGION", &cfg.Blob.S3.Region)
	str("S3_ENDPOINT", &cfg.Blob.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &cfg.Blob.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &cfg.Blob.S3.SecretAccessKey)

	if v, ok := lookup(EnvPrefix + "MONGO_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sMONGO_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Storage.Mongo.Timeout = d
	}
	if err := boolean("DEBUG", &cfg.Debug); err != nil {
		return err
	}
	return boolean("S3_PATH_STYLE", &cfg.Blob.S3.PathStyle)
}

// Validate rejects unknown drivers and settings a driver cannot run without.
func (c Config) Validate() error {
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMongo, core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob driver s3 requires %sS3_BUCKET", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}
	return nil
}

// StorageConfig converts the storage section for core.OpenDocumentStore.
func (c Config) StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:        core.StorageDriver(c.Storage.Driver),
		MongoURI:      c.Storage.Mongo.URI,
		MongoDatabase: c.Storage.Mongo.Database,
		MongoTimeout:  c.Storage.Mongo.Timeout,
		SQLitePath:    c.Storage.SQLitePath,
		PostgresDSN:   c.Storage.PostgresDSN,
	}
}

// BlobConfig converts the blob section for blob.Open.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		Root:   c.Blob.Root,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}
