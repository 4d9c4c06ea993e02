package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"news-verify/storage"
)

const backupPrefix = "backups/"

type BackupConfig struct {
	PostgresHost     string `envconfig:"DB_HOST" required:"true"`
	PostgresPort     int    `envconfig:"DB_PORT" default:"5432"`
	PostgresUser     string `envconfig:"DB_USER" required:"true"`
	PostgresPassword string `envconfig:"DB_PASSWORD" required:"true"`
	PostgresDB       string `envconfig:"DB_NAME" required:"true"`
	BackupBucket     string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint   string `envconfig:"BACKUP_S3_ENDPOINT"`
	BackupAccessKey  string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey  string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion     string `envconfig:"BACKUP_S3_REGION" default:"us-east-1"`
	KeepBackups      int    `envconfig:"KEEP_BACKUPS" default:"4"`

	Timeout time.Duration `envconfig:"BACKUP_TIMEOUT" default:"30m"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := run(ctx, cfg, logging); err != nil {
		logging.Fatal("Backup failed", zap.Error(err))
	}
	logging.Info("Backup finished")
}

func run(ctx context.Context, cfg BackupConfig, logging *zap.Logger) error {
	logging.Info("Starting backup", zap.String("database", cfg.PostgresDB))

	dump, err := createDump(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create dump: %w", err)
	}

	objects, err := storage.NewObjectStore(ctx, storage.S3Settings{
		Endpoint: cfg.BackupEndpoint,
		Region:   cfg.BackupRegion,
		Key:      cfg.BackupAccessKey,
		Secret:   cfg.BackupSecretKey,
		Bucket:   cfg.BackupBucket,
	})
	if err != nil {
		return fmt.Errorf("create s3 client: %w", err)
	}

	key := backupKey(time.Now())
	if _, err := objects.Put(ctx, key, dump, "application/gzip"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logging.Info("Backup uploaded",
		zap.String("bucket", cfg.BackupBucket),
		zap.String("key", key),
		zap.Int("bytes", len(dump)))

	removed, err := objects.Prune(ctx, backupPrefix, cfg.KeepBackups)
	for _, k := range removed {
		logging.Info("Deleted old backup", zap.String("key", k))
	}
	if err != nil {
		return fmt.Errorf("rotate backups: %w", err)
	}
	return nil
}

func backupKey(now time.Time) string {
	return fmt.Sprintf("%sbackup-%s.sql.gz", backupPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.PostgresHost,
		"-p", fmt.Sprint(cfg.PostgresPort),
		"-U", cfg.PostgresUser,
		"-d", cfg.PostgresDB,
		"-w",
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.PostgresPassword)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := compress(&buf, stdout); err != nil {
		_ = cmd.Wait()
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return buf.Bytes(), nil
}

func compress(dst io.Writer, src io.Reader) error {
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		return err
	}
	return zw.Close()
}
