package migration

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lootbox-lab/backend/internal/entity"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

//go:embed mysql/*
var mysqlFS embed.FS

// MigrationsTempDir unpacks the embedded migration files into a temporary
// directory so the binary can run migrations without shipping the files
// separately. The caller removes the directory when done.
func MigrationsTempDir() (string, error) {
	tmpDir, err := os.MkdirTemp("", "")
	if err != nil {
		return "", err
	}

	mFS, err := fs.Sub(mysqlFS, "mysql")
	if err != nil {
		return "", err
	}

	if err := fs.WalkDir(mFS, ".", func(path string, d fs.DirEntry, _ error) error {
		if d.IsDir() {
			return nil
		}

		content, err := mysqlFS.ReadFile(filepath.Join("mysql", path))
		if err != nil {
			return err
		}

		return os.WriteFile(filepath.Join(tmpDir, path), content, 0600)
	}); err != nil {
		return "", err
	}

	return tmpDir, nil
}

// Migrate applies all pending versioned migrations.
func Migrate(ctx context.Context) error {
	db, err := xcontext.DB(ctx).DB()
	if err != nil {
		return err
	}

	migrationDir, err := MigrationsTempDir()
	if err != nil {
		return err
	}
	defer os.RemoveAll(migrationDir)

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationDir, xcontext.Configs(ctx).Database.Database, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// AutoMigrate syncs the schema from the entity definitions. Tests and local
// development use this instead of the versioned migrations.
func AutoMigrate(ctx context.Context) error {
	return entity.MigrateTable(ctx)
}
