package db

import (
	"strings"
	"testing"

	"github.com/errsight/errsight/internal/config"
	"github.com/errsight/errsight/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DB
		want string
	}{
		{
			name: "no password",
			cfg:  config.DB{Host: "127.0.0.1", Port: 3306, User: "root", Database: "errsight"},
			want: "root@tcp(127.0.0.1:3306)/errsight?parseTime=true&charset=utf8mb4",
		},
		{
			name: "with password",
			cfg:  config.DB{Host: "db.internal", Port: 3307, User: "errsight", Password: "s3cret", Database: "errsight_prod"},
			want: "errsight:s3cret@tcp(db.internal:3307)/errsight_prod?parseTime=true&charset=utf8mb4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	dsn := DSN(config.DB{Host: "localhost", Port: 3306, User: "root", Database: "test"})
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestAutoMigrate(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range []interface{}{&models.Project{}, &models.ErrorLog{}} {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}
