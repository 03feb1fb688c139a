package database

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

func TestConnectRequiresURLs(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)

	_, err = ConnectRedis("", zerolog.Nop())
	require.Error(t, err)

	_, err = ConnectNATS("", "test", zerolog.Nop())
	require.Error(t, err)
}

func TestConnectRedisPings(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis("redis://"+server.Addr(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("not a url", zerolog.Nop())
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "student_profiles", "staff_profiles", "teacher_batches", "batches", "standards", "fee_payments", "activity_logs"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
	require.True(t, db.Migrator().HasIndex(&models.User{}, "idx_users_email_live"))
}

func TestMigrateDropsLegacyEmailIndex(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX idx_users_email ON users (email)").Error)

	require.NoError(t, Migrate(db))
	require.False(t, db.Migrator().HasIndex(&models.User{}, legacyEmailIndex))
	require.True(t, db.Migrator().HasIndex(&models.User{}, "idx_users_email_live"))
}
