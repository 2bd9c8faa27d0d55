package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"refgate/internal/config"
	"refgate/internal/database"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	content := fmt.Sprintf(`env: local
telegram:
  group_id: -100123
  admin_id: 7
referral:
  required: 2
  max_users: 10
  leaderboard: 2
database:
  driver: sqlite
sqlite:
  path: %s
`, dbPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func seedStore(t *testing.T, dbPath string) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()

	for _, id := range []int64{1, 2, 3} {
		_, err = db.RegisterUser(ctx, id, 0)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, db.AddReferral(ctx, 2))
	}
	require.NoError(t, db.AddReferral(ctx, 3))
	require.NoError(t, db.Admit(ctx, 2, 10))
}

func TestReportCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "refgate.db")
	seedStore(t, dbPath)
	confPath := writeConfig(t, dbPath)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"report", "--conf", confPath})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "members: 1/10\n 1. 2 3\n 2. 3 1\n", out.String())
}

func TestReportCommandMissingConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "--conf", filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, cmd.Execute())
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	_, err := openDatabase(&config.Config{Database: config.Database{Driver: "postgres"}})
	assert.ErrorContains(t, err, "unknown database driver")
}
