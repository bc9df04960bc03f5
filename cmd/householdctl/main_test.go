package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/db"
	"liyu1981.xyz/household-energy-service/pkg/household"
	householdHttp "liyu1981.xyz/household-energy-service/pkg/http"
)

func startTestServer(t *testing.T) string {
	common.SetTestLoggerNop()

	store, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)

	rs := &householdHttp.RestfulServer{
		Server: gin.New(),
		Core:   household.NewCore(store, nil),
	}
	rs.Setup()

	server := httptest.NewServer(rs.Server)
	t.Cleanup(func() {
		server.Close()
		_ = store.Close()
	})
	return server.URL
}

func run(t *testing.T, serverURL string, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", serverURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsExist(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range newRootCmd().Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, name := range []string{"register", "delete", "list", "find", "activate", "active", "readings", "export"} {
		assert.True(t, names[name], "missing command %s", name)
	}
}

func TestRegisterActivateDelete(t *testing.T) {
	serverURL := startTestServer(t)

	out, err := run(t, serverURL, "register", "smith", "--persons", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "registered smith with id 1")

	_, err = run(t, serverURL, "register", "SMITH")
	assert.Error(t, err)

	_, err = run(t, serverURL, "register", "jones")
	require.NoError(t, err)

	out, err = run(t, serverURL, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "SMITH")
	assert.Contains(t, lines[2], "JONES")

	out, err = run(t, serverURL, "find", "Smith")
	require.NoError(t, err)
	assert.Contains(t, out, "persons: 3")

	_, err = run(t, serverURL, "find", "nobody")
	assert.Error(t, err)

	out, err = run(t, serverURL, "active")
	require.NoError(t, err)
	assert.Contains(t, out, "no active household")

	out, err = run(t, serverURL, "activate", "smith")
	require.NoError(t, err)
	assert.Contains(t, out, "SMITH (1)")

	out, err = run(t, serverURL, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted household 1")

	out, err = run(t, serverURL, "active")
	require.NoError(t, err)
	assert.Contains(t, out, "no active household")

	_, err = run(t, serverURL, "delete", "abc")
	assert.Error(t, err)
}

func TestReadingsAndExport(t *testing.T) {
	serverURL := startTestServer(t)

	_, err := run(t, serverURL, "register", "smith")
	require.NoError(t, err)

	out, err := run(t, serverURL, "readings", "smith")
	require.NoError(t, err)
	assert.Equal(t, 1, len(strings.Split(strings.TrimSpace(out), "\n")))

	_, err = run(t, serverURL, "readings", "smith", "--from", "last week")
	assert.Error(t, err)

	target := filepath.Join(t.TempDir(), "smith.xlsx")
	out, err = run(t, serverURL, "export", "smith", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
