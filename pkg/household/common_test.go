package household

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/household-energy-service/pkg/db"
	"liyu1981.xyz/household-energy-service/pkg/household/mocks"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

func GetMockCoreWithMemorySqliteDialector(t *testing.T, useMockRegistry, useMockTracker bool) (
	*gomock.Controller,
	*Core,
	*mocks.MockIRegistry,
	*mocks.MockITracker,
) {
	ctrl := gomock.NewController(t)

	mockIRegistry := mocks.NewMockIRegistry(ctrl)
	mockITracker := mocks.NewMockITracker(ctrl)

	store, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	core := NewCore(store, nil)

	opts := ServiceOpts{}
	if useMockRegistry {
		opts.Registry = mockIRegistry
	}
	if useMockTracker {
		opts.Tracker = mockITracker
	}
	core.WithServices(opts)

	return ctrl, core, mockIRegistry, mockITracker
}

func seedReadings(t *testing.T, core *Core, readings ...models.SensorReading) {
	for _, r := range readings {
		require.NoError(t, core.Db.Conn.Create(&r).Error)
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 15, hour, minute, 0, 0, time.UTC)
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
