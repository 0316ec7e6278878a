package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjmcleod/finch/internal/common"
)

type memKV struct {
	values map[string]string
}

func (m *memKV) GetSystemKV(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", assert.AnError
	}
	return v, nil
}

func (m *memKV) SetSystemKV(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) GetUserKV(_ context.Context, userID, key string) (string, error) {
	return m.GetSystemKV(nil, userID+"/"+key)
}

func (m *memKV) SetUserKV(_ context.Context, userID, key, value string) error {
	return m.SetSystemKV(nil, userID+"/"+key, value)
}

func (m *memKV) Close() error { return nil }

func TestStampStartupStateFirstRun(t *testing.T) {
	kv := &memKV{values: map[string]string{}}
	started := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	require.NoError(t, stampStartupState(kv, common.NewSilentLogger(), started))

	assert.Equal(t, SchemaVersion, kv.values[SchemaVersionKey])
	assert.Equal(t, "2026-08-30T09:00:00Z", kv.values[LastStartupKey])
}

func TestStampStartupStateKeepsStoredVersion(t *testing.T) {
	kv := &memKV{values: map[string]string{SchemaVersionKey: "0"}}

	require.NoError(t, stampStartupState(kv, common.NewSilentLogger(), time.Now()))

	assert.Equal(t, "0", kv.values[SchemaVersionKey], "mismatch is reported, not overwritten")
	assert.NotEmpty(t, kv.values[LastStartupKey])
}
