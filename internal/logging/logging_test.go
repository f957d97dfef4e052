package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForServiceAddsServiceAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)
	SetLevel(LevelTrace)
	t.Cleanup(Init)

	ForService("sheets").Info("collection ready", "name", "foods")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "sheets", entry["service"])
	assert.Equal(t, "foods", entry["name"])
	assert.Equal(t, "INFO", entry["level"])

	structured.Reset()
	Trace("fine grained")
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "TRACE", entry["level"])
}

func TestRotationLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		rc                     RotationConfig
		size, backups, ageDays int
	}{
		{"daily", RotationConfig{Rotation: RotationDaily}, 100, 30, 1},
		{"weekly", RotationConfig{Rotation: RotationWeekly}, 100, 4, 7},
		{"size", RotationConfig{Rotation: RotationSize, MaxSize: 5 * 1024 * 1024}, 5, 3, 28},
		{"sub-megabyte size keeps default", RotationConfig{Rotation: RotationSize, MaxSize: 1024}, 100, 3, 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			size, backups, age := rotationLimits(tt.rc)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.backups, backups)
			assert.Equal(t, tt.ageDays, age)
		})
	}
}

func TestNewFileLogger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "nutriapp.log")
	logger, closeFn, err := NewFileLogger(path, "api", LevelTrace, RotationConfig{Rotation: RotationDaily})
	require.NoError(t, err)

	logger.Log(t.Context(), LevelTrace, "request handled", "path", "/api/v1/today")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "TRACE", entry["level"])
	assert.Equal(t, "/api/v1/today", entry["path"])
}

func TestTee(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	la := slogJSON(&a)
	lb := slogJSON(&b)

	Tee(la, lb).With("service", "nutrition").Info("entry recorded")

	assert.Contains(t, a.String(), `"service":"nutrition"`)
	assert.Contains(t, b.String(), `"entry recorded"`)
}

func TestAddFileOutput(t *testing.T) {
	var structured, human bytes.Buffer
	SetOutput(&structured, &human)
	SetLevel(slog.LevelInfo)
	t.Cleanup(Init)

	path := filepath.Join(t.TempDir(), "logs", "nutriapp.log")
	closer, err := AddFileOutput(path, RotationConfig{Rotation: RotationDaily})
	require.NoError(t, err)

	ForService("app").Info("components ready")
	ForService("app").Debug("hidden")
	require.NoError(t, closer())

	assert.Contains(t, structured.String(), "components ready")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"app"`)
	assert.Contains(t, string(data), "components ready")
	assert.NotContains(t, string(data), "hidden")
}
