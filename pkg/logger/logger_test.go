package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestInit_LevelAndFormat(t *testing.T) {
	Init(Config{Level: "debug", Format: "json"})
	require.NotNil(t, Logger)
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	_, ok := Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	Init(Config{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
	_, ok = Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestInit_FileOutputUsesLumberjack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fundsub.log")
	Init(Config{Level: "info", Format: "text", Output: "file", Filename: path, MaxSize: 1})

	w, ok := Logger.Out.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, path, w.Filename)

	WithComponent("test").Info("hello")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "component=test")
}

func TestSetLevel(t *testing.T) {
	Init(Config{Level: "info"})
	SetLevel("WARN")
	assert.Equal(t, logrus.WarnLevel, GetLogger().GetLevel())
	SetLevel("bogus")
	assert.Equal(t, logrus.InfoLevel, GetLogger().GetLevel())
}
