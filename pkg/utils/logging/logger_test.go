package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)
	gt.V(t, logger).NotNil()

	logger.Info("test message")
	gt.S(t, buf.String()).Contains("test message")
}

func TestLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectInfo  bool
		expectWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warning", false, false, true},
		{"ERROR", false, false, false},
		{"invalid", false, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")

			output := buf.String()
			gt.Equal(t, strings.Contains(output, "debug message"), tc.expectDebug)
			gt.Equal(t, strings.Contains(output, "info message"), tc.expectInfo)
			gt.Equal(t, strings.Contains(output, "warn message"), tc.expectWarn)
			gt.S(t, output).Contains("error message")
		})
	}
}

func TestParseLevel(t *testing.T) {
	_, err := logging.ParseLevel("warn")
	gt.NoError(t, err)
	_, err = logging.ParseLevel("verbose")
	gt.Error(t, err)
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.NewWithFormat(logging.FormatJSON, "info", buf)
	gt.NoError(t, err)

	logger.Info("json message", "count", 3)

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Equal(t, record["msg"], any("json message"))
	gt.Equal(t, record["count"], any(float64(3)))
}

func TestInvalidFormat(t *testing.T) {
	logger, err := logging.NewWithFormat("xml", "info", &bytes.Buffer{})
	gt.Error(t, err)
	gt.V(t, logger).NotNil()
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)
	ctx := logging.With(context.Background(), logger)

	gt.Equal(t, logging.From(ctx), logger)
	gt.Equal(t, logging.From(context.Background()), logging.Default())
}

func TestWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.NewWithFormat(logging.FormatJSON, "info", buf)
	gt.NoError(t, err)

	ctx := logging.With(context.Background(), logger)
	ctx = logging.WithRun(ctx, "run-1", model.AgentAnomaly, model.RunModeCron)
	logging.From(ctx).Info("batch fetched")

	output := buf.String()
	gt.S(t, output).Contains(`"run_id":"run-1"`)
	gt.S(t, output).Contains(`"agent_type":"anomaly"`)
	gt.S(t, output).Contains(`"mode":"cron"`)
}

func TestSetDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	newLogger := logging.New("debug", buf)
	logging.SetDefault(newLogger)

	logging.From(context.Background()).Info("default message")
	gt.S(t, buf.String()).Contains("default message")
}
