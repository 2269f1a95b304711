package notification

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

func TestLogNotifierListsErrorsAndLostChunks(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	summary := &model.SummaryReport{
		JobID:         "job-1",
		Chunks:        2,
		Created:       2,
		Errors:        1,
		ErrorMessages: []string{"row A3: validation failed: name is required"},
		LostChunks:    []model.ChunkFailure{{ChunkIndex: 1, Key: "job-1/orgs_batch_1.csv", Message: "unreadable"}},
	}
	require.NoError(t, NewLogNotifier().NotifyDigestCompletion(context.Background(), summary))

	out := buf.String()
	assert.Contains(t, out, "created=2")
	assert.Contains(t, out, "row A3")
	assert.Contains(t, out, "lost chunk 1")
}

func TestNewNotifierSelectsByType(t *testing.T) {
	cfg := config.NewConfig()
	n, err := NewNotifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	cfg.Digestor.Notification.Type = "none"
	n, err = NewNotifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, NoneNotifier{}, n)

	cfg.Digestor.Notification.Type = "email"
	_, err = NewNotifier(cfg)
	assert.Error(t, err)
}
