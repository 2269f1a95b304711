// Package notification delivers digest summaries to humans.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// maxLoggedErrors bounds the row errors repeated in the notification.
const maxLoggedErrors = 10

// LogNotifier writes the summary to the log. Lost chunks or row errors raise the level to WARN.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyDigestCompletion(ctx context.Context, summary *model.SummaryReport) error {
	if summary == nil {
		return fmt.Errorf("no summary to notify")
	}
	message := fmt.Sprintf("Digest notification: %s", summary)

	if summary.Complete() && summary.Errors == 0 {
		logger.Infof("%s", message)
		return nil
	}

	var b strings.Builder
	b.WriteString(message)
	for i, msg := range summary.ErrorMessages {
		if i == maxLoggedErrors {
			fmt.Fprintf(&b, "\n  ... %d more", len(summary.ErrorMessages)-maxLoggedErrors)
			break
		}
		fmt.Fprintf(&b, "\n  %s", msg)
	}
	for _, lost := range summary.LostChunks {
		fmt.Fprintf(&b, "\n  lost chunk %d (%s): %s", lost.ChunkIndex, lost.Key, lost.Message)
	}
	logger.Warnf("%s", b.String())
	return nil
}

// NoneNotifier drops every summary.
type NoneNotifier struct{}

func (NoneNotifier) NotifyDigestCompletion(ctx context.Context, summary *model.SummaryReport) error {
	return nil
}

var (
	_ ports.Notifier = (*LogNotifier)(nil)
	_ ports.Notifier = NoneNotifier{}
)
