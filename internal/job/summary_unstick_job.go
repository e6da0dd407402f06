package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type stuckReleaser interface {
	ReleaseStuck(ctx context.Context) (int64, error)
}

// SummaryUnstickJob sweeps busy flags left behind by crashed summarization
// attempts. The request path already recovers stale flags on the next call
// for the same note; this job covers notes nobody retries.
type SummaryUnstickJob struct {
	summaries stuckReleaser
}

func NewSummaryUnstickJob(summaries stuckReleaser) *SummaryUnstickJob {
	return &SummaryUnstickJob{summaries: summaries}
}

func (j *SummaryUnstickJob) Name() string {
	return "summary_unstick"
}

func (j *SummaryUnstickJob) Run(ctx context.Context) error {
	if j.summaries == nil {
		return nil
	}
	released, err := j.summaries.ReleaseStuck(ctx)
	if err != nil {
		return err
	}
	if released > 0 {
		logutil.GetLogger(ctx).Info("released stuck summaries", zap.Int64("count", released))
	}
	return nil
}
