package workers

import (
	"collab-lab/domain"
	"collab-lab/mocks"
	"collab-lab/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHeartbeatWorker_Publishes_Sessions_And_Process_Stats(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Given two live sessions
	registry.EXPECT().Sessions().Return([]domain.Session{{ID: "s1"}, {ID: "s2"}}).AnyTimes()
	worker := NewHeartbeatWorker(logs.GetLoggerFromLevel(slog.LevelDebug), registry, metrics, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// Then the gauges are filled on the next ticks
	req.Eventually(func() bool {
		return testutil.ToFloat64(metrics.ActiveSessions) == 2 &&
			testutil.ToFloat64(metrics.ProcessRSS) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}
