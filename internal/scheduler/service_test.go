package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/config"
)

type nopRunner struct{}

func (nopRunner) Run() error              { return nil }
func (nopRunner) RunNegativeSweep() error { return nil }

func TestService_StartAndStop(t *testing.T) {
	for _, schedule := range []string{"daily", "weekly"} {
		t.Run(schedule, func(t *testing.T) {
			svc := NewService(&config.Config{ReportSchedule: schedule, TimeZone: "UTC"}, nopRunner{})
			require.NoError(t, svc.Start())
			svc.Stop()
		})
	}
}

func TestService_UnknownTimeZoneFallsBack(t *testing.T) {
	svc := NewService(&config.Config{ReportSchedule: "daily", TimeZone: "Mars/Olympus"}, nopRunner{})
	assert.NotNil(t, svc)
	require.NoError(t, svc.Start())
	svc.Stop()
}
