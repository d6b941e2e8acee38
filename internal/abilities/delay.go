package abilities

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/worker"
)

// delayConfig — вход ability delay.
type delayConfig struct {
	// DurationSec — длительность задержки в секундах (default: 1).
	DurationSec float64 `json:"duration_sec"`
}

type delayResult struct {
	DelayedSec float64 `json:"delayed_sec"`
}

// Delay возвращает ability, которая ждёт указанное время.
//
// Ожидание делится на шаги примерно по секунде; после каждого шага
// reporter получает work status i/n. Поддерживает отмену через context.
func Delay(reporter Reporter) worker.JobFunc {
	return func(ctx context.Context, job *worker.Job) ([]byte, error) {
		var cfg delayConfig
		if len(job.Data) > 0 {
			if err := json.Unmarshal(job.Data, &cfg); err != nil {
				return nil, fmt.Errorf("%w: delay: %v", ErrInvalidInput, err)
			}
		}

		durationSec := cfg.DurationSec
		if durationSec <= 0 {
			durationSec = 1
		}

		steps := int(math.Ceil(durationSec))
		step := time.Duration(durationSec * float64(time.Second) / float64(steps))

		logger := telemetry.FromContext(ctx)
		logger.Debug("delay started", "duration_sec", durationSec, "steps", steps)

		ticker := time.NewTicker(step)
		defer ticker.Stop()

		// Context-aware ожидание
		for i := 1; i <= steps; i++ {
			select {
			case <-ticker.C:
				if reporter != nil {
					reporter.SendJobStatus(job, i, steps)
				}
			case <-ctx.Done():
				logger.Debug("delay interrupted", "step", i, "steps", steps)
				return nil, ctx.Err()
			}
		}

		return json.Marshal(delayResult{DelayedSec: durationSec})
	}
}
