package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// BeforePoll решает перед каждым poll, продолжать ли цикл Work.
type BeforePoll func() bool

// AfterPoll решает после каждого poll, продолжать ли цикл Work.
// activity — была ли активность на соединениях.
type AfterPoll func(activity bool) bool

// cronParser — парсер cron-выражений (5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// UntilDone продолжает цикл, пока ctx не отменён.
func UntilDone(ctx context.Context) BeforePoll {
	return func() bool {
		return ctx.Err() == nil
	}
}

// MaxIterations останавливает цикл после n poll. n <= 0 — без ограничения.
func MaxIterations(n int) AfterPoll {
	count := 0
	return func(bool) bool {
		if n <= 0 {
			return true
		}
		count++
		return count < n
	}
}

// StopWhenIdle останавливает цикл после n poll подряд без активности.
// n <= 0 — без ограничения.
func StopWhenIdle(n int) AfterPoll {
	idle := 0
	return func(activity bool) bool {
		if n <= 0 {
			return true
		}
		if activity {
			idle = 0
			return true
		}
		idle++
		return idle < n
	}
}

// StopAtCron останавливает цикл в ближайший момент по cron-выражению,
// считая от момента создания policy.
//
// timezone — IANA-имя; невалидное или пустое значение — UTC.
// now может быть nil — тогда используется time.Now.
func StopAtCron(expr, timezone string, now func() time.Time) (BeforePoll, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}

	if now == nil {
		now = time.Now
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	deadline := schedule.Next(now().In(loc))

	return func() bool {
		return now().Before(deadline)
	}, nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// AllBefore объединяет policies: цикл продолжается, пока все возвращают true.
// nil-элементы пропускаются.
func AllBefore(policies ...BeforePoll) BeforePoll {
	return func() bool {
		for _, p := range policies {
			if p != nil && !p() {
				return false
			}
		}
		return true
	}
}

// AllAfter объединяет policies: цикл продолжается, пока все возвращают true.
//
// Вызываются все policies, даже если одна уже вернула false:
// счётчики MaxIterations и StopWhenIdle должны видеть каждый poll.
func AllAfter(policies ...AfterPoll) AfterPoll {
	return func(activity bool) bool {
		keep := true
		for _, p := range policies {
			if p != nil && !p(activity) {
				keep = false
			}
		}
		return keep
	}
}
