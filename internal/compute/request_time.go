package compute

import (
	"time"

	"github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"
)

// RegisterBuiltinRequestTimeFuncs binds the temporal features every scoring
// service shares. They are pure functions of the request clock.
func RegisterBuiltinRequestTimeFuncs(e IEngine) {
	e.RegisterRequestTimeFunc("hour_of_day", func(now time.Time, _ string) entity.Value {
		return entity.IntValue(int64(now.Hour()))
	})
	e.RegisterRequestTimeFunc("day_of_week", func(now time.Time, _ string) entity.Value {
		return entity.IntValue(int64(now.Weekday()))
	})
	e.RegisterRequestTimeFunc("is_weekend", func(now time.Time, _ string) entity.Value {
		wd := now.Weekday()
		return entity.BoolValue(wd == time.Saturday || wd == time.Sunday)
	})
	e.RegisterRequestTimeFunc("is_peak_hour", func(now time.Time, _ string) entity.Value {
		h := now.Hour()
		// Morning and evening commute windows.
		return entity.BoolValue((h >= 7 && h <= 9) || (h >= 16 && h <= 19))
	})
}
