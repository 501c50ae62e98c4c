package module

import (
	"burrito/internal/platform/config"
)

// Options controls ledger behavior
type Options struct {
	// Limit is the per-author daily grant quota, zero means the default
	Limit int64
}

// FromConfig reads LEDGER_* values from process config/env
func FromConfig(cfg config.Conf) Options {
	lc := cfg.Prefix("LEDGER_")
	return Options{
		Limit: int64(lc.MayInt("DAILY_LIMIT", 0)),
	}
}
