package bootstrap

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/kivabase/kivabase-backend/internal/keyring"
)

// StartTokenSweeper evicts expired admin sessions on a schedule so the
// registry does not accumulate dead tokens. The caller stops the
// returned cron on shutdown.
func StartTokenSweeper(reg *keyring.Registry) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		if n := reg.SweepExpired(); n > 0 {
			log.Printf("[keyring] swept %d expired admin tokens", n)
		}
	})
	if err != nil {
		log.Printf("[keyring] sweeper schedule: %v", err)
		return c
	}
	c.Start()
	return c
}
