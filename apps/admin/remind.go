package main

import (
	"context"
	"fmt"

	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
)

// remind sends the reminders due for observations taking place in days days.
func (cli *commandLine) remind(ctx context.Context, days int) error {
	run, err := cli.dispatcher.SendDueReminders(ctx, days, nowFunc().UTC())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s: %d due, %d sent, %d not sent, %d errors\n",
		run.Date.Format(schedule.DateLayout), run.Due, run.Sent, run.NotSent, run.Errors)
	return nil
}
