package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/config"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/availability"
	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var date, plan, tz string

	c := &cobra.Command{
		Use:   "slots",
		Short: "Print the slot timeline a plan generates for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return err
			}
			p, err := availability.ParsePlan(plan)
			if err != nil {
				return err
			}
			slots, err := availability.GenerateFromString(date, loc, p)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tLABEL\tSTART\tEND")
			for i, s := range slots {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, s.Label,
					s.Interval.Start.Format(time.RFC3339), s.Interval.End.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	c.Flags().StringVar(&date, "date", "", "calendar date (YYYY-MM-DD)")
	c.Flags().StringVar(&plan, "plan", config.String("CUSTOMER_SLOT_PLAN", "06:00/30x48"), "slot plan, HH:MM/<minutes>x<count>[,...]")
	c.Flags().StringVar(&tz, "tz", config.String("BOOKING_TIMEZONE", "UTC"), "IANA time zone")
	_ = c.MarkFlagRequired("date")
	return c
}
