package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/bookingwidget/internal/domain/calendar"
	"github.com/example/bookingwidget/internal/domain/timezone"
)

func newSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size <width>",
		Short: "Show the calendar view and height chosen for a viewport width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("width: %w", err)
			}
			size := calendar.Decide(width)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %dpx\n", size.Mode, size.Mode.FullCalendarName(), size.HeightPixels)
			return nil
		},
	}
}

func newTzdiffCmd() *cobra.Command {
	var hostName string
	c := &cobra.Command{
		Use:   "tzdiff <viewer-hours> <host-hours>",
		Short: "Show the timezone helper text for two UTC offsets in hours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("viewer offset: %w", err)
			}
			host, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("host offset: %w", err)
			}
			d := timezone.Compute(viewer, host)
			d.HostName = hostName
			fmt.Fprintln(cmd.OutOrStdout(), d.Describe())
			return nil
		},
	}
	c.Flags().StringVar(&hostName, "host-name", "the host", "name shown for the host")
	return c
}
