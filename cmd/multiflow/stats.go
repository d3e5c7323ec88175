package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/bft-labs/multiflow/pkg/multiflow"
)

// printStats writes one row per device and priority.
func printStats(w io.Writer, stats []multiflow.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MINOR\tENABLED\tSESSIONS\tPRIORITY\tUSED\tRESERVED\tFREE\tWAITERS\tDEFERRED")
	for _, st := range stats {
		for _, f := range st.Flows {
			free := f.Capacity - f.Used - f.Reserved
			fmt.Fprintf(tw, "%d\t%t\t%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
				st.Minor, st.Enabled, st.Sessions, f.Priority, f.Used, f.Reserved, free, f.Waiters, st.Deferred)
		}
	}
	_ = tw.Flush()
}

// logStats logs a summary and one event per device that is not idle.
func logStats(logger zerolog.Logger, stats []multiflow.Stats) {
	var used, reserved, waiters, sessions, disabled int
	for _, st := range stats {
		idle := st.Enabled && st.Sessions == 0 && st.Deferred == 0
		sessions += st.Sessions
		if !st.Enabled {
			disabled++
		}
		for _, f := range st.Flows {
			used += f.Used
			reserved += f.Reserved
			waiters += f.Waiters
			if f.Used != 0 || f.Reserved != 0 || f.Waiters != 0 {
				idle = false
			}
		}
		if idle {
			continue
		}
		high, low := st.Flows[multiflow.High], st.Flows[multiflow.Low]
		logger.Info().
			Int("minor", st.Minor).
			Bool("enabled", st.Enabled).
			Int("sessions", st.Sessions).
			Int("high_used", high.Used).
			Int("high_waiters", high.Waiters).
			Int("low_used", low.Used).
			Int("low_reserved", low.Reserved).
			Int("low_waiters", low.Waiters).
			Int("deferred", st.Deferred).
			Msg("device stats")
	}
	logger.Info().
		Int("devices", len(stats)).
		Int("disabled", disabled).
		Int("sessions", sessions).
		Int("bytes_in_buffer", used).
		Int("bytes_reserved", reserved).
		Int("threads_in_wait", waiters).
		Msg("table stats")
}
