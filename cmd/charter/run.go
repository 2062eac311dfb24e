package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/modules"
	"github.com/firstpersontravel/charter-sub005/service"
	"github.com/firstpersontravel/charter-sub005/store"

	"github.com/spf13/cobra"
)

var (
	tripFile  string
	eventFile string
	startAt   string
)

var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Play events against a trip in memory and print what happens",
	Long: `run reads events, one JSON object per line, from --events (or stdin).
A line is either an event or {"event": ..., "role": ..., "at": ...}.
"at" advances the clock, firing any scheduled actions due by then.
Every published result is printed as a JSON line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if eventFile != "" {
			f, err := os.Open(eventFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return play(cmd.Context(), args[0], tripFile, startAt, in, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringVar(&tripFile, "trip", "", "trip JSON (default: one player per role)")
	runCmd.Flags().StringVar(&eventFile, "events", "", "events, one JSON object per line")
	runCmd.Flags().StringVar(&startAt, "at", "", "start time (RFC3339, default now)")
}

// step is one line of input.
type step struct {
	Event core.Params `json:"event"`
	Role  string      `json:"role,omitempty"`
	At    time.Time   `json:"at,omitempty"`
}

func parseStep(line []byte) (*step, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, err
	}
	_, hasEvent := m["event"]
	_, hasAt := m["at"]
	if !hasEvent && !hasAt {
		return &step{Event: core.Params(m)}, nil
	}
	var s step
	if err := json.Unmarshal(line, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// defaultTrip has a player for every role.
func defaultTrip(c *core.ScriptContent) *core.Trip {
	trip := &core.Trip{ID: "trip"}
	for _, r := range c.Roles {
		trip.Players = append(trip.Players, &core.Player{ID: r.Name, RoleName: r.Name})
	}
	if 0 < len(c.Scenes) {
		trip.CurrentSceneName = c.Scenes[0].Name
	}
	return trip
}

func play(ctx context.Context, scriptFile, tripFile, startAt string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	registry, err := modules.Registry()
	if err != nil {
		return err
	}
	c, err := ReadScript(scriptFile)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if startAt != "" {
		if now, err = time.Parse(time.RFC3339, startAt); err != nil {
			return err
		}
	}

	svc := service.New(store.NewMemory(), registry)
	if logger != nil {
		svc.Logger = logger
	}
	svc.Clock = func() time.Time { return now }
	if conf != nil {
		svc.Env = &core.Env{Host: conf.Host}
		svc.Timezone = conf.Timezone
	}
	name := ScriptName(scriptFile)
	if err = svc.AddScript(name, c); err != nil {
		return err
	}

	trip := defaultTrip(c)
	if tripFile != "" {
		bs, err := os.ReadFile(tripFile)
		if err != nil {
			return err
		}
		trip = &core.Trip{}
		if err = json.Unmarshal(bs, trip); err != nil {
			return err
		}
	}
	trip.ScriptName = name
	if err = svc.Store.PutTrip(ctx, trip); err != nil {
		return err
	}

	published, cancel := svc.Subscribe(1024)
	defer cancel()
	enc := json.NewEncoder(out)
	drain := func() error {
		for {
			select {
			case p := <-published:
				if err := enc.Encode(p); err != nil {
					return err
				}
			default:
				return nil
			}
		}
	}

	scanner := bufio.NewScanner(in)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s, err := parseStep(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if !s.At.IsZero() && s.At.After(now) {
			now = s.At
			if _, err = svc.FireDue(ctx, now); err != nil {
				return err
			}
		}
		if s.Event.Type() != "" {
			if _, err = svc.Dispatch(ctx, trip.ID, s.Event, s.Role); err != nil {
				return fmt.Errorf("line %d: %w", n, err)
			}
		}
		if err = drain(); err != nil {
			return err
		}
	}
	return scanner.Err()
}
