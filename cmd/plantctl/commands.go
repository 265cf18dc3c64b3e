package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/kroma-labs/solarops/plants"
	"github.com/kroma-labs/solarops/service"
	"github.com/kroma-labs/solarops/workorders"
)

var errUsage = errors.New("invalid usage, see plantctl --help")

// commandFlags are the per-command flags. They share one flag set with the
// configuration flags.
type commandFlags struct {
	date        string
	plant       string
	severity    string
	active      bool
	status      string
	priority    string
	title       string
	description string
	due         string
	completed   bool
	interval    time.Duration
	count       int
}

func (c *commandFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.date, "date", "", "day to query as YYYY-MM-DD (default today)")
	fs.StringVar(&c.plant, "plant", "", "plant id filter or target")
	fs.StringVar(&c.severity, "severity", "", "alert severity filter")
	fs.BoolVar(&c.active, "active", false, "only unacknowledged alerts")
	fs.StringVar(&c.status, "status", "", "work order status")
	fs.StringVar(&c.priority, "priority", "", "work order priority")
	fs.StringVar(&c.title, "title", "", "work order title")
	fs.StringVar(&c.description, "description", "", "work order description")
	fs.StringVar(&c.due, "due", "", "work order due date as YYYY-MM-DD")
	fs.BoolVar(&c.completed, "completed", false, "mark the work order completed today")
	fs.DurationVar(&c.interval, "interval", 30*time.Second, "watch: time between reads")
	fs.IntVar(&c.count, "count", 0, "watch: number of reads, 0 until interrupted")
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string, cf commandFlags, out io.Writer) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"plants": {
			usage: "plants",
			run: func(ctx context.Context, a *app, _ []string, _ commandFlags, out io.Writer) error {
				return printResult(a, out, a.plants.ListPlants(ctx))
			},
		},
		"plant": {
			usage: "plant <id>",
			run: func(ctx context.Context, a *app, args []string, _ commandFlags, out io.Writer) error {
				id, err := oneArg(args)
				if err != nil {
					return err
				}
				return printResult(a, out, a.plants.GetPlant(ctx, id))
			},
		},
		"weather": {
			usage: "weather <plant-id> [--date]",
			run: func(ctx context.Context, a *app, args []string, cf commandFlags, out io.Writer) error {
				id, err := oneArg(args)
				if err != nil {
					return err
				}
				day, err := parseDay(cf.date)
				if err != nil {
					return err
				}
				return printResult(a, out, a.plants.GetWeather(ctx, id, day))
			},
		},
		"kpis": {
			usage: "kpis <plant-id> [--date]",
			run: func(ctx context.Context, a *app, args []string, cf commandFlags, out io.Writer) error {
				id, err := oneArg(args)
				if err != nil {
					return err
				}
				day, err := parseDay(cf.date)
				if err != nil {
					return err
				}
				return printResult(a, out, a.plants.GetKPIs(ctx, id, day))
			},
		},
		"alerts": {
			usage: "alerts [--plant] [--severity] [--active]",
			run: func(ctx context.Context, a *app, _ []string, cf commandFlags, out io.Writer) error {
				return printResult(a, out, a.plants.ListAlerts(ctx, plants.AlertFilter{
					PlantID:    cf.plant,
					Severity:   cf.severity,
					ActiveOnly: cf.active,
				}))
			},
		},
		"trackers": {
			usage: "trackers <plant-id>",
			run: func(ctx context.Context, a *app, args []string, _ commandFlags, out io.Writer) error {
				id, err := oneArg(args)
				if err != nil {
					return err
				}
				return printResult(a, out, a.plants.ListTrackers(ctx, id))
			},
		},
		"workorders": {
			usage: "workorders list|get|create|update|delete ...",
			run:   runWorkOrders,
		},
		"status": {
			usage: "status",
			run: func(_ context.Context, a *app, _ []string, _ commandFlags, out io.Writer) error {
				return printJSON(out, a.status())
			},
		},
		"watch": {
			usage: "watch <read command> [args] [--interval] [--count]",
			run:   runWatch,
		},
	}
}

func commandHelp() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	return b.String()
}

func (a *app) dispatch(ctx context.Context, args []string, cf commandFlags, out io.Writer) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
	return cmd.run(ctx, a, args[1:], cf, out)
}

func runWorkOrders(ctx context.Context, a *app, args []string, cf commandFlags, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		return printResult(a, out, a.workorders.List(ctx, workorders.Filter{
			PlantID:  cf.plant,
			Status:   cf.status,
			Priority: cf.priority,
		}))

	case "get":
		id, err := oneArg(rest)
		if err != nil {
			return err
		}
		return printResult(a, out, a.workorders.Get(ctx, id))

	case "create":
		if cf.plant == "" || cf.title == "" {
			return fmt.Errorf("create needs --plant and --title: %w", errUsage)
		}
		wo := workorders.NewWorkOrder{
			PlantID:     cf.plant,
			Title:       cf.title,
			Description: cf.description,
			Priority:    cf.priority,
		}
		if wo.Priority == "" {
			wo.Priority = workorders.PriorityMedium
		}
		if cf.due != "" {
			due, err := parseDay(cf.due)
			if err != nil {
				return err
			}
			wo.DueDate = &due
		}
		created, err := a.workorders.Create(ctx, wo)
		if err != nil {
			return err
		}
		return printJSON(out, created)

	case "update":
		id, err := oneArg(rest)
		if err != nil {
			return err
		}
		updated, err := a.workorders.Update(ctx, id, buildUpdate(cf))
		if err != nil {
			return err
		}
		return printJSON(out, updated)

	case "delete":
		id, err := oneArg(rest)
		if err != nil {
			return err
		}
		return a.workorders.Delete(ctx, id)
	}

	return fmt.Errorf("unknown workorders command %q: %w", sub, errUsage)
}

func buildUpdate(cf commandFlags) workorders.Update {
	var u workorders.Update
	if cf.title != "" {
		u.Title = &cf.title
	}
	if cf.description != "" {
		u.Description = &cf.description
	}
	if cf.priority != "" {
		u.Priority = &cf.priority
	}
	if cf.status != "" {
		u.Status = &cf.status
	}
	if cf.due != "" {
		if due, err := parseDay(cf.due); err == nil {
			u.DueDate = &due
		}
	}
	if cf.completed {
		now := time.Now()
		status := workorders.StatusCompleted
		u.Status = &status
		u.CompletionDate = &now
	}
	return u
}

// runWatch repeats a read command, which makes the cache, backoff and
// breaker behavior visible over time.
func runWatch(ctx context.Context, a *app, args []string, cf commandFlags, out io.Writer) error {
	if len(args) == 0 || args[0] == "watch" {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	ticker := time.NewTicker(cf.interval)
	defer ticker.Stop()

	for i := 1; ; i++ {
		if err := cmd.run(ctx, a, args[1:], cf, out); err != nil {
			a.logger.Warn().Err(err).Int("iteration", i).Msg("watched read failed")
		}
		if cf.count > 0 && i >= cf.count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// statusReport is the diagnostic view printed by the status command.
type statusReport struct {
	Breakers map[string]breakerReport                     `json:"breakers"`
	Backoff  map[string]map[string]service.EndpointStatus `json:"backoff"`
}

type breakerReport struct {
	State       string    `json:"state"`
	Failures    uint32    `json:"failures"`
	LastFailure time.Time `json:"lastFailure"`
}

func (a *app) status() statusReport {
	r := statusReport{
		Breakers: map[string]breakerReport{},
		Backoff: map[string]map[string]service.EndpointStatus{
			"plants":     a.plants.Base().FailureStatus(),
			"workorders": a.workorders.Base().FailureStatus(),
		},
	}
	for endpoint, s := range a.client.BreakerStatus() {
		r.Breakers[endpoint] = breakerReport{
			State:       s.State.String(),
			Failures:    s.Failures,
			LastFailure: s.LastFailure,
		}
	}
	return r
}

// printResult prints the data of a read. Synthetic data is printed with a
// warning; a failure without fallback is returned.
func printResult[T any](a *app, out io.Writer, res service.Result[T]) error {
	if res.Err != nil && !res.Fallback {
		return res.Err
	}
	if res.Fallback {
		a.logger.Warn().Err(res.Err).Msg("backend unavailable, printing synthetic data")
	}
	return printJSON(out, res.Data)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneArg(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", errUsage
	}
	return args[0], nil
}

// parseDay parses YYYY-MM-DD, defaulting to today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
