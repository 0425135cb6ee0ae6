package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"central-illustration/internal/models"
	"central-illustration/internal/status"

	"github.com/spf13/cobra"
)

func printControl(a *app, res *models.ControlResult) error {
	if res.Status == "error" {
		return fmt.Errorf("process manager: %s", res.Message)
	}
	return a.render(res, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "STATUS\tPORT\tPID")
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Status, num(res.Port), num(res.PID))
	})
}

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start, stop and inspect demo dev servers",
	}
	cmd.AddCommand(newRunControlCmd(a, "start"), newRunControlCmd(a, "stop"),
		newRunStatusCmd(a), newRunOpenCmd(a), newRunPsCmd(a))
	return cmd
}

func newRunControlCmd(a *app, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <demo-id>",
		Short: map[string]string{"start": "Start a demo's dev server", "stop": "Stop a demo's dev server"}[verb],
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			call := a.api.StartDemo
			if verb == "stop" {
				call = a.api.StopDemo
			}
			res, err := call(ctx, id)
			if err != nil {
				return err
			}
			return printControl(a, res)
		},
	}
}

func printStatus(a *app, st models.DemoStatus) error {
	return a.render(st, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "STATUS\tPORT\tURL")
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.Status, num(st.Port), str(st.URL))
	})
}

func newRunStatusCmd(a *app) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <demo-id>",
		Short: "Show whether a demo is running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !watch {
				ctx, cancel := a.context(cmd)
				defer cancel()
				st, err := a.api.DemoStatus(ctx, id)
				if err != nil {
					return err
				}
				return printStatus(a, *st)
			}

			ctx, stop := signal.NotifyContext(a.baseContext(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			p := status.New(a.api, id,
				status.WithInterval(interval),
				status.WithLogger(a.log),
				status.OnChange(func(st models.DemoStatus) {
					a.printf("%s  %s  %s\n", time.Now().Format("15:04:05"), st.Status, str(st.URL))
				}),
			)
			p.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling and print every change")
	cmd.Flags().DurationVar(&interval, "interval", status.DefaultInterval, "poll interval with --watch")
	return cmd
}

func newRunOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <demo-id>",
		Short: "Print the URL a running demo is served at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			r, err := a.api.DemoRedirect(ctx, id)
			if err != nil {
				return err
			}
			if r.URL == nil {
				return fmt.Errorf("demo %d is not running, start it with: cictl run start %d", id, id)
			}
			a.printf("%s\n", *r.URL)
			return nil
		},
	}
}

func newRunPsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "List every tracked dev server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			procs, err := a.api.Processes(ctx)
			if err != nil {
				return err
			}
			return a.render(procs, func(w *tabwriter.Writer) {
				folders := make([]string, 0, len(procs))
				for f := range procs {
					folders = append(folders, f)
				}
				sort.Strings(folders)
				fmt.Fprintln(w, "FOLDER\tSTATUS\tPORT\tPID")
				for _, f := range folders {
					st := procs[f]
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f, st.Status, num(st.Port), num(st.PID))
				}
			})
		},
	}
}

