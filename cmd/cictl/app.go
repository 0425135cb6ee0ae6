package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"central-illustration/internal/client"
	"central-illustration/internal/config"
	"central-illustration/internal/logger"
	"central-illustration/internal/session"

	"github.com/spf13/cobra"
)

var errCanceled = errors.New("canceled")

// app is the state shared by every command of one invocation.
type app struct {
	apiURL      string
	origin      string
	sessionFile string
	output      string
	yes         bool
	verbose     bool
	timeout     time.Duration

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	log  *logger.Logger
	sess *session.Session
	api  *client.Client
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	cfg := config.LoadClient()
	a := &app{in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "cictl",
		Short:         "Manage Central Illustration demonstrations",
		Long:          "cictl talks to the Central Illustration API: demos, comments, running previews, templates and page content.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.apiURL, "api-url", cfg.APIURL, "API base URL (or set CI_API_URL)")
	pf.StringVar(&a.origin, "origin", cfg.Origin, "origin the API is derived from when no URL is set (or set CI_ORIGIN)")
	pf.StringVar(&a.sessionFile, "session", cfg.SessionFile, "session file (or set CI_SESSION_FILE)")
	pf.StringVarP(&a.output, "output", "o", "table", "output format: table, json or yaml")
	pf.BoolVarP(&a.yes, "yes", "y", false, "answer yes to confirmations")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&a.timeout, "timeout", 60*time.Second, "per command timeout")

	root.AddCommand(
		newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a),
		newDemosCmd(a),
		newCommentsCmd(a),
		newRunCmd(a),
		newExtensionsCmd(a),
		newPagesCmd(a), newContentCmd(a), newPublishCmd(a),
		newLayoutCmd(a), newUploadCmd(a),
		newExportCmd(a),
		newEditCmd(a),
	)
	return root
}

func (a *app) setup(cfg *config.ClientConfig) error {
	switch a.output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	if a.verbose {
		l, err := logger.New(cfg.LogMode)
		if err != nil {
			return err
		}
		a.log = l
	} else {
		a.log = logger.Nop()
	}

	path := a.sessionFile
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}
	sess, err := session.Open(path)
	if err != nil {
		return err
	}
	a.sess = sess

	opts := []client.Option{client.WithTokenSource(sess)}
	if a.apiURL != "" {
		opts = append(opts, client.WithBaseURL(a.apiURL))
	}
	a.api = client.New(opts...)
	a.log.Debug("cictl ready", "session", path, "api", a.api.BaseURL(a.baseContext(context.Background())))
	return nil
}

func (a *app) baseContext(ctx context.Context) context.Context {
	if a.origin != "" {
		ctx = client.WithOrigin(ctx, a.origin)
	}
	return ctx
}

// context bounds one command by --timeout.
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(a.baseContext(ctx), a.timeout)
}

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Confirm asks on the terminal unless --yes was given. No answer is a no.
func (a *app) Confirm(prompt string) bool {
	if a.yes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	answer, err := a.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) Alert(message string) {
	fmt.Fprintln(a.errOut, "!", message)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid demo id %q", s)
	}
	return id, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page index %q", s)
	}
	return n, nil
}
