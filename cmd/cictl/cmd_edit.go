package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"central-illustration/internal/editor"
	"central-illustration/internal/layout"
	"central-illustration/internal/models"
	"central-illustration/internal/preview"

	"github.com/spf13/cobra"
)

const editHelp = `Commands:
  pages                      list pages
  page <n>                   select the n-th page (as listed)
  type <title|points|detail> select the markdown slot
  show                       print the buffer
  edit                       replace the buffer, end input with a line "."
  save                       save the buffer
  add [0|1]                  add a page from base style 0 or 1
  delete                     delete the selected page
  publish [all]              publish the selected page, or every page
  start | stop | status      control the demo's dev server
  quit
Canvas (with --layout):
  items                      list canvas items
  text | svg                 add a text or svg item
  image <file>               upload and add an image
  move <id> <dx> <dy>        drag an item
  resize <id> <w> <h>        resize an item
  settext <id> <text>        change a text item
  remove <id>                remove an item
  savelayout                 save the canvas`

// editSession is one interactive edit run.
type editSession struct {
	a      *app
	ed     *editor.Editor
	demoID int64
	canvas *layout.Canvas
}

func newEditCmd(a *app) *cobra.Command {
	var visual, noPreview bool
	cmd := &cobra.Command{
		Use:   "edit <demo-id>",
		Short: "Interactive content editor for one demonstration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(a.baseContext(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var poster preview.Poster = preview.Discard{}
			var conn *preview.Conn
			if !noPreview {
				conn, err = a.dialPreview(ctx, id)
				if err != nil {
					a.log.Warn("preview relay unavailable", "error", err)
				} else {
					defer conn.Close()
					poster = conn
				}
			}

			ed := editor.New(a.api, id, editor.Options{VisualLayout: visual, Poster: poster, UI: a, Log: a.log})
			openCtx, cancel := context.WithTimeout(ctx, a.timeout)
			err = ed.Open(openCtx)
			cancel()
			if err != nil {
				return err
			}

			s := &editSession{a: a, ed: ed, demoID: id}
			if conn != nil {
				go s.follow(ctx, conn)
			}
			return s.loop(ctx)
		},
	}
	cmd.Flags().BoolVar(&visual, "layout", false, "enable the hero canvas commands")
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "do not connect to the preview relay")
	return cmd
}

func (a *app) dialPreview(ctx context.Context, demoID int64) (*preview.Conn, error) {
	endpoint, err := a.api.PreviewEndpoint(ctx, demoID)
	if err != nil {
		return nil, err
	}
	dctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return preview.Dial(dctx, endpoint, a.api.PreviewHeader(), a.log)
}

// follow keeps the selection in step with the preview's current slide.
func (s *editSession) follow(ctx context.Context, conn *preview.Conn) {
	for m := range conn.Messages() {
		before := s.ed.State().Selected
		s.ed.HandleMessage(ctx, m)
		if after := s.ed.State().Selected; after != before {
			s.a.printf("\n(preview moved to page %d)\n> ", s.ed.PageIndex())
		}
	}
}

func (s *editSession) loop(ctx context.Context) error {
	s.printHeader()
	for {
		s.a.printf("> ")
		line, err := s.a.readLine()
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}

		opCtx, cancel := context.WithTimeout(ctx, s.a.timeout)
		err = s.run(opCtx, fields[0], fields[1:])
		cancel()
		switch {
		case err == nil, errors.Is(err, editor.ErrCanceled):
		default:
			s.a.printf("error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *editSession) printHeader() {
	st := s.ed.State()
	ext := "unknown template"
	if st.Extension != nil {
		ext = *st.Extension
	}
	run := "not running"
	if st.Running {
		run = "running at " + str(st.URL)
	}
	s.a.printf("Editing %q (%s), %d pages, preview %s. Type help for commands.\n", st.Title, ext, len(st.Pages), run)
}

func (s *editSession) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		s.a.printf("%s\n", editHelp)
	case "pages":
		s.printPages()
	case "page":
		if len(args) != 1 {
			return errors.New("usage: page <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		if err := s.ed.SelectPage(ctx, n-1); err != nil {
			return err
		}
		s.canvas = nil
		s.show()
	case "type":
		if len(args) != 1 {
			return errors.New("usage: type <title|points|detail>")
		}
		if err := s.ed.SelectContentType(ctx, models.ContentType(args[0])); err != nil {
			return err
		}
		s.show()
	case "show":
		s.show()
	case "edit":
		return s.readBuffer()
	case "save":
		if err := s.ed.Save(ctx); err != nil {
			return err
		}
		s.a.printf("Saved.\n")
	case "add":
		style := models.PageStyle1
		if len(args) == 1 && args[0] == "1" {
			style = models.PageStyle2
		}
		idx, err := s.ed.AddPage(ctx, style)
		if err != nil {
			return err
		}
		s.canvas = nil
		s.a.printf("Added page %d.\n", idx)
	case "delete":
		if err := s.ed.DeletePage(ctx); err != nil {
			return err
		}
		s.canvas = nil
		s.printPages()
	case "publish":
		var page *int
		if len(args) == 0 || args[0] != "all" {
			idx := s.ed.PageIndex()
			page = &idx
		}
		res, err := s.ed.Publish(ctx, page)
		if err != nil {
			return err
		}
		s.a.printf("%s\n", res.Message)
	case "start", "stop":
		call := s.ed.StartPreview
		if cmd == "stop" {
			call = s.ed.StopPreview
		}
		if _, err := call(ctx); err != nil {
			return err
		}
		s.printStatus()
	case "status":
		s.printStatus()
	default:
		if s.ed.State().VisualLayout {
			return s.runCanvas(ctx, cmd, args)
		}
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
	return nil
}

func (s *editSession) printPages() {
	st := s.ed.State()
	if len(st.Pages) == 0 {
		s.a.printf("No pages. Use add to create one.\n")
		return
	}
	w := tabwriter.NewWriter(s.a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\t#\tPAGE\tTITLE\tUNPUBLISHED")
	for i, p := range st.Pages {
		mark := ""
		if i == st.Selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%t\n", mark, i+1, p.PageIndex, firstLine(p.TitleContent), p.HasUnpublished)
	}
	w.Flush()
}

func (s *editSession) show() {
	st := s.ed.State()
	if len(st.Pages) == 0 {
		s.a.printf("No pages.\n")
		return
	}
	s.a.printf("-- page %d, %s --\n%s\n", s.ed.PageIndex(), st.ContentType, st.Content)
}

func (s *editSession) printStatus() {
	st := s.ed.State()
	if st.Running {
		s.a.printf("Preview running at %s\n", str(st.URL))
		return
	}
	s.a.printf("Preview not running\n")
}

func (s *editSession) readBuffer() error {
	s.a.printf("Enter markdown, finish with a line containing only \".\"\n")
	var b strings.Builder
	for {
		line, err := s.a.readLine()
		if err != nil {
			return err
		}
		if line == "." {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	s.ed.SetContent(b.String())
	s.a.printf("Buffer updated, use save to store it.\n")
	return nil
}

func (s *editSession) canvasFor(ctx context.Context) *layout.Canvas {
	page := s.ed.PageIndex()
	if s.canvas == nil || s.canvas.Page() != page {
		s.canvas = layout.New(s.a.api, s.demoID, page, s.a.log)
		s.canvas.Load(ctx)
	}
	return s.canvas
}

func floats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers", n)
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *editSession) runCanvas(ctx context.Context, cmd string, args []string) error {
	if len(s.ed.State().Pages) == 0 {
		return editor.ErrNoPages
	}
	c := s.canvasFor(ctx)
	switch cmd {
	case "items":
		w := tabwriter.NewWriter(s.a.out, 0, 4, 2, ' ', 0)
		printItems(w, c.Items())
		return w.Flush()
	case "text":
		s.a.printf("Added %s\n", c.AddText().ID)
	case "svg":
		s.a.printf("Added %s\n", c.AddSVG().ID)
	case "image":
		if len(args) != 1 {
			return layout.ErrNoFile
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		it, err := c.AddImage(ctx, filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		s.a.printf("Added %s (%s)\n", it.ID, it.Content)
	case "move", "resize":
		if len(args) != 3 {
			return errors.New("usage: move <id> <dx> <dy> or resize <id> <w> <h>")
		}
		it, ok := c.Item(args[0])
		if !ok {
			return layout.ErrUnknownItem
		}
		v, err := floats(args[1:], 2)
		if err != nil {
			return err
		}
		// One pointer gesture on a canvas anchored at the origin.
		var origin layout.Rect
		if cmd == "move" {
			start := layout.Point{X: it.X, Y: it.Y}
			if err := c.BeginDrag(it.ID, start, origin); err != nil {
				return err
			}
			c.PointerMove(layout.Point{X: start.X + v[0], Y: start.Y + v[1]}, origin)
		} else {
			if err := c.BeginResize(it.ID); err != nil {
				return err
			}
			c.PointerMove(layout.Point{X: it.X + v[0], Y: it.Y + v[1]}, origin)
		}
		c.PointerUp()
		it, _ = c.Item(args[0])
		s.a.printf("%s at (%g,%g) size %gx%g\n", it.ID, it.X, it.Y, it.Width, it.Height)
	case "settext":
		if len(args) < 2 {
			return errors.New("usage: settext <id> <text>")
		}
		return c.SetText(args[0], strings.Join(args[1:], " "))
	case "remove":
		if len(args) != 1 || !c.Remove(args[0]) {
			return layout.ErrUnknownItem
		}
	case "savelayout":
		if err := c.Save(ctx); err != nil {
			s.a.Alert("Failed to save layout")
			return err
		}
		s.a.printf("Layout saved.\n")
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
	return nil
}
