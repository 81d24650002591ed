package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/fixture"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/liststore"
	"github.com/idilsaglam/tada/internal/ui"
)

const runLong = `Run a script of list commands against a fresh list, one command per line.

Commands:
  add <title...>     Add a new item (title can be multiple words)
  done <index>       Toggle done for item at 1-based index
  rm <index>         Remove item at 1-based index (it lingers while removing)
  clear              Remove every completed item
  ls                 Print the list
  wait               Wait until no item is being removed
  filter <mode>      Show all, active or completed items in ls
  sort <key>         Order ls by created or alphabetical
  # ...              Comment

Indexes follow insertion order, as printed by ls.`

// runOptions tune output behavior of a script run.
type runOptions struct {
	Group  bool   // ls grouped by pending/done
	Format string // text or json
}

func newRunCmd(a *app) *cobra.Command {
	opt := runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Run a script of list commands",
		Long:  runLong,
		Example: `  printf 'add Buy milk\nadd Walk dog\ndone 1\nls\n' | todo run
  todo run --seed seed.json --format json demo.todo`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usagef("usage: todo run [file|-]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opt.Format != "text" && opt.Format != "json" {
				return usagef("unknown format %q (want text or json)", opt.Format)
			}
			in, closeIn, err := openScript(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()

			s, err := a.newStore()
			if err != nil {
				return err
			}
			defer s.Close()

			r := &runner{
				store:  s,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
				opt:    opt,
				view:   ui.ListOptions{Filter: model.FilterAll, Sort: model.SortCreated},
				logger: a.logger,
			}
			return r.run(cmd.Context(), in)
		},
	}
	cmd.Flags().BoolVar(&opt.Group, "group", false, "group ls output by pending/done")
	cmd.Flags().StringVar(&opt.Format, "format", "text", "ls output format: text or json")
	return cmd
}

func openScript(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open script: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// runner executes script lines against one store.
type runner struct {
	store  *liststore.Store
	out    io.Writer
	errOut io.Writer
	opt    runOptions
	view   ui.ListOptions
	logger *zap.Logger
}

func (r *runner) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	failed := 0
	sc := bufio.NewScanner(in)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.exec(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			ui.Fail(r.errOut, fmt.Sprintf("line %d: %v", lineNo, err))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d script line(s) failed", failed)
	}
	return nil
}

// exec dispatches one script command.
func (r *runner) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	r.logger.Debug("script command", zap.String("cmd", cmd))

	switch cmd {
	case "add":
		if rest == "" {
			return fmt.Errorf("usage: add <title...>")
		}
		if _, ok := r.store.Add(rest); !ok {
			return fmt.Errorf("add: empty title")
		}
		return nil

	case "done":
		id, err := r.idAt("done", rest)
		if err != nil {
			return err
		}
		if !r.store.Toggle(id) {
			return fmt.Errorf("done: item %s is being removed", rest)
		}
		return nil

	case "rm":
		id, err := r.idAt("rm", rest)
		if err != nil {
			return err
		}
		if !r.store.Delete(id) {
			return fmt.Errorf("rm: item %s is already being removed", rest)
		}
		return nil

	case "clear":
		if r.store.ClearCompleted() == 0 {
			ui.OK(r.out, "nothing to clear")
		}
		return nil

	case "ls":
		return r.list()

	case "wait":
		return waitIdle(ctx, r.store, 10*r.store.RemovalDelay()+time.Second)

	case "filter":
		f, err := model.ParseFilter(rest)
		if err != nil {
			return err
		}
		r.view.Filter = f
		return nil

	case "sort":
		k, err := model.ParseSortKey(rest)
		if err != nil {
			return err
		}
		r.view.Sort = k
		return nil
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

// idAt resolves a 1-based index into an item id.
func (r *runner) idAt(cmd, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("%s: not a number: %q", cmd, arg)
	}
	items := r.store.Items()
	if n < 1 || n > len(items) {
		return "", fmt.Errorf("%s: index out of range: have %d, got %d (run `ls` to see valid indexes)", cmd, len(items), n)
	}
	return items[n-1].ID, nil
}

func (r *runner) list() error {
	st := r.store.State()
	if r.opt.Format == "json" {
		return fixture.Write(r.out, fixture.NewSnapshot(st, ui.Project(st, r.view)))
	}
	view := r.view
	view.Group = r.opt.Group
	ui.Panel(r.out, ui.ListLines(st, view))
	return nil
}

// waitIdle blocks until no removal is pending, ctx ends, or timeout passes.
func waitIdle(ctx context.Context, s *liststore.Store, timeout time.Duration) error {
	idle := make(chan struct{}, 1)
	cancel := s.Subscribe(func(st liststore.State) {
		if len(st.Pending) == 0 {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})
	defer cancel()

	if s.PendingCount() == 0 {
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("wait: removals still pending after %s", timeout)
	}
}
