package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"vsmrt/blob"
	"vsmrt/runtimedata"
	"vsmrt/state"
	"vsmrt/vsm"
)

func loadBlob(path string) (*blob.Blob, runtimedata.RuntimeData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read runtime data: %w", err)
	}
	b, err := blob.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	rd, err := runtimedata.FromBlob(b)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return b, rd, nil
}

// output returns where results go, stdout unless a destination is given.
func output(cmd *cli.Command, arg int, overwrite bool) (io.Writer, func() error, error) {
	dst := cmd.Args().Get(arg)
	if len(dst) == 0 {
		return cmd.Root().Writer, func() error { return nil }, nil
	}
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return nil, nil, fmt.Errorf("output file already exists: %s", dst)
	}
	f, err := os.Create(dst)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create output file: %w", err)
	}
	return f, f.Close, nil
}

// RunDump prints a compiled blob.
func RunDump(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("dump")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no runtime data file has been specified")
	}
	b, rd, err := loadBlob(src)
	if err != nil {
		return err
	}

	var out []byte
	if cmd.Bool("ion") {
		out, err = DescribeIon(b, rd)
	} else {
		var text string
		text, err = Describe(b, rd, cmd.Bool("nodes"))
		out = []byte(text)
	}
	if err != nil {
		return err
	}

	w, done, err := output(cmd, 1, cmd.Bool("overwrite"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := done(); err == nil {
			err = cerr
		}
	}()
	if _, err = w.Write(out); err != nil {
		return err
	}
	log.Debug("Dumped", zap.String("file", src), zap.Stringer("kind", rd.Kind()), zap.Int("bytes", len(out)))
	return nil
}

// RunStates attaches a visual state manager to a compiled collection and
// moves it through the states named on the command line.
func RunStates(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("states")

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return errors.New("no runtime data file has been specified")
	}
	b, _, err := loadBlob(args[0])
	if err != nil {
		return err
	}

	h := newHost(int32(cmd.Int("width")), int32(cmd.Int("height")), cmd.StringSlice("element"), log)
	opts := vsm.Options{
		Animator:          h,
		Targets:           h,
		Properties:        h,
		Predicates:        env.Predicates(),
		Platform:          env.Platform(),
		Policy:            env.Cfg.Runtime.Fallback,
		AnimationsEnabled: env.Cfg.Runtime.AnimationsEnabled,
		Logger:            log,
	}
	if res := cmd.String("resources"); len(res) > 0 {
		rb, _, err := loadBlob(res)
		if err != nil {
			return err
		}
		dict, err := newDictionary(rb, opts.Predicates, opts.Platform, log)
		if err != nil {
			return err
		}
		opts.Resources = dict
	}

	m, err := vsm.NewManager(b, opts)
	if err != nil {
		return err
	}
	defer m.Leave()

	w := cmd.Root().Writer
	settle := !cmd.Bool("no-settle")

	printGroups(w, m)

	if from, to := cmd.String("from"), cmd.String("to"); len(to) > 0 {
		if err := printTransition(w, m, from, to); err != nil {
			return err
		}
	}

	if cmd.Bool("triggers") {
		if err := m.InitializeStateTriggers(h); err != nil {
			return fmt.Errorf("unable to initialize state triggers: %w", err)
		}
		if settle {
			h.settle(m.Dispatcher())
		}
		fmt.Fprintf(w, "triggers %dx%d\n", h.width, h.height)
		printTrace(w, h.takeTrace())
	}

	for _, name := range args[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		found, err := m.GoToState(name, cmd.Bool("transitions"))
		if err != nil {
			return fmt.Errorf("going to state %q: %w", name, err)
		}
		if !found {
			log.Warn("No such visual state, skipping", zap.String("state", name))
			continue
		}
		if settle {
			h.settle(m.Dispatcher())
		}
		fmt.Fprintf(w, "goto %s\n", name)
		printTrace(w, h.takeTrace())
	}

	fmt.Fprintln(w, "current:")
	for g := range m.GroupCount() {
		cur, ok := m.CurrentState(g)
		if !ok {
			cur = "(none)"
		}
		fmt.Fprintf(w, "  %s: %s (%s)\n", m.GroupName(g), cur, m.GroupContext(g).State())
	}
	if props := h.properties(); len(props) > 0 {
		fmt.Fprintln(w, "properties:")
		for _, p := range props {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

func printGroups(w io.Writer, m *vsm.Manager) {
	ds := m.DataSource()
	for g := range m.GroupCount() {
		var names []string
		for s := range ds.StateCount() {
			if ds.GroupOf(s) == g {
				names = append(names, ds.StateName(s))
			}
		}
		fmt.Fprintf(w, "group %s: %s\n", m.GroupName(g), strings.Join(names, ", "))
	}
}

// printTransition shows which transition a state change would play, an
// empty from stands for a group without current state.
func printTransition(w io.Writer, m *vsm.Manager, from, to string) error {
	ds := m.DataSource()
	toState, group, ok := ds.TryGetVisualState(to)
	if !ok {
		return fmt.Errorf("state %q: %w", to, vsm.ErrUnknownState)
	}
	fromState := -1
	if len(from) > 0 {
		s, g, ok := ds.TryGetVisualState(from)
		if !ok || g != group {
			return fmt.Errorf("state %q is not in group %s: %w", from, ds.GroupName(group), vsm.ErrUnknownState)
		}
		fromState = s
	}
	t, err := ds.TryGetOrCreateTransition(group, fromState, toState)
	if err != nil {
		return err
	}
	switch {
	case t == nil:
		fmt.Fprintf(w, "transition %s -> %s: none\n", from, to)
	default:
		fmt.Fprintf(w, "transition %s -> %s: from=%q to=%q duration=%s storyboard=%t\n",
			from, to, t.From, t.To, t.Duration, t.Storyboard != nil)
	}
	return nil
}

func printTrace(w io.Writer, trace []string) {
	for _, t := range trace {
		fmt.Fprintf(w, "  %s\n", t)
	}
}
