package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/beautifulqr/qrgen/pkg/export"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
	"github.com/beautifulqr/qrgen/pkg/studio"
)

func shellCommand(args []string) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (JSON or YAML)")
	fs.Parse(args)

	_, encoder, cleanup := setup(*configPath)
	defer cleanup()

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "qr> ",
		HistoryFile:     filepath.Join(home, ".qrgen", "history"),
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Printf("Error starting shell: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	sh := newShell(encoder, rl.Stdout())
	defer sh.close()

	fmt.Fprintln(rl.Stdout(), "qrgen interactive studio. Type 'help' for commands.")
	sh.status()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				return
			}
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "Error: %v\n", err)
			return
		}
		if sh.exec(line) {
			return
		}
	}
}

func shellCompleter() *readline.PrefixCompleter {
	levels := make([]readline.PrefixCompleterInterface, 0, len(qrcode.Levels))
	for _, l := range qrcode.Levels {
		levels = append(levels, readline.PcItem(l.String()))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("text"),
		readline.PcItem("size"),
		readline.PcItem("margin"),
		readline.PcItem("level", levels...),
		readline.PcItem("fg"),
		readline.PcItem("bg"),
		readline.PcItem("reset"),
		readline.PcItem("regenerate"),
		readline.PcItem("show"),
		readline.PcItem("save", readline.PcItem("png"), readline.PcItem("svg")),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// shell maps commands onto one studio store.
type shell struct {
	store    *studio.Store
	pipeline *studio.Pipeline
	out      io.Writer
}

func newShell(encoder qrcode.Encoder, out io.Writer) *shell {
	store := studio.NewStore(studio.DefaultParams())
	pipeline := studio.NewPipeline(encoder, studio.WithLabel("shell"))
	pipeline.Attach(store)
	return &shell{store: store, pipeline: pipeline, out: out}
}

func (s *shell) close() {
	s.pipeline.Close()
	s.pipeline.Wait()
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help":
		s.help()
		return false
	case "text":
		// Everything after the command, verbatim, is the payload.
		s.store.SetPayload(rest)
	case "size":
		err = s.setInt(rest, func(p *studio.Patch, v int) { p.Size = &v })
	case "margin":
		err = s.setInt(rest, func(p *studio.Patch, v int) { p.Margin = &v })
	case "level":
		var lvl qrcode.Level
		if lvl, err = qrcode.ParseLevel(rest); err == nil {
			s.store.SetLevel(lvl)
		}
	case "fg":
		err = s.apply(studio.Patch{Foreground: &rest})
	case "bg":
		err = s.apply(studio.Patch{Background: &rest})
	case "reset":
		s.store.ResetColors()
	case "regenerate":
		s.store.Regenerate()
	case "show":
		s.show()
		return false
	case "save":
		s.save(rest)
		return false
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", cmd)
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return false
	}
	s.status()
	return false
}

func (s *shell) setInt(arg string, set func(*studio.Patch, int)) error {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("not a number: %q", arg)
	}
	var p studio.Patch
	set(&p, v)
	return s.apply(p)
}

func (s *shell) apply(p studio.Patch) error {
	if err := s.store.Params().With(p).Validate(); err != nil {
		return err
	}
	s.store.Apply(p)
	return nil
}

func (s *shell) await() (studio.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	for {
		r, err := s.store.Await(ctx, s.store.Revision())
		if errors.Is(err, studio.ErrSuperseded) {
			continue
		}
		return r, err
	}
}

func (s *shell) status() {
	r, err := s.await()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	p := s.store.Params()
	if r.State() == studio.StateError {
		fmt.Fprintf(s.out, "✗ %s\n", r.Error)
		return
	}
	fmt.Fprintf(s.out, "✓ ready: %d chars, size %d, margin %d, level %s, fg %s, bg %s\n",
		len(p.Normalized()), p.Size, p.Margin, p.Level, p.Foreground, p.Background)
}

func (s *shell) show() {
	r, err := s.await()
	if err != nil || r.State() != studio.StateReady {
		fmt.Fprintln(s.out, "Nothing to show.")
		return
	}
	p := s.store.Params()
	if err := qrcode.Terminal(s.out, p.Normalized(), p.Level); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *shell) save(arg string) {
	format, dir, _ := strings.Cut(arg, " ")
	r, err := s.await()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	f, err := export.ByFormat(strings.ToLower(format), r)
	if errors.Is(err, export.ErrNothingToExport) {
		// Same as the page: nothing to download, nothing happens.
		return
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v (usage: save png|svg [dir])\n", err)
		return
	}
	path, err := f.Save(strings.TrimSpace(dir))
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "✓ Saved %s\n", path)
}

func (s *shell) help() {
	fmt.Fprintln(s.out, `Commands:
  text <payload>       set the text or URL
  size <160-720>       raster width, step 10
  margin <0-10>        quiet zone in modules
  level <L|M|Q|H>      error correction
  fg <#hex>            foreground color
  bg <#hex>            background color
  reset                restore default colors
  regenerate           encode again with the same settings
  show                 print the code to the terminal
  save png|svg [dir]   write qr-code.png or qr-code.svg
  quit                 leave the shell`)
}
