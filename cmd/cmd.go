package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/thiagokokada/gde-go/internal/buildinfo"
	"github.com/thiagokokada/gde-go/internal/extract"
	"github.com/thiagokokada/gde-go/internal/git/backend"
	"github.com/thiagokokada/gde-go/internal/picker"
)

var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func Run() error {
	return run(os.Args[1:], os.Stdout)
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gde-go", flag.ContinueOnError)
	from := fs.String("from", "", "revision to extract the \"from\" snapshot of")
	to := fs.String("to", "", "revision to extract the \"to\" snapshot of")
	output := fs.String("output", ".", "directory where the gde-<uuid> output directory is created")
	backendName := fs.String("backend", defaultBackend.String(), "git backend: native or cli")
	all := fs.Bool("all", false, "show every ref in the picker, not only HEAD")
	mode := fs.String("mode", picker.ThemeAuto.String(), "picker color mode: auto, light, or dark")
	noWatch := fs.Bool("nowatch", false, "disable automatic reload of the picker when the repository changes")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintln(stdout, buildinfo.Describe(defaultBackend.String()))
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	kind, err := backend.ParseKind(*backendName)
	if err != nil {
		return err
	}
	interactive := *from == "" && *to == ""
	switch {
	case !interactive && (*from == "" || *to == ""):
		return errors.New("-from and -to must be given together")
	case !interactive && *from == *to:
		return extract.ErrSameRevision
	case interactive && !isTerminal():
		return errors.New("the revision picker needs a terminal; pass -from and -to instead")
	}

	targetDir := "."
	if remaining := fs.Args(); len(remaining) > 0 {
		targetDir = remaining[len(remaining)-1]
	}
	root, err := backend.RootDir(targetDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Root directory: %s\n", root)
	b, err := backend.Open(kind, root)
	if err != nil {
		return err
	}
	slog.Debug("repository opened", slog.String("root", b.RootDir()), slog.String("backend", kind.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if interactive {
		var ok bool
		*from, *to, ok, err = picker.Run(ctx, b, picker.Options{
			All:   *all,
			Theme: picker.ThemePreferenceFromString(*mode),
			Watch: !*noWatch,
		})
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("no revisions selected")
			return nil
		}
	}

	outDir, err := outputDir(*output)
	if err != nil {
		return err
	}
	report, err := extract.New(b, extract.WithProgress(stdout)).Extract(ctx, extract.Session{
		From:      *from,
		To:        *to,
		TargetDir: root,
		OutputDir: outDir,
	})
	if err != nil {
		return err
	}
	_, err = report.WriteTo(stdout)
	return err
}

// outputDir returns a fresh gde-<uuid> directory name under base. It is only
// created once there is something to copy.
func outputDir(base string) (string, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}
	return filepath.Join(abs, "gde-"+uuid.NewString()), nil
}
