package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-svn/svncore/delta"
	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/report"
	"github.com/go-svn/svncore/svndiff"
	"github.com/go-svn/svncore/wireproto/client"
	"github.com/go-svn/svncore/wireproto/xmlproto"
	terminal "golang.org/x/crypto/ssh/terminal"
)

// runCheckout drives a from-empty update-report against session.Root
// and materializes the result under --to: a live wire checkout rather
// than a read from a dump stream.
func runCheckout(args []string) error {
	flags := flag.NewFlagSet("checkout", flag.ExitOnError)
	root := flags.String("root", "", "repository URL, e.g. http://host/repo")
	rev := flags.Int64("rev", 0, "revision to check out (0 means HEAD)")
	to := flags.String("to", "", "local directory to write into")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *root == "" || *to == "" {
		return fmt.Errorf("-root and -to are required")
	}
	return checkoutOrUpdate(*root, *rev, *to, true)
}

// runUpdate drives an update-report against an existing checkout,
// reporting the working copy's recorded revision rather than starting
// empty, so the server computes only the changes since then.
func runUpdate(args []string) error {
	flags := flag.NewFlagSet("update", flag.ExitOnError)
	root := flags.String("root", "", "repository URL, e.g. http://host/repo")
	rev := flags.Int64("rev", 0, "revision to update to (0 means HEAD)")
	to := flags.String("to", "", "local checkout directory")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *root == "" || *to == "" {
		return fmt.Errorf("-root and -to are required")
	}
	return checkoutOrUpdate(*root, *rev, *to, false)
}

func checkoutOrUpdate(rootURL string, rev int64, to string, startEmpty bool) error {
	base, publicPath := splitSessionRoot(rootURL)
	sess := client.NewSession(base, nil, svnlog.New())
	if err := sess.Bootstrap(publicPath); err != nil {
		return err
	}

	baseRev := int64(0)
	if !startEmpty {
		baseRev = readWorkingRev(to)
	}

	if err := os.MkdirAll(to, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", to, err)
	}
	ed := &fsEditor{root: to, progress: newProgressMeter()}
	err := sess.DoUpdate(rev, true, func(r report.Reporter) error {
		return r.SetPath("", baseRev, startEmpty, "")
	}, ed, nil, xmlproto.FetchFunc{})
	ed.progress.done()
	if err != nil {
		return err
	}
	return writeWorkingRev(to, ed.targetRev)
}

// progressMeter prints a one-line, terminal-width-clamped running count
// of paths written. It is silent when stderr isn't a terminal
// (redirected to a file, piped, CI) since there is no width to clamp
// against and no one to read it live.
type progressMeter struct {
	enabled bool
	width   int
	count   int
}

func newProgressMeter() *progressMeter {
	fd := int(os.Stderr.Fd())
	if !terminal.IsTerminal(fd) {
		return &progressMeter{}
	}
	width := 80
	if w, _, err := terminal.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return &progressMeter{enabled: true, width: width}
}

func (p *progressMeter) tick(path string) {
	if p == nil || !p.enabled {
		return
	}
	p.count++
	line := fmt.Sprintf("\r%6d  %s", p.count, path)
	if len(line) > p.width {
		line = line[:p.width]
	}
	fmt.Fprint(os.Stderr, line)
}

func (p *progressMeter) done() {
	if p == nil || !p.enabled {
		return
	}
	fmt.Fprintln(os.Stderr)
}

// splitSessionRoot separates a full repository URL into the host/scheme
// part NewSession wants and the repository-relative path Bootstrap
// wants, the two halves Session keeps distinct internally.
func splitSessionRoot(rootURL string) (base, publicPath string) {
	idx := -1
	slashes := 0
	for i, c := range rootURL {
		if c == '/' {
			slashes++
			if slashes == 3 {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return rootURL, ""
	}
	return rootURL[:idx], rootURL[idx+1:]
}

const workingRevFile = ".svnbridge-rev"

func readWorkingRev(dir string) int64 {
	data, err := os.ReadFile(filepath.Join(dir, workingRevFile))
	if err != nil {
		return 0
	}
	var rev int64
	fmt.Sscanf(string(data), "%d", &rev)
	return rev
}

func writeWorkingRev(dir string, rev int64) error {
	return os.WriteFile(filepath.Join(dir, workingRevFile), []byte(fmt.Sprintf("%d\n", rev)), 0o644)
}

// fsEditor applies an update-report drive directly to a local directory
// tree, the checkout-side counterpart of wireproto/server's fsrepo-backed
// commit path.
type fsEditor struct {
	delta.DefaultEditor
	root      string
	targetRev int64
	progress  *progressMeter
}

type fsDir struct {
	fsPath string
}

type fsFile struct {
	fsPath   string
	applier  *svndiff.Applier
}

func (e *fsEditor) SetTargetRevision(rev int64) error {
	e.targetRev = rev
	return nil
}

func (e *fsEditor) OpenRoot(baseRev int64) (interface{}, error) {
	return &fsDir{fsPath: e.root}, nil
}

func (e *fsEditor) DeleteEntry(p string, rev int64, parent interface{}) error {
	return os.RemoveAll(filepath.Join(e.root, p))
}

func (e *fsEditor) AddDirectory(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	full := filepath.Join(e.root, p)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, err
	}
	return &fsDir{fsPath: full}, nil
}

func (e *fsEditor) OpenDirectory(p string, parent interface{}, baseRev int64) (interface{}, error) {
	return &fsDir{fsPath: filepath.Join(e.root, p)}, nil
}

func (e *fsEditor) AddFile(p string, parent interface{}, copyFrom *delta.CopyFrom) (interface{}, error) {
	e.progress.tick(p)
	return &fsFile{fsPath: filepath.Join(e.root, p)}, nil
}

func (e *fsEditor) OpenFile(p string, parent interface{}, baseRev int64) (interface{}, error) {
	existing, _ := os.ReadFile(filepath.Join(e.root, p))
	return &fsFile{fsPath: filepath.Join(e.root, p), applier: svndiff.NewApplier(existing)}, nil
}

func (e *fsEditor) ApplyTextDelta(file interface{}, baseChecksum string) (delta.WindowHandler, error) {
	f := file.(*fsFile)
	if f.applier == nil {
		f.applier = svndiff.NewApplier(nil)
	}
	return func(w *svndiff.Window) error {
		if w == nil {
			return nil
		}
		return f.applier.ApplyWindow(w)
	}, nil
}

func (e *fsEditor) CloseFile(file interface{}, resultChecksum string) error {
	f := file.(*fsFile)
	if f.applier == nil {
		return nil
	}
	return os.WriteFile(f.fsPath, f.applier.Bytes(), 0o644)
}
