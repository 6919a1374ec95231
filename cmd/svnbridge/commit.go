package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/svndiff"
	"github.com/go-svn/svncore/wireproto/client"
)

// runCommit walks a local directory tree and commits it in full as a
// single new revision -- a thin harness, not a working-copy diff engine
// (spec.md places working-copy status tracking out of scope), so it is
// only useful against a freshly checked-out-from-empty target.
func runCommit(args []string) error {
	flags := flag.NewFlagSet("commit", flag.ExitOnError)
	root := flags.String("root", "", "repository URL, e.g. http://host/repo")
	from := flags.String("from", "", "local directory to commit")
	message := flags.String("m", "", "commit log message")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *root == "" || *from == "" {
		return fmt.Errorf("-root and -from are required")
	}

	base, publicPath := splitSessionRoot(*root)
	sess := client.NewSession(base, nil, svnlog.New())
	if err := sess.Bootstrap(publicPath); err != nil {
		return err
	}

	noResolve := func(path string) (string, error) {
		return "", fmt.Errorf("commit: %s already exists in the repository and this harness cannot checkout existing directories", path)
	}
	ed, err := client.NewCommitEditor(sess, noResolve, *message, nil, nil, false, nil)
	if err != nil {
		return err
	}

	root0, err := ed.OpenRoot(0)
	if err != nil {
		return err
	}
	if err := commitTree(ed, root0, *from, ""); err != nil {
		_ = ed.CloseEdit()
		return err
	}
	if err := ed.CloseDirectory(root0); err != nil {
		return err
	}
	return ed.CloseEdit()
}

// commitTree recursively adds every entry under fsPath as a new node at
// relPath, depth-first.
func commitTree(ed *client.CommitEditor, parent interface{}, fsPath, relPath string) error {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fsPath, err)
	}
	for _, entry := range entries {
		if entry.Name() == workingRevFile {
			continue
		}
		childFSPath := filepath.Join(fsPath, entry.Name())
		childRelPath := joinRelPath(relPath, entry.Name())
		if entry.IsDir() {
			dir, err := ed.AddDirectory(childRelPath, parent, nil)
			if err != nil {
				return fmt.Errorf("adding directory %s: %w", childRelPath, err)
			}
			if err := commitTree(ed, dir, childFSPath, childRelPath); err != nil {
				return err
			}
			if err := ed.CloseDirectory(dir); err != nil {
				return fmt.Errorf("closing directory %s: %w", childRelPath, err)
			}
			continue
		}
		if err := commitFile(ed, parent, childFSPath, childRelPath); err != nil {
			return err
		}
	}
	return nil
}

func commitFile(ed *client.CommitEditor, parent interface{}, fsPath, relPath string) error {
	data, err := os.ReadFile(fsPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fsPath, err)
	}
	file, err := ed.AddFile(relPath, parent, nil)
	if err != nil {
		return fmt.Errorf("adding file %s: %w", relPath, err)
	}
	handler, err := ed.ApplyTextDelta(file, "")
	if err != nil {
		return err
	}
	if err := handler(&svndiff.Window{
		TargetViewLen: uint64(len(data)),
		Instructions:  []svndiff.Instruction{{Kind: svndiff.OpNew, Length: uint64(len(data))}},
		NewData:       data,
	}); err != nil {
		return err
	}
	if err := handler(nil); err != nil {
		return err
	}
	return ed.CloseFile(file, "")
}

func joinRelPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
