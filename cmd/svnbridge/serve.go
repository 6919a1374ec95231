package main

import (
	"flag"
	"net/http"

	"github.com/go-svn/svncore/fsrepo"
	"github.com/go-svn/svncore/internal/svnlog"
	"github.com/go-svn/svncore/wireproto/server"
)

// runServe hosts a fresh, empty fsrepo.Repo behind wireproto/server --
// there is no on-disk repository format to load from (spec.md scopes
// that out), so every invocation starts from revision 0.
func runServe(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "", "YAML config file (listen address, repository root path)")
	listen := flags.String("listen", "", "override the config's listen address")
	root := flags.String("root", "", "override the config's repository root path")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadServeConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *root != "" {
		cfg.Root = *root
	}

	log := svnlog.New()
	repo := fsrepo.NewRepo()
	srv := server.NewServer(repo, cfg.Root, log)

	log.WithField("listen", cfg.Listen).WithField("root", cfg.Root).Info("svnbridge serving")
	return http.ListenAndServe(cfg.Listen, srv)
}
