// svnbridge is a thin integration harness over fsrepo/wireproto: a
// "serve" subcommand hosts a repository behind wireproto/server, and
// "checkout"/"update"/"commit" subcommands drive wireproto/client
// against one. There is no interactive shell; each subcommand does one
// thing and exits.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "svnbridge: requires a subcommand - one of serve, checkout, update, commit")
		os.Exit(1)
	}
	op := os.Args[1]
	args := os.Args[2:]

	var err error
	switch op {
	case "serve":
		err = runServe(args)
	case "checkout":
		err = runCheckout(args)
	case "update":
		err = runUpdate(args)
	case "commit":
		err = runCommit(args)
	default:
		fmt.Fprintf(os.Stderr, "svnbridge: unknown subcommand %q\n", op)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "svnbridge %s: %v\n", op, err)
		os.Exit(1)
	}
}
