package cli

import (
	"fmt"
	"os"

	"github.com/agentic-project/agentic/pkg/agentic"
	"github.com/agentic-project/agentic/pkg/color"
	"github.com/agentic-project/agentic/pkg/model"
)

// requireClient opens the workspace containing CWD, or exits with an error.
func requireClient() *agentic.Client {
	cwd, err := os.Getwd()
	if err != nil {
		fmtErr("cannot get current directory: %v", err)
		os.Exit(1)
	}
	client, err := agentic.Open(cwd)
	if err != nil {
		fmtErr("not an agentic workspace (run 'agentic init' first): %v", err)
		os.Exit(1)
	}
	return client
}

// resolveSession returns the session named by --session, or the latest open
// session when the flag is empty. Exits when neither resolves.
func resolveSession(client *agentic.Client) model.SessionID {
	if sessionFlag != "" {
		rec, err := client.Session(model.SessionID(sessionFlag))
		if err != nil {
			fmtErr("%v", err)
			os.Exit(1)
		}
		return rec.SessionID
	}
	rec, err := client.LatestSession()
	if err != nil {
		fmtErr("list sessions: %v", err)
		os.Exit(1)
	}
	if rec == nil {
		fmtErr("no open session (run 'agentic session new' or pass --session)")
		os.Exit(1)
	}
	return rec.SessionID
}

// actorOr returns the explicit actor if set, otherwise the configured one.
func actorOr(client *agentic.Client, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return client.Config().Actor
}

func fmtErr(format string, args ...any) {
	prefix := "agentic: "
	if color.Enabled() {
		prefix = color.Error("agentic:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
