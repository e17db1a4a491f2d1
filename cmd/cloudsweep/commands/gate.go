package commands

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/tui"
)

type identifier interface {
	VerifyIdentity(ctx context.Context) (string, error)
}

// gate is the runner preflight. It resolves the account and, when ask is
// set, shows the confirmation prompt. Jobs have validated their arguments by
// the time it runs.
type gate struct {
	job         string
	ask         bool
	interactive bool
	identity    identifier
	prompt      func(title string, details []string) (bool, error)

	account string
}

func (g *gate) check(ctx context.Context) error {
	if g.ask && !g.interactive {
		return &engine.ConfigError{Field: "yes", Msg: "live run needs confirmation", Err: tui.ErrNotInteractive}
	}
	account, err := g.identity.VerifyIdentity(ctx)
	if err != nil {
		return err
	}
	g.account = account
	if !g.ask {
		return nil
	}
	ok, err := g.prompt(g.job, g.details())
	if err != nil {
		return err
	}
	if !ok {
		return engine.ErrDeclined
	}
	return nil
}

func (g *gate) details() []string {
	details := []string{"account: " + g.account, "region: " + settings.Region}
	if settings.Profile != "" {
		details = append(details, "profile: "+settings.Profile)
	}
	if settings.Where != "" {
		details = append(details, "where: "+settings.Where)
	}
	return details
}
