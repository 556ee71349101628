package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"
	"go.uber.org/zap"

	dig_container "github.com/Nanikworkforce/TET-Bloom/apps/api/di/dig"
	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/provision"
)

type adminParams struct {
	dig.In
	Zap          *zap.Logger
	Logger       core.Logger
	DB           *sqlx.DB // nil with in-memory storage
	Orchestrator *provision.Orchestrator
	Provisioner  *identity.Provisioner
	Dispatcher   *notify.Dispatcher
}

func main() {
	code := 0
	defer func() { os.Exit(code) }()

	c := dig_container.New()
	err := c.Invoke(func(p adminParams) {
		defer func() { _ = p.Zap.Sync() }()
		if p.DB != nil {
			defer func() { _ = p.DB.Close() }()
		}

		cli := commandLine{
			db:           p.DB,
			orchestrator: p.Orchestrator,
			provisioner:  p.Provisioner,
			dispatcher:   p.Dispatcher,
			out:          os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				p.Logger.Error("admin command failed", err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Println(err)
		code = 1
	}
}
