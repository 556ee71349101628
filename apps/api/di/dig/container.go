package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/Nanikworkforce/TET-Bloom/apps/api/echo"
	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/mailer"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/provision"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
	emailsvc "github.com/Nanikworkforce/TET-Bloom/services/email"
	identitysvc "github.com/Nanikworkforce/TET-Bloom/services/identity"
	locksvc "github.com/Nanikworkforce/TET-Bloom/services/lock"
	logsvc "github.com/Nanikworkforce/TET-Bloom/services/logger"
	"github.com/Nanikworkforce/TET-Bloom/storage/database"
	inmemdb "github.com/Nanikworkforce/TET-Bloom/storage/database/inmem"
	sqlxrepos "github.com/Nanikworkforce/TET-Bloom/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories of the configured backend. DB is nil for in-memory storage.
type Storage struct {
	dig.Out
	DB          *sqlx.DB
	People      person.Repository
	Teachers    teacher.Repository
	Credentials credential.Repository
	Groups      group.Repository
	Schedules   schedule.Repository
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	switch conf.Storage {
	case core.StorageMemory:
		loggerParam.Logger.Warn("using in-memory storage: data is lost on exit")
		db := inmemdb.NewDB()
		return Storage{
			People:      inmemdb.NewPersonRepository(db),
			Teachers:    inmemdb.NewTeacherRepository(db),
			Credentials: inmemdb.NewCredentialRepository(db),
			Groups:      inmemdb.NewGroupRepository(db),
			Schedules:   inmemdb.NewScheduleRepository(db),
		}, nil

	case core.StoragePostgres:
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return Storage{}, errors.Wrap(err, "setting up database")
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return Storage{}, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return Storage{}, err
		}
		return Storage{
			DB:          db,
			People:      sqlxrepos.NewPersonRepository(db),
			Teachers:    sqlxrepos.NewTeacherRepository(db),
			Credentials: sqlxrepos.NewCredentialRepository(db),
			Groups:      sqlxrepos.NewGroupRepository(db),
			Schedules:   sqlxrepos.NewScheduleRepository(db),
		}, nil
	}
	return Storage{}, errors.Errorf("unknown storage %q", conf.Storage)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	person.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)
	credential.InitValidators(validate, translator)
	group.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate
}

// newLocker shares dispatch locks through Redis when it is configured.
func newLocker(conf *core.Config, logger core.Logger) (core.Locker, error) {
	if conf.Redis.Addr == "" {
		return locksvc.NewLocalLocker(), nil
	}
	client, err := locksvc.NewRedisClient(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return locksvc.NewRedisLocker(client, conf, logger), nil
}

func newProvisioner(conf *core.Config, repo credential.Repository, logger core.Logger) *identity.Provisioner {
	provider := identitysvc.NewProvider(conf)
	if provider == nil {
		logger.Info("identity provider not configured: external registration disabled")
	}
	return identity.NewProvisioner(conf, repo, provider)
}

type serverParams struct {
	dig.In
	Config       *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	People       person.Repository
	Teachers     teacher.Repository
	Groups       group.Repository
	Schedules    schedule.Repository
	Provisioner  *identity.Provisioner
	Orchestrator *provision.Orchestrator
	Dispatcher   *notify.Dispatcher
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Config:       p.Config,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		People:       p.People,
		Teachers:     p.Teachers,
		Groups:       p.Groups,
		Schedules:    p.Schedules,
		Provisioner:  p.Provisioner,
		Orchestrator: p.Orchestrator,
		Dispatcher:   p.Dispatcher,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(emailsvc.NewTransport))
	must(c.Provide(mailer.NewComposer))
	must(c.Provide(newLocker))
	must(c.Provide(newProvisioner))
	must(c.Provide(provision.NewOrchestrator))
	must(c.Provide(notify.NewDispatcher))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
