// Package dic wires the API dependencies with a dig container.
package dic

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/danhgia/apps/api/echo"
	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/evaluation"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/settings"
	"github.com/trezcool/danhgia/core/user"
	emailsvc "github.com/trezcool/danhgia/services/email"
	logsvc "github.com/trezcool/danhgia/services/logger"
	sheetsvc "github.com/trezcool/danhgia/services/sheets"
	"github.com/trezcool/danhgia/storage/database"
	dummydb "github.com/trezcool/danhgia/storage/database/dummy"
	sqlxrepos "github.com/trezcool/danhgia/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB returns nil when no database is configured: sessions then live in memory.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	if !conf.Database.Enabled() {
		return nil
	}
	db, err := database.Setup(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newSessionStore(db *sql.DB) session.Store {
	if db == nil {
		return dummydb.NewSessionStore(dummydb.Open())
	}
	return sqlxrepos.NewSessionStore(db)
}

func newCaller(conf *core.Config, logger core.Logger) sheetsvc.Caller {
	if conf.Remote.MockMode() {
		logger.Warn("evaluation API URL not set: serving the mock API")
		return sheetsvc.NewMock(conf)
	}
	return sheetsvc.NewClient(conf)
}

func newSettingsProvider(svc *settings.Service) evaluation.SettingsProvider {
	return svc
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	gate *session.Gate,
	usrSvc *user.Service,
	evalSvc *evaluation.Service,
	settingsSvc *settings.Service,
	validate *validator.Validate,
	translator ut.Translator,
) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Gate:        gate,
		UserSvc:     usrSvc,
		EvalSvc:     evalSvc,
		SettingsSvc: settingsSvc,
		Validate:    validate,
		Translator:  translator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newSessionStore))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newCaller))
	must(c.Provide(
		sheetsvc.NewAPI,
		dig.As(new(session.Authenticator), new(user.Repository), new(settings.Repository), new(evaluation.Repository)),
	))
	must(c.Provide(newEmailService))
	must(c.Provide(session.NewGate))
	must(c.Provide(user.NewService))
	must(c.Provide(settings.NewService))
	must(c.Provide(newSettingsProvider))
	must(c.Provide(evaluation.NewService))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
