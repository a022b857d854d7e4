package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/user"
	logsvc "github.com/trezcool/danhgia/services/logger"
	sheetsvc "github.com/trezcool/danhgia/services/sheets"
	"github.com/trezcool/danhgia/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up API
	var caller sheetsvc.Caller
	if conf.Remote.MockMode() {
		logger.Warn("evaluation API URL not set: using the mock API")
		caller = sheetsvc.NewMock(conf)
	} else {
		caller = sheetsvc.NewClient(conf)
	}
	api := sheetsvc.NewAPI(caller, validate)

	cli := commandLine{
		auth:   api,
		usrSvc: user.NewService(api, validate, translator),
	}

	// set up DB
	if conf.Database.Enabled() {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(err.Error(), err)
		}
		cli.db = db
	}

	// start CLI
	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		code = 1
	}
	if cli.db != nil {
		_ = cli.db.Close()
	}
	logger.Close()
	os.Exit(code)
}
