package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/thrasher-corp/barsim/backtester/common"
	"github.com/thrasher-corp/barsim/backtester/config"
	"github.com/thrasher-corp/barsim/backtester/data"
	"github.com/thrasher-corp/barsim/backtester/data/kline/csv"
	dbdata "github.com/thrasher-corp/barsim/backtester/data/kline/database"
	"github.com/thrasher-corp/barsim/backtester/engine"
	"github.com/thrasher-corp/barsim/backtester/strategies"
	"github.com/thrasher-corp/barsim/backtester/timeframe"
	"github.com/thrasher-corp/barsim/backtester/writer"
	gctcommon "github.com/thrasher-corp/barsim/common"
	"github.com/thrasher-corp/barsim/database"
	"github.com/thrasher-corp/barsim/database/drivers/postgres"
	sqlite "github.com/thrasher-corp/barsim/database/drivers/sqlite3"
	"github.com/thrasher-corp/barsim/log"
	"github.com/thrasher-corp/barsim/signaler"
)

var (
	errNoConfig       = errors.New("a config path is required")
	errNoDatabase     = errors.New("config has no enabled database")
	errInvalidDate    = errors.New("invalid date")
	errNoInstrument   = errors.New("an instrument is required")
	errNoBars         = errors.New("csv file holds no bars")
	defaultConfigPath = filepath.Join("config", "examples", "smacross-bracket.json")

	migrationDirFlag = &cli.StringFlag{
		Name:  "migrationdir",
		Value: database.MigrationDir,
		Usage: "the goose migration folder",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "backtester"
	app.Usage = "event driven bar backtester"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "configpath",
			Aliases: []string{"c"},
			Value:   defaultConfigPath,
			Usage:   "the config containing strategy params, feeds and broker settings",
		},
		&cli.StringFlag{
			Name:  "datapath",
			Usage: "overrides the directory holding sqlite databases",
		},
		&cli.StringFlag{
			Name:  "fromdate",
			Usage: "overrides the config start date, eg 2023-01-01",
		},
		&cli.StringFlag{
			Name:  "todate",
			Usage: "overrides the config end date, eg 2023-12-31",
		},
		&cli.StringFlag{
			Name:  "cash",
			Usage: "overrides the initial cash",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "overrides the strategy name",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "directory to write order, trade and value csv files to",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enables debug logging",
		},
	}
	app.Action = runBacktest
	app.Commands = []*cli.Command{
		{
			Name:   "strategies",
			Usage:  "lists the available strategies",
			Action: listStrategies,
		},
		{
			Name:      "seed",
			Usage:     "imports a csv bar file into the configured database",
			ArgsUsage: "<csv file>",
			Flags: []cli.Flag{
				migrationDirFlag,
				&cli.StringFlag{
					Name:     "instrument",
					Usage:    "the instrument the bars belong to",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "unit",
					Value: "days",
					Usage: "the bar interval unit",
				},
				&cli.IntFlag{
					Name:  "compression",
					Value: 1,
					Usage: "the bar interval compression",
				},
				&cli.StringFlag{
					Name:  "dateformat",
					Value: time.DateOnly,
					Usage: "the csv date layout",
				},
				&cli.BoolFlag{
					Name:  "header",
					Value: true,
					Usage: "skips the first csv row",
				},
			},
			Action: seedDatabase,
		},
		{
			Name:      "migrate",
			Usage:     "runs a goose migration command against the configured database",
			ArgsUsage: "<up|up-by-one|down|redo|reset|status|version> [args]",
			Flags:     []cli.Flag{migrationDirFlag},
			Action:    migrateDatabase,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-signaler.WaitForInterrupt()
		log.Warnln(log.Global, "interrupt received, stopping backtest")
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("configpath")
	if path == "" {
		return nil, errNoConfig
	}
	cfg, err := config.ReadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if v := c.String("datapath"); v != "" {
		cfg.DataSettings.DataPath = v
	}
	if v := c.String("fromdate"); v != "" {
		if cfg.DataSettings.StartDate, err = parseDate(v); err != nil {
			return nil, err
		}
	}
	if v := c.String("todate"); v != "" {
		if cfg.DataSettings.EndDate, err = parseDate(v); err != nil {
			return nil, err
		}
	}
	if v := c.String("cash"); v != "" {
		if cfg.BrokerSettings.InitialCash, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid cash %q: %w", v, err)
		}
	}
	if v := c.String("strategy"); v != "" {
		cfg.StrategySettings.Name = v
		cfg.StrategySettings.CustomSettings = nil
	}
	if v := c.String("output"); v != "" {
		cfg.OutputSettings.Dir = v
	}
	return cfg, setupLogger(cfg, c.Bool("verbose"))
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, s)
}

func setupLogger(cfg *config.Config, verbose bool) error {
	logCfg := log.GenDefaultSettings()
	if cfg.Logging != nil {
		defaults := logCfg.AdvancedSettings
		logCfg = *cfg.Logging
		if logCfg.AdvancedSettings.Spacer == "" {
			logCfg.AdvancedSettings = defaults
		}
		if logCfg.Output == "" {
			logCfg.Output = "console"
		}
	}
	if verbose && !strings.Contains(logCfg.Level, "DEBUG") {
		logCfg.Level += "|DEBUG"
	}
	return log.SetupGlobalLogger(&logCfg)
}

func connectDatabase(cfg *config.Config) (*database.Instance, error) {
	dbCfg := cfg.DataSettings.Database
	if dbCfg == nil || !dbCfg.Enabled {
		return nil, errNoDatabase
	}
	if err := dbCfg.Validate(); err != nil {
		return nil, err
	}
	switch dbCfg.Driver {
	case database.DBSQLite3:
		return sqlite.Connect(dbCfg, cfg.DataSettings.DataPath)
	case database.DBPostgreSQL:
		return postgres.Connect(dbCfg)
	}
	return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedDriver, dbCfg.Driver)
}

func closeDatabase(db *database.Instance) {
	if err := db.CloseConnection(); err != nil {
		log.Errorln(common.Logger(common.Setup), err)
	}
}

func runBacktest(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	cfg.PrintSetting()

	var db *database.Instance
	if cfg.DataSettings.Database != nil && cfg.DataSettings.Database.Enabled {
		if db, err = connectDatabase(cfg); err != nil {
			return err
		}
		defer closeDatabase(db)
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	e, err := engine.New(engineCfg)
	if err != nil {
		return err
	}
	for i := range cfg.Feeds {
		f, err := cfg.BuildFeed(c.Context, &cfg.Feeds[i], db)
		if err != nil {
			return err
		}
		if err = e.AddFeed(f); err != nil {
			return err
		}
		if cfg.Feeds[i].Commission != nil {
			scheme, err := cfg.Feeds[i].Commission.Scheme()
			if err != nil {
				return err
			}
			if err = e.Broker().SetCommission(f.Instrument, scheme); err != nil {
				return err
			}
		}
	}

	s, err := strategies.LoadStrategyByName(cfg.StrategySettings.Name)
	if err != nil {
		return err
	}
	if len(cfg.StrategySettings.CustomSettings) > 0 {
		if err = s.SetCustomSettings(cfg.StrategySettings.CustomSettings); err != nil {
			return err
		}
	}
	s.SetFeed(cfg.StrategySettings.Feed)
	if err = e.SetStrategy(s); err != nil {
		return err
	}

	timers, err := cfg.BuildTimers()
	if err != nil {
		return err
	}
	for i := range timers {
		if _, err = e.AddTimer(timers[i]); err != nil {
			return err
		}
	}

	if cfg.OutputSettings.Dir != "" {
		w, err := writer.SetupWriter(cfg.OutputSettings.Dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Errorln(common.Logger(common.Writer), err)
			}
		}()
		if err = e.AddListener(w); err != nil {
			return err
		}
	}

	start := time.Now()
	if err = e.Run(c.Context); err != nil {
		return err
	}
	log.Infof(common.Logger(common.Setup), "backtest finished in %v", time.Since(start).Round(time.Millisecond))

	stats := e.Statistics()
	if err = stats.CalculateAllResults(); err != nil {
		return err
	}
	stats.PrintTotalResults()
	return nil
}

func listStrategies(_ *cli.Context) error {
	for _, s := range strategies.GetStrategies() {
		fmt.Printf("%s\n\t%s\n", s.Name(), s.Description())
	}
	return nil
}

func seedDatabase(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	instrument := c.String("instrument")
	if instrument == "" {
		return errNoInstrument
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	unit, err := timeframe.ParseUnit(c.String("unit"))
	if err != nil {
		return err
	}
	interval, err := timeframe.New(unit, c.Int("compression"))
	if err != nil {
		return err
	}
	db, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)
	if err = db.Migrate("up", c.String("migrationdir"), ""); err != nil {
		return err
	}

	src, err := csv.LoadData(c.Args().First(), csv.Config{
		DateFormat: c.String("dateformat"),
		HasHeader:  c.Bool("header"),
	})
	if err != nil {
		return err
	}
	defer src.Close()
	var bars []data.Bar
	for {
		b, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err = b.Validate(); err != nil {
			return err
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return errNoBars
	}
	inserted, err := dbdata.SaveData(c.Context, db, instrument, interval, bars)
	if err != nil {
		return err
	}
	log.Infof(common.Logger(common.Setup), "inserted %d %s %s bars from %s to %s", inserted, instrument, interval,
		bars[0].Time.Format(gctcommon.SimpleTimeFormat), bars[len(bars)-1].Time.Format(gctcommon.SimpleTimeFormat))
	return nil
}

func migrateDatabase(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.ShowSubcommandHelp(c)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)
	return db.Migrate(c.Args().First(), c.String("migrationdir"), strings.Join(c.Args().Tail(), " "))
}
