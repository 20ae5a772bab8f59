package app

import (
	"database/sql"

	"bankline/internal/bank"
	"bankline/internal/config"
	"bankline/internal/dialogue"
	"bankline/internal/events"
	"bankline/internal/nlu"
	"bankline/internal/repo"
)

// App wires the shared components over one database connection. The CLI and
// the HTTP server both build one of these.
type App struct {
	DB       *sql.DB
	Config   *config.Config
	Repo     repo.Repo
	Bank     bank.Ledger
	NLU      *nlu.Pipeline
	Dialogue *dialogue.Manager
}

// New assembles the pipeline, ledger and dialogue manager from config.
func New(conn *sql.DB, cfg *config.Config) (*App, error) {
	pipeline := nlu.New(cfg)
	ledger := bank.New(conn)
	mgr, err := dialogue.New(cfg, pipeline, ledger, events.Writer{DB: conn})
	if err != nil {
		return nil, err
	}
	return &App{
		DB:       conn,
		Config:   cfg,
		Repo:     repo.Repo{DB: conn},
		Bank:     ledger,
		NLU:      pipeline,
		Dialogue: mgr,
	}, nil
}
