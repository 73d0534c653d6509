package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/ballot/core"
	"github.com/axiomesh/ballot/metrics"
	"github.com/axiomesh/ballot/repo"
	"github.com/axiomesh/ballot/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// host runs contract calls one at a time against the repo's storage.
type host struct {
	repo     *repo.Repo
	logger   *logrus.Logger
	backend  store.Backend
	contract *core.Contract
	registry *prometheus.Registry
}

func openHost(ctx *cli.Context) (*host, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := repo.Load(p)
	if err != nil {
		return nil, err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(r.LogsPath()),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("log initialize: %w", err)
	}
	logger := log.New()
	logger.SetLevel(log.ParseLevel(r.Config.Log.Level))
	// stdout carries call results
	logger.SetOutput(os.Stderr)

	backend, err := store.Open(store.Options{
		Backend: r.Config.Storage.Backend,
		Path:    r.StoragePath(),
		Logger:  logger,
		Retries: r.Config.Storage.OpenRetries,
		Backoff: r.Config.Storage.OpenBackoff,
	})
	if err != nil {
		return nil, err
	}

	h := &host{
		repo:    r,
		logger:  logger,
		backend: backend,
	}

	observers := core.MultiObserver{&core.LogObserver{Logger: logger.WithField("module", "ballot")}}
	if r.Config.Metrics.Enable {
		h.registry = prometheus.NewRegistry()
		observers = append(observers, metrics.New(h.registry))
	}
	h.contract = core.New(core.Options{
		UniqueProposalIDs:   r.Config.Ledger.UniqueProposalIDs,
		EnforceVotingWindow: r.Config.Ledger.EnforceVotingWindow,
		Observer:            observers,
	})

	return h, nil
}

func (h *host) Close() error {
	if h.registry != nil {
		if err := metrics.WriteTextfile(h.repo.MetricsTextfilePath(), h.registry); err != nil {
			h.logger.Errorf("write metrics textfile error: %s", err)
		}
	}
	return h.backend.Close()
}

func (h *host) initialize(sender string) (*core.Response, error) {
	return h.contract.Instantiate(h.backend, core.Env{Time: time.Now().UTC()}, core.Info{Sender: sender})
}

func (h *host) execute(env core.Env, sender string, msg core.ExecuteMsg) (*core.Response, error) {
	return h.contract.Call(h.backend, env, core.Info{Sender: sender}, msg)
}

func (h *host) query(msg core.QueryMsg) (json.RawMessage, error) {
	var res []byte
	err := store.View(h.backend, func(kv store.KV) (err error) {
		res, err = h.contract.Query(kv, msg)
		return err
	})
	return res, err
}

// withHost opens the host for the duration of one command.
func withHost(action func(ctx *cli.Context, h *host) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		h, err := openHost(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := h.Close(); err != nil {
				h.logger.Errorf("close storage error: %s", err)
			}
		}()
		return action(ctx, h)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// callError attaches the error kind so scripts can tell failures apart.
func callError(err error) error {
	return fmt.Errorf("%s: %w", core.Kind(err), err)
}
