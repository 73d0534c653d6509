package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/axiomesh/ballot/repo"
	"github.com/urfave/cli/v2"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate default config and storage directories",
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check if the config file is valid",
			Action: check,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Rewrite config with env",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if repo.Exist(p) {
		fmt.Println("ballot repo already exists")
		return nil
	}

	for _, dir := range []string{p, filepath.Join(p, repo.StorageDirName), filepath.Join(p, repo.LogsDirName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	r := &repo.Repo{
		Config: repo.DefaultConfig(p),
	}
	if err := r.Flush(); err != nil {
		return err
	}

	fmt.Printf("initializing ballot at %s\n", p)
	return nil
}

func show(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	str, err := repo.MarshalConfig(r.Config)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func check(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if !repo.Exist(p) {
		fmt.Println("ballot repo not exist")
		return nil
	}

	if _, err := repo.Load(p); err != nil {
		return fmt.Errorf("config file format error, please check: %w", err)
	}
	return nil
}

func rewriteWithEnv(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	return r.Flush()
}

// loadRepo returns nil without error when the repo has not been generated.
func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !repo.Exist(p) {
		fmt.Println("ballot repo not exist")
		return nil, nil
	}
	return repo.Load(p)
}

func getRootPath(ctx *cli.Context) (string, error) {
	p := ctx.String("repo")

	var err error
	if p == "" {
		p, err = repo.LoadRepoRootFromEnv(p)
		if err != nil {
			return "", err
		}
	}
	return p, nil
}
