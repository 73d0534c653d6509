package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/axiomesh/ballot/core"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var senderFlag = &cli.StringFlag{
	Name:     "sender",
	Usage:    "Caller identity",
	Required: true,
}

var initCMD = &cli.Command{
	Name:  "init",
	Usage: "Record the sender as ledger owner",
	Flags: []cli.Flag{senderFlag},
	Action: withHost(func(ctx *cli.Context, h *host) error {
		res, err := h.initialize(ctx.String("sender"))
		if err != nil {
			return callError(err)
		}
		return printJSON(res)
	}),
}

var execCMD = &cli.Command{
	Name:  "exec",
	Usage: "Run a mutating ledger operation",
	Subcommands: []*cli.Command{
		{
			Name:  "submit-proposal",
			Usage: "Append a new proposal (owner only)",
			Flags: []cli.Flag{
				senderFlag,
				&cli.StringFlag{Name: "id", Usage: "Proposal id", Required: true},
				&cli.UintFlag{Name: "choices", Usage: "Number of choices", Required: true},
				&cli.TimestampFlag{Name: "start", Usage: "Voting start (RFC3339)", Layout: time.RFC3339},
				&cli.TimestampFlag{Name: "end", Usage: "Voting end (RFC3339)", Layout: time.RFC3339},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				choices := ctx.Uint("choices")
				if choices > 255 {
					return fmt.Errorf("choices must not exceed 255, got %d", choices)
				}
				msg := &core.SubmitProposalMsg{
					ID:          ctx.String("id"),
					ChoiceCount: uint8(choices),
				}
				if t := ctx.Timestamp("start"); t != nil {
					msg.StartTime = *t
				}
				if t := ctx.Timestamp("end"); t != nil {
					msg.EndTime = *t
				}
				return runExecute(h, now(), ctx.String("sender"), core.ExecuteMsg{SubmitProposal: msg})
			}),
		},
		{
			Name:  "register-voter",
			Usage: "Register a voter with its power (owner only)",
			Flags: []cli.Flag{
				senderFlag,
				&cli.StringFlag{Name: "proposal", Usage: "Proposal id", Required: true},
				&cli.StringFlag{Name: "external", Usage: "External address", Required: true},
				&cli.StringFlag{Name: "native", Usage: "Native address", Required: true},
				&cli.StringFlag{Name: "power", Usage: "Voting power as decimal", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runExecute(h, now(), ctx.String("sender"), core.ExecuteMsg{RegisterVoter: &core.RegisterVoterMsg{
					ProposalID:      ctx.String("proposal"),
					ExternalAddress: ctx.String("external"),
					NativeAddress:   ctx.String("native"),
					Power:           ctx.String("power"),
				}})
			}),
		},
		{
			Name:  "cast-vote",
			Usage: "Cast a registered voter's vote",
			Flags: []cli.Flag{
				senderFlag,
				&cli.StringFlag{Name: "proposal", Usage: "Proposal id", Required: true},
				&cli.StringFlag{Name: "external", Usage: "External address", Required: true},
				&cli.StringFlag{Name: "native", Usage: "Native address"},
				&cli.UintFlag{Name: "choice", Usage: "Chosen option", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				choice := ctx.Uint("choice")
				if choice > 255 {
					return callError(errors.Wrapf(core.ErrInvalidChoice, "choice %d", choice))
				}
				return runExecute(h, now(), ctx.String("sender"), core.ExecuteMsg{CastVote: &core.CastVoteMsg{
					ProposalID:      ctx.String("proposal"),
					ExternalAddress: ctx.String("external"),
					NativeAddress:   ctx.String("native"),
					Choice:          uint8(choice),
				}})
			}),
		},
		{
			Name:  "raw",
			Usage: "Run a JSON execute message",
			Flags: []cli.Flag{
				senderFlag,
				&cli.StringFlag{Name: "msg", Usage: "Execute message as JSON", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				var msg core.ExecuteMsg
				if err := json.Unmarshal([]byte(ctx.String("msg")), &msg); err != nil {
					return callError(errors.Wrap(core.ErrInvalidMessage, err.Error()))
				}
				return runExecute(h, now(), ctx.String("sender"), msg)
			}),
		},
		{
			Name:  "batch",
			Usage: "Run JSON-lines calls from a file, one committed call per line",
			Flags: []cli.Flag{
				&cli.PathFlag{Name: "file", Usage: "Calls file, '-' for stdin", Required: true},
				&cli.BoolFlag{Name: "continue", Usage: "Keep going after a rejected call"},
			},
			Action: withHost(runBatch),
		},
	},
}

// batchCall is one line of a batch file.
type batchCall struct {
	Sender string          `json:"sender"`
	Time   *time.Time      `json:"time,omitempty"`
	Msg    core.ExecuteMsg `json:"msg"`
}

type batchResult struct {
	Line     int            `json:"line"`
	Kind     string         `json:"kind"`
	Error    string         `json:"error,omitempty"`
	Response *core.Response `json:"response,omitempty"`
}

func runBatch(ctx *cli.Context, h *host) error {
	in := os.Stdin
	if path := ctx.Path("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var results []batchResult
	var failed int
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var call batchCall
		var res *core.Response
		err := json.Unmarshal(scanner.Bytes(), &call)
		if err != nil {
			err = errors.Wrap(core.ErrInvalidMessage, err.Error())
		} else {
			env := now()
			if call.Time != nil {
				env.Time = call.Time.UTC()
			}
			res, err = h.execute(env, call.Sender, call.Msg)
		}

		r := batchResult{Line: line, Kind: core.Kind(err), Response: res}
		if err != nil {
			failed++
			r.Error = err.Error()
		}
		results = append(results, r)
		if err != nil && !ctx.Bool("continue") {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if err := printJSON(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d calls rejected", failed, len(results))
	}
	return nil
}

func runExecute(h *host, env core.Env, sender string, msg core.ExecuteMsg) error {
	res, err := h.execute(env, sender, msg)
	if err != nil {
		return callError(err)
	}
	return printJSON(res)
}

func now() core.Env {
	return core.Env{Time: time.Now().UTC()}
}

var proposalFlag = &cli.StringFlag{
	Name:  "proposal",
	Usage: "Proposal id, the current proposal when empty",
}

var queryCMD = &cli.Command{
	Name:  "query",
	Usage: "Read ledger state",
	Subcommands: []*cli.Command{
		{
			Name:  "current-proposal",
			Usage: "Show the most recently submitted proposal",
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{CurrentProposal: &core.Empty{}})
			}),
		},
		{
			Name:  "proposal",
			Usage: "Show the proposal with the given id",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "id", Usage: "Proposal id", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{ProposalByID: &core.ProposalByIDQuery{ProposalID: ctx.String("id")}})
			}),
		},
		{
			Name:  "proposal-count",
			Usage: "Show how many proposals were submitted",
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{ProposalCount: &core.Empty{}})
			}),
		},
		{
			Name:  "voter-count",
			Usage: "Show how many voters a proposal has",
			Flags: []cli.Flag{proposalFlag},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{VoterCount: &core.VoterCountQuery{ProposalID: ctx.String("proposal")}})
			}),
		},
		{
			Name:  "who-won",
			Usage: "Show the leading choice of a proposal",
			Flags: []cli.Flag{proposalFlag},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{WhoWon: &core.WhoWonQuery{ProposalID: ctx.String("proposal")}})
			}),
		},
		{
			Name:  "owner",
			Usage: "Show the ledger owner",
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{Owner: &core.Empty{}})
			}),
		},
		{
			Name:  "voter",
			Usage: "Show a registered voter",
			Flags: []cli.Flag{
				proposalFlag,
				&cli.StringFlag{Name: "external", Usage: "External address", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				return runQuery(h, core.QueryMsg{Voter: &core.VoterQuery{
					ProposalID:      ctx.String("proposal"),
					ExternalAddress: ctx.String("external"),
				}})
			}),
		},
		{
			Name:  "raw",
			Usage: "Run a JSON query message",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "msg", Usage: "Query message as JSON", Required: true},
			},
			Action: withHost(func(ctx *cli.Context, h *host) error {
				var msg core.QueryMsg
				if err := json.Unmarshal([]byte(ctx.String("msg")), &msg); err != nil {
					return callError(errors.Wrap(core.ErrInvalidMessage, err.Error()))
				}
				return runQuery(h, msg)
			}),
		},
	},
}

func runQuery(h *host, msg core.QueryMsg) error {
	res, err := h.query(msg)
	if err != nil {
		return callError(err)
	}
	fmt.Println(string(res))
	return nil
}
