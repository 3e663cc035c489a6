package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultAPI = "http://127.0.0.1:8480"
	apiEnv     = "SETTLECTL_API"
	tokenEnv   = "SETTLECTL_TOKEN"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: settlectl <command> [flags]

Commands:
  account <id>                     show an account's accrual record
  preview <id>                     evaluate a claim without paying it
  stats                            show distribution counters
  status                           show pause state and payout caps
  plan -amount N [-sell] [-actor]  compute a distribution without emitting it
  submit -kind K [flags]           apply an operation (claim, accrue, set_boost, distribute, none)
  holders -pool P [-file F]        show or replace a pool's holder snapshot
  pause <module> | resume <module> toggle claim, distribute, admin or payout
  address <id>                     print both encodings of an account id
  token [-sub S] [-scope S] [-ttl D]  mint an operator token from SETTLED_JWT_SECRET

Every API command accepts -api (default $SETTLECTL_API or ` + defaultAPI + `) and -token ($SETTLECTL_TOKEN).`)
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "account":
		return runGet(cmd, rest, stdout, func(fs *flag.FlagSet) (string, error) {
			id, err := positional(fs, "account id")
			return "/v1/accounts/" + id, err
		})
	case "preview":
		return runGet(cmd, rest, stdout, func(fs *flag.FlagSet) (string, error) {
			id, err := positional(fs, "account id")
			return "/v1/accounts/" + id + "/claim-preview", err
		})
	case "stats":
		return runGet(cmd, rest, stdout, func(*flag.FlagSet) (string, error) { return "/v1/stats", nil })
	case "status":
		return runGet(cmd, rest, stdout, func(*flag.FlagSet) (string, error) { return "/v1/status", nil })
	case "plan":
		return runPlan(rest, stdout)
	case "submit":
		return runSubmit(rest, stdout)
	case "holders":
		return runHolders(rest, stdout)
	case "pause", "resume":
		return runPause(cmd, rest, stdout)
	case "address":
		return runAddress(rest, stdout)
	case "token":
		return runToken(rest, stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		return errUsage
	}
}

// client talks to the settled operator API.
type client struct {
	base  string
	token string
	http  *http.Client
}

func apiFlags(fs *flag.FlagSet) func() *client {
	base := fs.String("api", envOr(apiEnv, defaultAPI), "settled API base URL")
	token := fs.String("token", os.Getenv(tokenEnv), "bearer token")
	timeout := fs.Duration("timeout", 15*time.Second, "request timeout")
	return func() *client {
		return &client{
			base:  strings.TrimRight(*base, "/"),
			token: strings.TrimSpace(*token),
			http:  &http.Client{Timeout: *timeout},
		}
	}
}

func (c *client) do(ctx context.Context, method, path string, body any, out io.Writer) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var pretty bytes.Buffer
		if json.Indent(&pretty, raw, "", "  ") == nil {
			raw = pretty.Bytes()
		}
		fmt.Fprintln(out, strings.TrimSpace(string(raw)))
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, res.Status)
	}
	return nil
}

func runGet(name string, args []string, stdout io.Writer, path func(*flag.FlagSet) (string, error)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	newClient := apiFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := path(fs)
	if err != nil {
		return err
	}
	return newClient().do(context.Background(), http.MethodGet, target, nil, stdout)
}

func positional(fs *flag.FlagSet, name string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one %s", fs.Name(), name)
	}
	return strings.TrimSpace(fs.Arg(0)), nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
