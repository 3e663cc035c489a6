package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"drippy/core/engine"
	"drippy/core/types"
)

func parseAmount(raw string) (uint64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseUint(cleaned, 10, 64)
}

func parseOptionalAccount(raw string) (types.AccountID, error) {
	if strings.TrimSpace(raw) == "" {
		return types.AccountID{}, nil
	}
	return types.ParseAccountID(raw)
}

func runPlan(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	newClient := apiFlags(fs)
	amount := fs.String("amount", "", "gross amount in drops")
	sell := fs.Bool("sell", false, "treat the transfer as sell side")
	actor := fs.String("actor", "", "sending account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := parseAmount(*amount)
	if err != nil || value == 0 {
		return fmt.Errorf("plan: -amount must be a positive integer")
	}
	id, err := parseOptionalAccount(*actor)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	body := map[string]any{
		"amount":   strconv.FormatUint(value, 10),
		"sellSide": *sell,
		"actor":    id.Hex(),
	}
	return newClient().do(context.Background(), http.MethodPost, "/v1/plan", body, stdout)
}

func buildOperation(kind, actor, target, amount string, multiplier uint64, sell bool, reference string) (engine.Operation, error) {
	k, err := engine.ParseKind(kind)
	if err != nil {
		return engine.Operation{}, err
	}
	op := engine.Operation{Kind: k, IsSellSide: sell, Reference: strings.TrimSpace(reference)}
	if op.Actor, err = parseOptionalAccount(actor); err != nil {
		return op, fmt.Errorf("actor: %w", err)
	}
	if op.Target, err = parseOptionalAccount(target); err != nil {
		return op, fmt.Errorf("target: %w", err)
	}
	if op.Amount, err = parseAmount(amount); err != nil {
		return op, fmt.Errorf("amount: %w", err)
	}
	if multiplier > math.MaxUint32 {
		return op, fmt.Errorf("multiplier out of range")
	}
	op.Multiplier = uint32(multiplier)
	switch k {
	case engine.KindClaim:
		if op.Actor.IsZero() {
			return op, fmt.Errorf("claim requires -actor")
		}
	case engine.KindAccrue, engine.KindSetBoost:
		if op.Actor.IsZero() || op.Target.IsZero() {
			return op, fmt.Errorf("%s requires -actor and -target", k)
		}
	case engine.KindDistribute:
		if op.Amount == 0 {
			return op, fmt.Errorf("distribute requires -amount")
		}
	}
	return op, nil
}

func runSubmit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	newClient := apiFlags(fs)
	kind := fs.String("kind", "", "operation kind")
	actor := fs.String("actor", "", "claimant, sender or admin caller")
	target := fs.String("target", "", "target account for accrue and set_boost")
	amount := fs.String("amount", "", "amount in drops")
	multiplier := fs.Uint64("multiplier", 0, "boost multiplier in percent")
	sell := fs.Bool("sell", false, "distribution is sell side")
	reference := fs.String("reference", "", "opaque reference recorded with the payout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	op, err := buildOperation(*kind, *actor, *target, *amount, *multiplier, *sell, *reference)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return newClient().do(context.Background(), http.MethodPost, "/v1/operations", op, stdout)
}

type holderEntry struct {
	Account string `json:"account"`
	Units   string `json:"units"`
}

func runHolders(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("holders", flag.ContinueOnError)
	newClient := apiFlags(fs)
	pool := fs.String("pool", "", "pool id")
	file := fs.String("file", "", "JSON array of {account, units} replacing the snapshot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*pool) == "" {
		return fmt.Errorf("holders: -pool required")
	}
	path := "/v1/pools/" + strings.TrimSpace(*pool) + "/holders"
	if *file == "" {
		return newClient().do(context.Background(), http.MethodGet, path, nil, stdout)
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var entries []holderEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("holders: decode %s: %w", *file, err)
	}
	for i, entry := range entries {
		id, err := types.ParseAccountID(entry.Account)
		if err != nil {
			return fmt.Errorf("holders: entry %d: %w", i, err)
		}
		if _, err := parseAmount(entry.Units); err != nil {
			return fmt.Errorf("holders: entry %d units: %w", i, err)
		}
		entries[i].Account = id.Hex()
		entries[i].Units = strings.ReplaceAll(strings.TrimSpace(entry.Units), "_", "")
	}
	if err := newClient().do(context.Background(), http.MethodPut, path, entries, stdout); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "replaced %d holders in pool %s\n", len(entries), *pool)
	return nil
}

func runPause(cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	newClient := apiFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	module, err := positional(fs, "module")
	if err != nil {
		return err
	}
	if err := newClient().do(context.Background(), http.MethodPost, "/v1/"+cmd+"/"+module, nil, stdout); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s\n", cmd, module)
	return nil
}

func runAddress(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := positional(fs, "account id")
	if err != nil {
		return err
	}
	id, err := types.ParseAccountID(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "classic: %s\nhex:     %s\n", id.String(), id.Hex())
	return nil
}

func runToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("sub", "operator", "token subject")
	scope := fs.String("scope", "settle:read", "space separated scopes")
	issuer := fs.String("iss", "", "token issuer")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	secretEnv := fs.String("secret-env", "SETTLED_JWT_SECRET", "environment variable holding the HMAC secret")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret := strings.TrimSpace(os.Getenv(*secretEnv))
	if secret == "" {
		return fmt.Errorf("token: %s is empty", *secretEnv)
	}
	if *ttl <= 0 {
		return fmt.Errorf("token: -ttl must be positive")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   *subject,
		"scope": *scope,
		"iat":   now.Unix(),
		"exp":   now.Add(*ttl).Unix(),
	}
	if *issuer != "" {
		claims["iss"] = *issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, signed)
	return nil
}
