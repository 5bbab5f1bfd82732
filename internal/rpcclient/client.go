// Package rpcclient defines the five-call Bitcoin RPC collaborator (spec
// §6.2) and a btcd-backed implementation. The interface is deliberately
// narrow — Stage 2 and Stage 4 never need more than these five calls — so
// tests can substitute a fake without touching a real node, mirroring the
// teacher's internal/bitcoin.Client wrapper style (one struct around
// btcsuite/btcd/rpcclient, typed helper methods on top).
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcdrpc "github.com/btcsuite/btcd/rpcclient"

	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// Transaction is the decoded raw transaction shape Stage 2 needs: inputs,
// outputs, size, and coinbase-ness.
type Transaction struct {
	Txid        string
	BlockHash   string // empty when unconfirmed
	SizeBytes   int
	IsCoinbase  bool
	Inputs      []TxInput
	Outputs     []TxOutput
}

type TxInput struct {
	SourceTxid string
	SourceVout uint32
	Sequence   uint32
	ScriptSigHex string
}

type TxOutput struct {
	Vout       uint32
	ValueSats  uint64
	ScriptHex  string
	ScriptType string
	Address    string
}

// ErrKind discriminates the RPC error taxonomy (spec §6.2, §7).
type ErrKind int

const (
	ErrKindCallFailed ErrKind = iota
	ErrKindTimeout
	ErrKindTransport
)

// CallError is the typed error every Collaborator call returns on failure.
type CallError struct {
	Kind    ErrKind
	Method  string
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("rpc %s: %s", e.Method, e.Message)
}

func (e *CallError) Unwrap() error { return e.Cause }

// Is classifies e against the stage-level sentinel errors: timeouts and
// transport failures are transient, CallFailed is permanent.
func (e *CallError) Is(target error) bool {
	switch target {
	case models.ErrTransientRPC:
		return e.Kind == ErrKindTimeout || e.Kind == ErrKindTransport
	case models.ErrPermanentRPC:
		return e.Kind == ErrKindCallFailed
	}
	return false
}

// Collaborator is the five-call contract (spec §6.2). GetTransactionVerbose
// returns the raw JSON-RPC verbose result so callers can pull
// protocol-specific fields (vin/vout addresses) without the package
// growing a bespoke type per caller.
type Collaborator interface {
	GetTransaction(ctx context.Context, txid string) (Transaction, error)
	GetTransactionVerbose(ctx context.Context, txid string) (*btcjson.TxRawResult, error)
	GetBlock(ctx context.Context, hash string) (models.Block, error)
	GetBlockHash(ctx context.Context, height uint32) (string, error)
	TestConnection(ctx context.Context) error
}

// RetryPolicy configures the bounded exponential backoff applied around
// every call (spec §5).
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	CallTimeout       time.Duration
}

// DefaultRetryPolicy mirrors the spec's suggested defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        5,
		InitialBackoff:    200 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		CallTimeout:       30 * time.Second,
	}
}

// Client is the btcd-backed Collaborator implementation.
type Client struct {
	rpc    *btcdrpc.Client
	policy RetryPolicy
}

// Config is the connection configuration for the underlying node.
type Config struct {
	Host string
	User string
	Pass string
}

// New dials the Bitcoin Core node. Mirrors the teacher's NewClient
// (HTTPPostMode, DisableTLS for a local node) but skips wallet
// initialisation — this system only ever reads chain data, never signs.
func New(cfg Config, policy RetryPolicy) (*Client, error) {
	connCfg := &btcdrpc.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	rpc, err := btcdrpc.New(connCfg, nil)
	if err != nil {
		return nil, &CallError{Kind: ErrKindTransport, Method: "connect", Message: err.Error(), Cause: err}
	}
	return &Client{rpc: rpc, policy: policy}, nil
}

// Shutdown releases the underlying connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// withRetry runs fn with the configured bounded exponential backoff.
// Permanent (CallFailed) errors are not retried; transient ones are, up to
// MaxRetries.
func (c *Client) withRetry(ctx context.Context, method string, fn func() error) error {
	backoff := c.policy.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return &CallError{Kind: ErrKindTransport, Method: method, Message: "cancelled", Cause: models.ErrCancelled}
		}
		err := fn()
		if err == nil {
			return nil
		}
		var ce *CallError
		if errors.As(err, &ce) && ce.Kind == ErrKindCallFailed {
			return err
		}
		lastErr = err
		if attempt == c.policy.MaxRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &CallError{Kind: ErrKindTransport, Method: method, Message: "cancelled", Cause: models.ErrCancelled}
		}
		backoff = time.Duration(float64(backoff) * c.policy.BackoffMultiplier)
		if backoff > c.policy.MaxBackoff {
			backoff = c.policy.MaxBackoff
		}
	}
	return lastErr
}

// GetTransaction fetches a transaction's summary shape used by Stage 2.
func (c *Client) GetTransaction(ctx context.Context, txid string) (Transaction, error) {
	var result Transaction
	err := c.withRetry(ctx, "getrawtransaction", func() error {
		verbose, err := c.getTransactionVerboseOnce(txid)
		if err != nil {
			return err
		}
		result = verboseToTransaction(verbose)
		return nil
	})
	return result, err
}

// GetTransactionVerbose returns the raw verbose JSON-RPC result.
func (c *Client) GetTransactionVerbose(ctx context.Context, txid string) (*btcjson.TxRawResult, error) {
	var result *btcjson.TxRawResult
	err := c.withRetry(ctx, "getrawtransaction", func() error {
		v, err := c.getTransactionVerboseOnce(txid)
		result = v
		return err
	})
	return result, err
}

func (c *Client) getTransactionVerboseOnce(txid string) (*btcjson.TxRawResult, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return nil, &CallError{Kind: ErrKindCallFailed, Method: "getrawtransaction", Message: "invalid txid: " + err.Error(), Cause: err}
	}
	v, err := c.rpc.GetRawTransactionVerbose(hash)
	if err != nil {
		return nil, classifyErr("getrawtransaction", err)
	}
	return v, nil
}

// GetBlock fetches a block header by hash.
func (c *Client) GetBlock(ctx context.Context, hash string) (models.Block, error) {
	var result models.Block
	err := c.withRetry(ctx, "getblock", func() error {
		h, err := chainhash.NewHashFromStr(hash)
		if err != nil {
			return &CallError{Kind: ErrKindCallFailed, Method: "getblock", Message: "invalid hash: " + err.Error(), Cause: err}
		}
		v, err := c.rpc.GetBlockVerbose(h)
		if err != nil {
			return classifyErr("getblock", err)
		}
		result = models.Block{
			Height:       uint32(v.Height),
			BlockHash:    v.Hash,
			Timestamp:    v.Time,
			HasHash:      true,
			HasTimestamp: true,
		}
		return nil
	})
	return result, err
}

// GetBlockHash resolves a height to its block hash.
func (c *Client) GetBlockHash(ctx context.Context, height uint32) (string, error) {
	var result string
	err := c.withRetry(ctx, "getblockhash", func() error {
		h, err := c.rpc.GetBlockHash(int64(height))
		if err != nil {
			return classifyErr("getblockhash", err)
		}
		result = h.String()
		return nil
	})
	return result, err
}

// TestConnection verifies the node is reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.withRetry(ctx, "getblockcount", func() error {
		_, err := c.rpc.GetBlockCount()
		if err != nil {
			return classifyErr("getblockcount", err)
		}
		return nil
	})
}

func classifyErr(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: ErrKindTimeout, Method: method, Message: err.Error(), Cause: err}
	}
	// btcd rpcclient surfaces node-side JSON-RPC errors as *btcjson.RPCError;
	// anything else (connection refused, EOF, etc.) is a transport failure.
	if _, ok := err.(*btcjson.RPCError); ok {
		return &CallError{Kind: ErrKindCallFailed, Method: method, Message: err.Error(), Cause: err}
	}
	return &CallError{Kind: ErrKindTransport, Method: method, Message: err.Error(), Cause: err}
}

func verboseToTransaction(v *btcjson.TxRawResult) Transaction {
	t := Transaction{
		Txid:      v.Txid,
		BlockHash: v.BlockHash,
		SizeBytes: v.Size,
	}
	for i, in := range v.Vin {
		if in.IsCoinBase() {
			t.IsCoinbase = true
			continue
		}
		t.Inputs = append(t.Inputs, TxInput{
			SourceTxid:   in.Txid,
			SourceVout:   in.Vout,
			Sequence:     in.Sequence,
			ScriptSigHex: scriptSigHex(in),
		})
		_ = i
	}
	for _, out := range v.Vout {
		addr := ""
		if len(out.ScriptPubKey.Addresses) > 0 {
			addr = out.ScriptPubKey.Addresses[0]
		} else if out.ScriptPubKey.Address != "" {
			addr = out.ScriptPubKey.Address
		}
		t.Outputs = append(t.Outputs, TxOutput{
			Vout:       uint32(out.N),
			ValueSats:  uint64(out.Value * 1e8),
			ScriptHex:  out.ScriptPubKey.Hex,
			ScriptType: out.ScriptPubKey.Type,
			Address:    addr,
		})
	}
	return t
}

func scriptSigHex(in btcjson.Vin) string {
	if in.ScriptSig == nil {
		return ""
	}
	return in.ScriptSig.Hex
}
