package wallet

import (
	"context"
)

// Transfer is one outbound payment in ledger terms. Amount is a decimal
// string of minor units; Issuer is empty for the native asset.
type Transfer struct {
	Recipient string `json:"recipient"`
	Currency  string `json:"currency"`
	Issuer    string `json:"issuer,omitempty"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo,omitempty"`
}

// Wallet submits a batch of transfers. Implementations must either schedule
// every transfer or none, returning one transaction hash per transfer.
type Wallet interface {
	Submit(ctx context.Context, batch []Transfer) ([]string, error)
}

// FuncWallet adapts a callback to the Wallet interface.
type FuncWallet struct {
	SubmitFunc func(ctx context.Context, batch []Transfer) ([]string, error)
}

// Submit delegates to the configured callback. A nil callback accepts the
// batch without hashes.
func (w FuncWallet) Submit(ctx context.Context, batch []Transfer) ([]string, error) {
	if w.SubmitFunc == nil {
		return make([]string, len(batch)), nil
	}
	return w.SubmitFunc(ctx, batch)
}
