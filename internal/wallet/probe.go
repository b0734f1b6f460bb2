package wallet

import (
	"context"
	"fmt"
)

// Probe looks for a Puzzle session authorized earlier: one immediate check,
// then the retry schedule, then a final check after a delay. A found session
// becomes the active one unless a wallet connected in the meantime.
func (b *Bridge) Probe(ctx context.Context) bool {
	if b.Session().Connected() {
		return true
	}
	w, err := b.factory(Puzzle, b.env())
	if err != nil {
		b.AddLog("Probe error", err.Error())
		return false
	}
	prober, ok := w.(SessionProber)
	if !ok {
		return false
	}

	check := func() bool {
		var addr string
		err := guard(func() error {
			var err error
			addr, err = prober.ExistingSession(ctx)
			return err
		})
		if err != nil || addr == "" {
			return false
		}
		b.adopt(w, addr)
		return true
	}

	if check() {
		return true
	}
	found, _ := retryThenSettle(ctx, b.retry, func(attempt int) error {
		b.AddLog(fmt.Sprintf("Connection attempt %d/%d", attempt, b.retry.Attempts), nil)
		if check() {
			return nil
		}
		return errNoSession
	}, func() bool {
		b.AddLog("Checking one last time for an existing connection", nil)
		return check()
	})
	if !found {
		b.AddLog("No existing connection found", nil)
	}
	return found
}

func (b *Bridge) adopt(w Wallet, addr string) {
	b.mu.Lock()
	if b.status == StatusConnected {
		b.mu.Unlock()
		return
	}
	b.status = StatusConnected
	b.address = addr
	b.name = w.Name()
	b.handle = w
	b.mu.Unlock()
	b.AddLog("Connection detected!", addr)
}
