package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/provider"
)

// ErrNotConnected is returned by operations that need a connected session.
var ErrNotConnected = errors.New("wallet not connected")

// SessionState is a copy of the session's current view.
type SessionState struct {
	Connected bool
	// Valid is false after an account or network change until Refresh.
	Valid    bool
	Address  common.Address
	ChainID  int64
	Balances *protocol.Balances
}

// Session is one connection between the client and a wallet provider. It
// is created by Connect and invalidated by Disconnect or by account and
// network changes.
type Session struct {
	p      provider.Provider
	reader *protocol.Reader
	want   *chain.Chain
	log    *zap.Logger

	mu    sync.Mutex
	state SessionState
	unsub func()
}

// NewSession prepares a session for network want.
func NewSession(p provider.Provider, reader *protocol.Reader, want *chain.Chain, log *zap.Logger) *Session {
	return &Session{p: p, reader: reader, want: want, log: logging.OrNop(log)}
}

// Connect requests accounts, makes sure the wallet is on the right network
// and fetches balances.
func (s *Session) Connect(ctx context.Context) error {
	raw, err := s.p.Request(ctx, "eth_requestAccounts")
	if err != nil {
		return err
	}
	var accounts []string
	if err := provider.Decode(raw, &accounts); err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ErrNotConnected
	}
	if err := provider.EnsureNetwork(ctx, s.p, s.want); err != nil {
		return err
	}

	s.mu.Lock()
	if s.unsub == nil {
		s.unsub = s.p.Subscribe(s.HandleEvent)
	}
	s.state = SessionState{
		Connected: true,
		Valid:     true,
		Address:   common.HexToAddress(accounts[0]),
		ChainID:   s.want.ChainID,
	}
	s.mu.Unlock()

	s.log.Info("wallet connected", zap.String("address", accounts[0]), zap.Int64("chain_id", s.want.ChainID))
	return s.refreshBalances(ctx)
}

// Disconnect drops the session. It never talks to the wallet.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.state = SessionState{}
}

// HandleEvent applies a provider event. Account and network changes mark
// the session stale; an empty account list disconnects it.
func (s *Session) HandleEvent(ev provider.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Connected {
		return
	}
	switch ev.Kind {
	case provider.AccountsChanged:
		if len(ev.Accounts) == 0 {
			s.state = SessionState{}
			s.log.Info("wallet disconnected")
			return
		}
		addr := common.HexToAddress(ev.Accounts[0])
		if addr != s.state.Address {
			s.state.Address = addr
			s.state.Valid = false
			s.state.Balances = nil
		}
	case provider.ChainChanged:
		s.state.ChainID = ev.ChainID
		s.state.Valid = false
	case provider.Disconnected:
		s.state = SessionState{}
	}
}

// Refresh re-reads the chain and balances and revalidates the session.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	connected := s.state.Connected
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	id, err := provider.ChainID(ctx, s.p)
	if err != nil {
		return err
	}
	if id != s.want.ChainID {
		return fmt.Errorf("%w: on chain %d, want %d", provider.ErrWrongNetwork, id, s.want.ChainID)
	}
	s.mu.Lock()
	s.state.ChainID = id
	s.mu.Unlock()
	return s.refreshBalances(ctx)
}

func (s *Session) refreshBalances(ctx context.Context) error {
	addr := s.State().Address
	b, err := s.reader.Balances(ctx, addr)
	if err != nil {
		return fmt.Errorf("fetching balances: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Connected && s.state.Address == addr {
		s.state.Balances = b
		s.state.Valid = s.state.ChainID == s.want.ChainID
	}
	return nil
}

// State returns a copy of the session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the connected account, or ErrNotConnected.
func (s *Session) Address() (common.Address, error) {
	st := s.State()
	if !st.Connected {
		return common.Address{}, ErrNotConnected
	}
	return st.Address, nil
}
