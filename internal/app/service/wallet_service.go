package service

import (
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
)

var errInvalidAddress = errors.New("not a valid EVM address")

// walletServiceImpl implements port.WalletService. The wallet is purely cosmetic:
// it never changes the watchlist or holdings.
type walletServiceImpl struct {
	storage   port.PortfolioStorage
	portfolio port.PortfolioService
	logger    port.Logger

	mu      sync.RWMutex
	address string
}

// NewWalletService restores a previously connected wallet from storage.
func NewWalletService(storage port.PortfolioStorage, portfolio port.PortfolioService, l port.Logger) port.WalletService {
	s := &walletServiceImpl{storage: storage, portfolio: portfolio, logger: l}
	if stored, ok := storage.LoadWallet(); ok {
		if common.IsHexAddress(stored) {
			s.address = common.HexToAddress(stored).Hex()
			l.Debug("Restored wallet connection", "address", ShortAddress(s.address))
		} else {
			l.Warn("Ignoring invalid stored wallet address", "address", stored)
		}
	}
	return s
}

// Connect validates and remembers an EVM address in its checksummed form.
func (s *walletServiceImpl) Connect(address string) (entity.WalletStatus, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return s.Status(), &entity.InputError{Field: "address", Input: address, Err: errInvalidAddress}
	}
	checksummed := common.HexToAddress(address).Hex()

	s.mu.Lock()
	s.address = checksummed
	s.storage.SaveWallet(checksummed)
	s.mu.Unlock()

	s.logger.Info("Wallet connected", "address", ShortAddress(checksummed))
	return s.Status(), nil
}

// Disconnect forgets the wallet.
func (s *walletServiceImpl) Disconnect() entity.WalletStatus {
	s.mu.Lock()
	s.address = ""
	s.storage.ClearWallet()
	s.mu.Unlock()

	s.logger.Info("Wallet disconnected")
	return s.Status()
}

// Status reports the wallet connection together with persistence health.
func (s *walletServiceImpl) Status() entity.WalletStatus {
	s.mu.RLock()
	address := s.address
	s.mu.RUnlock()

	snap := s.portfolio.Snapshot()
	status := entity.WalletStatus{
		Connected:          address != "",
		Address:            address,
		ShortAddress:       ShortAddress(address),
		PersistenceWorking: s.storage.IsAvailable(),
		WatchlistCount:     len(snap.Watchlist),
		PortfolioTotal:     snap.PortfolioTotal,
	}
	switch {
	case !status.PersistenceWorking:
		status.Message = "Storage is not available - portfolio data will not persist"
	case status.Connected:
		status.Message = "Portfolio data persists for wallet " + status.ShortAddress
	default:
		status.Message = "Portfolio data persists without wallet connection"
	}
	return status
}

// ShortAddress renders 0x1234...abcd. Addresses too short to abbreviate are returned as is.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

var _ port.WalletService = (*walletServiceImpl)(nil)
