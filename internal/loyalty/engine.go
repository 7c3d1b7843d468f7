// Package loyalty implements the points ledger: per-member accounts with an
// append-only transaction log and tier state derived from lifetime points.
package loyalty

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborstay/loyalty/internal/model"
)

// DefaultTransactionLimit is used by GetTransactions when no limit is given.
const DefaultTransactionLimit = 50

// MaxTransactionLimit bounds an explicit GetTransactions limit.
const MaxTransactionLimit = 1000

// AccountStore persists loyalty accounts. Implementations return (nil, nil)
// when an account does not exist.
type AccountStore interface {
	GetByMemberID(memberID string) (*model.Account, error)
	Create(a *model.Account) error
	Update(a *model.Account) error
	List() ([]model.Account, error)
}

// TransactionStore persists ledger entries.
type TransactionStore interface {
	Add(tx *model.Transaction) error
	ListByAccount(accountID string, limit int) ([]model.Transaction, error)
	// ListExpiring returns earn/bonus entries with expires_at <= asOf that
	// have not yet been swept.
	ListExpiring(accountID string, asOf time.Time) ([]model.Transaction, error)
	// RecordExpiry atomically persists a sweep: the compensating expire
	// entries, the expired_at marks on the swept rows, and the account's
	// updated balances.
	RecordExpiry(a *model.Account, entries []model.Transaction, sweptIDs []string, at time.Time) error
}

// Engine validates and applies every point-affecting operation. All
// read-modify-write sequences for one member are serialized behind a
// per-member lock so the balance invariants hold under concurrent calls.
type Engine struct {
	accounts AccountStore
	txs      TransactionStore
	schedule Schedule
	logger   *slog.Logger
	now      func() time.Time

	// TierUpgraded, when set, is called after a tier upgrade has been
	// persisted.
	TierUpgraded func(memberID string, tier model.Tier)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a ledger engine over the given stores and tier schedule.
func NewEngine(accounts AccountStore, txs TransactionStore, schedule Schedule, logger *slog.Logger) *Engine {
	return &Engine{
		accounts: accounts,
		txs:      txs,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Schedule returns the engine's tier table.
func (e *Engine) Schedule() Schedule { return e.schedule }

// memberLock returns the mutex serializing operations for one member.
func (e *Engine) memberLock(memberID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[memberID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[memberID] = l
	}
	return l
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CreateAccount explicitly creates a zeroed account at the lowest tier.
func (e *Engine) CreateAccount(memberID string) (*model.Account, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	existing, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}
	return e.createAccount(memberID)
}

// createAccount inserts a fresh account. Caller holds the member lock.
func (e *Engine) createAccount(memberID string) (*model.Account, error) {
	now := e.now().UTC()
	a := &model.Account{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		Tier:      e.schedule.Levels()[0].Tier,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.accounts.Create(a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// getOrCreate loads the member's account, creating it if absent. Caller
// holds the member lock.
func (e *Engine) getOrCreate(memberID string) (*model.Account, error) {
	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a != nil {
		return a, nil
	}
	return e.createAccount(memberID)
}

// EarnPoints records points for a purchase amount. The account is created
// if absent. Base points are floor(amount * PointsPerUnit), then scaled by
// the account's current tier multiplier. Earned points expire after
// ExpirationPeriod.
func (e *Engine) EarnPoints(memberID string, amount float64, referenceType, referenceID, description string) (*model.Transaction, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if referenceID != "" && !validID(referenceID) {
		return nil, ErrInvalidReference
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.getOrCreate(memberID)
	if err != nil {
		return nil, err
	}

	points := e.schedule.PointsForPurchase(amount, a.Tier)
	now := e.now().UTC()
	expires := now.Add(ExpirationPeriod)

	tx := &model.Transaction{
		ID:            uuid.NewString(),
		AccountID:     a.ID,
		Type:          model.TxEarn,
		Points:        points,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		ExpiresAt:     &expires,
		CreatedAt:     now,
	}
	if err := e.txs.Add(tx); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	a.TotalPoints += points
	a.AvailablePoints += points
	a.LifetimePoints += points
	upgraded := e.applyTier(a, now)
	a.UpdatedAt = now
	if err := e.accounts.Update(a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	e.notifyUpgrade(a, upgraded)
	return tx, nil
}

// RedeemPoints spends points from the available balance. Lifetime points
// are untouched, so redemption never affects tier eligibility.
func (e *Engine) RedeemPoints(memberID string, points int64, referenceType, referenceID, description string) (*model.Transaction, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if referenceID != "" && !validID(referenceID) {
		return nil, ErrInvalidReference
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	if points > a.AvailablePoints {
		return nil, ErrInsufficientPoints
	}

	now := e.now().UTC()
	tx := &model.Transaction{
		ID:            uuid.NewString(),
		AccountID:     a.ID,
		Type:          model.TxRedeem,
		Points:        -points,
		Description:   description,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		CreatedAt:     now,
	}
	if err := e.txs.Add(tx); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	a.TotalPoints -= points
	a.AvailablePoints -= points
	a.UpdatedAt = now
	if err := e.accounts.Update(a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return tx, nil
}

// AddBonusPoints credits promotional points. The amount is final; no tier
// multiplier applies. A non-empty description is required so every bonus is
// auditable. expiresInDays of 0 means the standard ExpirationPeriod.
func (e *Engine) AddBonusPoints(memberID string, points int64, description string, expiresInDays int) (*model.Transaction, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	if strings.TrimSpace(description) == "" {
		return nil, ErrMissingDescription
	}
	if expiresInDays < 0 {
		return nil, ErrInvalidAmount
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.getOrCreate(memberID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	expires := now.Add(ExpirationPeriod)
	if expiresInDays > 0 {
		expires = now.Add(time.Duration(expiresInDays) * 24 * time.Hour)
	}

	tx := &model.Transaction{
		ID:          uuid.NewString(),
		AccountID:   a.ID,
		Type:        model.TxBonus,
		Points:      points,
		Description: description,
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}
	if err := e.txs.Add(tx); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	a.TotalPoints += points
	a.AvailablePoints += points
	a.LifetimePoints += points
	upgraded := e.applyTier(a, now)
	a.UpdatedAt = now
	if err := e.accounts.Update(a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	e.notifyUpgrade(a, upgraded)
	return tx, nil
}

// AdjustPoints applies a manual correction of either sign. Negative
// adjustments may not drive the available balance below zero and never
// reduce lifetime points.
func (e *Engine) AdjustPoints(memberID string, points int64, reason string) (*model.Transaction, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	if points == 0 {
		return nil, ErrInvalidPoints
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	if a.AvailablePoints+points < 0 {
		return nil, ErrNegativeBalance
	}

	now := e.now().UTC()
	tx := &model.Transaction{
		ID:          uuid.NewString(),
		AccountID:   a.ID,
		Type:        model.TxAdjust,
		Points:      points,
		Description: reason,
		CreatedAt:   now,
	}
	if err := e.txs.Add(tx); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	a.TotalPoints += points
	a.AvailablePoints += points
	var upgraded bool
	if points > 0 {
		a.LifetimePoints += points
		upgraded = e.applyTier(a, now)
	}
	a.UpdatedAt = now
	if err := e.accounts.Update(a); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	e.notifyUpgrade(a, upgraded)
	return tx, nil
}

// ExpireOldPoints sweeps earn/bonus entries whose expiry has passed,
// appending one compensating expire entry per swept entry. Swept entries
// are marked so a repeat sweep returns 0; all of a sweep's writes land in
// one store transaction. Lifetime points and tier are untouched; the
// available balance is clamped at zero when the expired points were
// already spent.
func (e *Engine) ExpireOldPoints(memberID string) (int64, error) {
	if !validID(memberID) {
		return 0, ErrInvalidMember
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return 0, ErrAccountNotFound
	}

	now := e.now().UTC()
	expiring, err := e.txs.ListExpiring(a.ID, now)
	if err != nil {
		return 0, fmt.Errorf("list expiring: %w", err)
	}
	if len(expiring) == 0 {
		return 0, nil
	}

	var totalExpired int64
	ids := make([]string, 0, len(expiring))
	entries := make([]model.Transaction, 0, len(expiring))
	for _, src := range expiring {
		entries = append(entries, model.Transaction{
			ID:          uuid.NewString(),
			AccountID:   a.ID,
			Type:        model.TxExpire,
			Points:      -src.Points,
			Description: fmt.Sprintf("Expired points from %s transaction", src.Type),
			CreatedAt:   now,
		})
		ids = append(ids, src.ID)
		totalExpired += src.Points
	}

	a.TotalPoints -= totalExpired
	a.AvailablePoints -= totalExpired
	if a.AvailablePoints < 0 {
		a.AvailablePoints = 0
	}
	a.UpdatedAt = now
	if err := e.txs.RecordExpiry(a, entries, ids, now); err != nil {
		return 0, fmt.Errorf("record expiry: %w", err)
	}

	e.logger.Info("expired points", "member_id", memberID, "points", totalExpired, "entries", len(ids))
	return totalExpired, nil
}

// applyTier moves the account to the tier its lifetime points warrant, but
// only ever upward. Reports whether an upgrade happened.
func (e *Engine) applyTier(a *model.Account, now time.Time) bool {
	computed := e.schedule.TierFor(a.LifetimePoints)
	if e.schedule.Rank(computed) <= e.schedule.Rank(a.Tier) {
		return false
	}
	a.Tier = computed
	expires := now.Add(TierValidity)
	a.TierExpiresAt = &expires
	e.logger.Info("tier upgraded", "member_id", a.MemberID, "tier", a.Tier, "lifetime_points", a.LifetimePoints)
	return true
}

func (e *Engine) notifyUpgrade(a *model.Account, upgraded bool) {
	if upgraded && e.TierUpgraded != nil {
		e.TierUpgraded(a.MemberID, a.Tier)
	}
}

// UpgradeTierIfNeeded re-evaluates the account's tier against its lifetime
// points. Idempotent: with no intervening earn it never changes anything.
func (e *Engine) UpgradeTierIfNeeded(memberID string) (model.Tier, error) {
	if !validID(memberID) {
		return "", ErrInvalidMember
	}

	l := e.memberLock(memberID)
	l.Lock()
	defer l.Unlock()

	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return "", ErrAccountNotFound
	}

	now := e.now().UTC()
	if e.applyTier(a, now) {
		a.UpdatedAt = now
		if err := e.accounts.Update(a); err != nil {
			return "", fmt.Errorf("update account: %w", err)
		}
		e.notifyUpgrade(a, true)
	}
	return a.Tier, nil
}

// TierForPoints returns the tier the given lifetime points would earn.
func (e *Engine) TierForPoints(lifetimePoints int64) model.Tier {
	return e.schedule.TierFor(lifetimePoints)
}

// GetBalance returns the member's account.
func (e *Engine) GetBalance(memberID string) (*model.Account, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// GetTransactions returns the member's ledger history, newest first. A
// limit of 0 means DefaultTransactionLimit; explicit limits outside
// [1, MaxTransactionLimit] are rejected.
func (e *Engine) GetTransactions(memberID string, limit int) ([]model.Transaction, error) {
	if !validID(memberID) {
		return nil, ErrInvalidMember
	}
	if limit == 0 {
		limit = DefaultTransactionLimit
	}
	if limit < 1 || limit > MaxTransactionLimit {
		return nil, ErrInvalidLimit
	}

	a, err := e.accounts.GetByMemberID(memberID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	txs, err := e.txs.ListByAccount(a.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// GetStats aggregates the ledger across all accounts. Redeemed points are
// derived per account as lifetime minus available, which also counts
// expired points as no longer redeemable.
func (e *Engine) GetStats() (*model.Stats, error) {
	accounts, err := e.accounts.List()
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	stats := &model.Stats{AccountsByTier: make(map[model.Tier]int64)}
	for _, lvl := range e.schedule.Levels() {
		stats.AccountsByTier[lvl.Tier] = 0
	}
	for _, a := range accounts {
		stats.TotalAccounts++
		stats.TotalPointsIssued += a.LifetimePoints
		stats.TotalPointsRedeemed += a.LifetimePoints - a.AvailablePoints
		stats.AccountsByTier[a.Tier]++
	}
	return stats, nil
}

// ListAccounts exposes the account list for sweep and reporting callers.
func (e *Engine) ListAccounts() ([]model.Account, error) {
	return e.accounts.List()
}
