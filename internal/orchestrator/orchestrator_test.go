package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pixel-money/wallet-core/internal/config"
	"github.com/pixel-money/wallet-core/internal/domain/idempotency"
	"github.com/pixel-money/wallet-core/internal/domain/ledger"
	"github.com/pixel-money/wallet-core/internal/domain/reconciliation"
	"github.com/pixel-money/wallet-core/internal/domain/wallet"
	"github.com/pixel-money/wallet-core/internal/metrics"
	"github.com/pixel-money/wallet-core/internal/platform/clients"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeAccounts is an in-memory, lock-serialized balance store. The hooks
// let tests inject failures for specific users.
type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*wallet.Account

	creditHook func(userID int64) error
	debitHook  func(userID int64) error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{accounts: make(map[int64]*wallet.Account)}
}

func (f *fakeAccounts) seed(userID int64, balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc := wallet.NewAccount(userID)
	acc.Balance = balance
	f.accounts[userID] = acc
}

func (f *fakeAccounts) balance(userID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc, ok := f.accounts[userID]; ok {
		return acc.Balance
	}
	return decimal.Zero
}

func (f *fakeAccounts) Create(_ context.Context, acc *wallet.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[acc.UserID]; ok {
		return wallet.ErrAccountAlreadyExists{UserID: acc.UserID}
	}
	f.accounts[acc.UserID] = acc
	return nil
}

func (f *fakeAccounts) GetByUserID(_ context.Context, userID int64) (*wallet.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, wallet.ErrAccountNotFound{UserID: userID}
	}
	snapshot := *acc
	return &snapshot, nil
}

func (f *fakeAccounts) Credit(_ context.Context, userID int64, amount decimal.Decimal) (*wallet.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditHook != nil {
		if err := f.creditHook(userID); err != nil {
			return nil, err
		}
	}
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, wallet.ErrAccountNotFound{UserID: userID}
	}
	if err := acc.Credit(amount); err != nil {
		return nil, err
	}
	snapshot := *acc
	return &snapshot, nil
}

func (f *fakeAccounts) Debit(_ context.Context, userID int64, amount decimal.Decimal) (*wallet.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitHook != nil {
		if err := f.debitHook(userID); err != nil {
			return nil, err
		}
	}
	acc, ok := f.accounts[userID]
	if !ok {
		return nil, wallet.ErrAccountNotFound{UserID: userID}
	}
	if err := acc.Debit(amount); err != nil {
		return nil, err
	}
	snapshot := *acc
	return &snapshot, nil
}

func (f *fakeAccounts) Delete(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, userID)
	return nil
}

func (f *fakeAccounts) LockForUpdate(ctx context.Context, userID int64) (*wallet.Account, error) {
	return f.GetByUserID(ctx, userID)
}

func (f *fakeAccounts) WithTx(pgx.Tx) wallet.AccountRepository { return f }

// fakeGroupAccounts mirrors fakeAccounts for group wallets.
type fakeGroupAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*wallet.GroupAccount

	creditHook func(groupID int64) error
	debitHook  func(groupID int64) error
}

func newFakeGroupAccounts() *fakeGroupAccounts {
	return &fakeGroupAccounts{accounts: make(map[int64]*wallet.GroupAccount)}
}

func (f *fakeGroupAccounts) seed(groupID int64, balance decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grp := wallet.NewGroupAccount(groupID)
	grp.Balance = balance
	f.accounts[groupID] = grp
}

func (f *fakeGroupAccounts) balance(groupID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if grp, ok := f.accounts[groupID]; ok {
		return grp.Balance
	}
	return decimal.Zero
}

func (f *fakeGroupAccounts) Create(_ context.Context, grp *wallet.GroupAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[grp.GroupID]; ok {
		return wallet.ErrGroupAccountAlreadyExists{GroupID: grp.GroupID}
	}
	f.accounts[grp.GroupID] = grp
	return nil
}

func (f *fakeGroupAccounts) GetByGroupID(_ context.Context, groupID int64) (*wallet.GroupAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	grp, ok := f.accounts[groupID]
	if !ok {
		return nil, wallet.ErrGroupAccountNotFound{GroupID: groupID}
	}
	snapshot := *grp
	return &snapshot, nil
}

func (f *fakeGroupAccounts) Credit(_ context.Context, groupID int64, amount decimal.Decimal) (*wallet.GroupAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creditHook != nil {
		if err := f.creditHook(groupID); err != nil {
			return nil, err
		}
	}
	grp, ok := f.accounts[groupID]
	if !ok {
		return nil, wallet.ErrGroupAccountNotFound{GroupID: groupID}
	}
	if err := grp.Credit(amount); err != nil {
		return nil, err
	}
	snapshot := *grp
	return &snapshot, nil
}

func (f *fakeGroupAccounts) Debit(_ context.Context, groupID int64, amount decimal.Decimal) (*wallet.GroupAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitHook != nil {
		if err := f.debitHook(groupID); err != nil {
			return nil, err
		}
	}
	grp, ok := f.accounts[groupID]
	if !ok {
		return nil, wallet.ErrGroupAccountNotFound{GroupID: groupID}
	}
	if err := grp.Debit(amount); err != nil {
		return nil, err
	}
	snapshot := *grp
	return &snapshot, nil
}

func (f *fakeGroupAccounts) LockForUpdate(ctx context.Context, groupID int64) (*wallet.GroupAccount, error) {
	return f.GetByGroupID(ctx, groupID)
}

func (f *fakeGroupAccounts) WithTx(pgx.Tx) wallet.GroupAccountRepository { return f }

// fakeLoans is an in-memory loan store enforcing the one-active-loan rule.
type fakeLoans struct {
	mu    sync.Mutex
	loans map[uuid.UUID]*wallet.Loan

	createHook   func(loan *wallet.Loan) error
	markPaidHook func(id uuid.UUID) error
}

func newFakeLoans() *fakeLoans {
	return &fakeLoans{loans: make(map[uuid.UUID]*wallet.Loan)}
}

func (f *fakeLoans) Create(_ context.Context, loan *wallet.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createHook != nil {
		if err := f.createHook(loan); err != nil {
			return err
		}
	}
	for _, existing := range f.loans {
		if existing.UserID == loan.UserID && existing.Status == wallet.LoanStatusActive {
			return wallet.ErrActiveLoanExists{UserID: loan.UserID}
		}
	}
	f.loans[loan.ID] = loan
	return nil
}

func (f *fakeLoans) GetActiveByUserID(_ context.Context, userID int64) (*wallet.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, loan := range f.loans {
		if loan.UserID == userID && loan.Status == wallet.LoanStatusActive {
			snapshot := *loan
			return &snapshot, nil
		}
	}
	return nil, wallet.ErrNoActiveLoan{UserID: userID}
}

func (f *fakeLoans) MarkPaid(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markPaidHook != nil {
		if err := f.markPaidHook(id); err != nil {
			return err
		}
	}
	loan, ok := f.loans[id]
	if !ok {
		return wallet.ErrNoActiveLoan{}
	}
	loan.MarkPaid()
	return nil
}

func (f *fakeLoans) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.loans, id)
	return nil
}

// fakeLedger stores ledger records in memory and applies finalization the
// way the projections do: status and metadata on every record of the set.
type fakeLedger struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ledger.Transaction

	applyErr     error
	finalizeHook func(status ledger.Status) error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[uuid.UUID]*ledger.Transaction)}
}

func (f *fakeLedger) status(id uuid.UUID) ledger.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.records[id]; ok {
		return tx.Status
	}
	return ""
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeLedger) Apply(_ context.Context, ws *ledger.WriteSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	for _, r := range ws.Records {
		if _, ok := f.records[r.ID]; ok {
			return ledger.ErrDuplicateTransaction{ID: r.ID}
		}
	}
	for _, r := range ws.Records {
		stored := *r
		f.records[r.ID] = &stored
	}
	return nil
}

func (f *fakeLedger) Finalize(_ context.Context, ids []uuid.UUID, status ledger.Status, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeHook != nil {
		if err := f.finalizeHook(status); err != nil {
			return err
		}
	}
	for _, id := range ids {
		tx, ok := f.records[id]
		if !ok {
			return ledger.ErrTransactionNotFound{ID: id}
		}
		tx.Status = status
		if len(metadata) > 0 {
			if tx.Metadata == nil {
				tx.Metadata = make(map[string]string, len(metadata))
			}
			for k, v := range metadata {
				tx.Metadata[k] = v
			}
		}
		tx.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeLedger) GetByID(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.records[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound{ID: id}
	}
	snapshot := *tx
	return &snapshot, nil
}

func (f *fakeLedger) ListByUser(_ context.Context, userID int64, limit int) ([]*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range f.records {
		if tx.ActingUserID == userID {
			snapshot := *tx
			out = append(out, &snapshot)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) ListByUserSince(_ context.Context, userID int64, since time.Time) ([]*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range f.records {
		if tx.ActingUserID == userID && !tx.CreatedAt.Before(since) {
			snapshot := *tx
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListByGroup(_ context.Context, groupID int64, limit int) ([]*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range f.records {
		if tx.ActingGroupID != nil && *tx.ActingGroupID == groupID {
			snapshot := *tx
			out = append(out, &snapshot)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) ListByStatus(_ context.Context, status ledger.Status, olderThan time.Time, limit int) ([]*ledger.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Transaction
	for _, tx := range f.records {
		if tx.Status == status && tx.CreatedAt.Before(olderThan) {
			snapshot := *tx
			out = append(out, &snapshot)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeIdempotency is an in-memory create-only key store.
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[uuid.UUID]uuid.UUID

	registerErr error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[uuid.UUID]uuid.UUID)}
}

func (f *fakeIdempotency) Lookup(_ context.Context, key uuid.UUID) (*idempotency.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txID, ok := f.keys[key]
	if !ok {
		return nil, idempotency.ErrKeyNotFound{Key: key}
	}
	return &idempotency.Record{Key: key, TransactionID: txID, CreatedAt: time.Now()}, nil
}

func (f *fakeIdempotency) Register(_ context.Context, key, transactionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	if _, ok := f.keys[key]; ok {
		return idempotency.ErrKeyAlreadyRegistered{Key: key}
	}
	f.keys[key] = transactionID
	return nil
}

// fakeIdentity resolves phone numbers from a fixed directory.
type fakeIdentity struct {
	phones map[string]int64
	err    error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{phones: make(map[string]int64)}
}

func (f *fakeIdentity) ResolvePhone(_ context.Context, phone string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	userID, ok := f.phones[phone]
	if !ok {
		return 0, clients.ErrPhoneNotFound{Phone: phone}
	}
	return userID, nil
}

func (f *fakeIdentity) GetPhone(_ context.Context, userID int64) (string, error) {
	for phone, id := range f.phones {
		if id == userID {
			return phone, nil
		}
	}
	return "", clients.ErrUnavailable
}

// fakeBank records outbound transfer requests.
type fakeBank struct {
	mu       sync.Mutex
	requests []*clients.InterbankTransferRequest

	transferFn func(req *clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error)
}

func (f *fakeBank) Transfer(_ context.Context, req *clients.InterbankTransferRequest) (*clients.InterbankAcceptance, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.transferFn != nil {
		return f.transferFn(req)
	}
	return &clients.InterbankAcceptance{Status: "ACCEPTED", RemoteTransactionID: "REMOTE-1"}, nil
}

type memberAdjustment struct {
	GroupID int64
	UserID  int64
	Delta   decimal.Decimal
}

// fakeGroupLedger records internal balance adjustments.
type fakeGroupLedger struct {
	mu          sync.Mutex
	adjustments []memberAdjustment
	err         error
}

func (f *fakeGroupLedger) AdjustMemberBalance(_ context.Context, groupID, userID int64, delta decimal.Decimal) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustments = append(f.adjustments, memberAdjustment{GroupID: groupID, UserID: userID, Delta: delta})
	return nil
}

// fakePublisher collects escalation events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*reconciliation.Escalation
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := value.(*reconciliation.Escalation); ok {
		f.events = append(f.events, event)
	}
	return nil
}

func (f *fakePublisher) reasons() []reconciliation.Reason {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reconciliation.Reason, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Reason)
	}
	return out
}

// testEnv wires an orchestrator over the in-memory fakes.
type testEnv struct {
	orch        *Orchestrator
	accounts    *fakeAccounts
	groups      *fakeGroupAccounts
	loans       *fakeLoans
	ledger      *fakeLedger
	idem        *fakeIdempotency
	identity    *fakeIdentity
	bank        *fakeBank
	groupLedger *fakeGroupLedger
	escalations *fakePublisher
	registry    *metrics.Registry
}

func newTestEnv() *testEnv {
	env := &testEnv{
		accounts:    newFakeAccounts(),
		groups:      newFakeGroupAccounts(),
		loans:       newFakeLoans(),
		ledger:      newFakeLedger(),
		idem:        newFakeIdempotency(),
		identity:    newFakeIdentity(),
		bank:        &fakeBank{},
		groupLedger: &fakeGroupLedger{},
		escalations: &fakePublisher{},
		registry:    metrics.NewRegistry(),
	}
	env.orch = New(
		newTestLogger(),
		env.accounts,
		env.groups,
		env.loans,
		env.ledger,
		env.idem,
		env.identity,
		env.bank,
		env.groupLedger,
		env.escalations,
		env.registry,
		&config.LoanConfig{
			MaxPrincipal: decimal.NewFromInt(5000),
			InterestRate: decimal.NewFromFloat(0.05),
			Term:         30 * 24 * time.Hour,
		},
	)
	return env
}
