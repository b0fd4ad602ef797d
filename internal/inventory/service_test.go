package inventory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/location"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/masterdata"
	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

type memoryState struct {
	products  map[string]masterdata.Product
	outlets   map[string]masterdata.Outlet
	stock     map[string]int64
	movements []Movement
	transfers []TransferRecord
	usage     map[string]int64
}

func (s memoryState) clone() memoryState {
	return memoryState{
		products:  maps.Clone(s.products),
		outlets:   maps.Clone(s.outlets),
		stock:     maps.Clone(s.stock),
		movements: append([]Movement(nil), s.movements...),
		transfers: append([]TransferRecord(nil), s.transfers...),
		usage:     maps.Clone(s.usage),
	}
}

type memoryRepo struct {
	state memoryState
	txErr error
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		products: make(map[string]masterdata.Product),
		outlets:  make(map[string]masterdata.Outlet),
		stock:    make(map[string]int64),
		usage:    make(map[string]int64),
	}}
}

func key(outletID, productID string) string {
	return fmt.Sprintf("%s:%s", outletID, productID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	staged := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memoryRepo) GetStock(ctx context.Context, productID string, loc location.Location) (int64, error) {
	p, ok := r.state.products[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	if loc.IsCentral() {
		return p.CentralStock, nil
	}
	return r.state.stock[key(loc.OutletID, productID)], nil
}

func (r *memoryRepo) ListOutletStock(ctx context.Context, outletID string) ([]OutletStock, error) {
	var rows []OutletStock
	for _, o := range r.state.outlets {
		if outletID != "" && o.ID != outletID {
			continue
		}
		for id := range r.state.products {
			if qty, ok := r.state.stock[key(o.ID, id)]; ok {
				rows = append(rows, OutletStock{OutletID: o.ID, ProductID: id, Qty: qty})
			}
		}
	}
	return rows, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error) {
	var out []Movement
	for i := len(r.state.movements) - 1; i >= 0; i-- {
		if m := r.state.movements[i]; filter.Filter.Matches(m.Location()) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListTransfers(ctx context.Context, filter HistoryFilter) ([]TransferRecord, error) {
	var out []TransferRecord
	for i := len(r.state.transfers) - 1; i >= 0; i-- {
		if t := r.state.transfers[i]; filter.Filter.All || t.Touches(filter.Filter.Location) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID string) (masterdata.Product, error) {
	p, ok := tx.state.products[productID]
	if !ok {
		return masterdata.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return p, nil
}

func (tx *memoryTx) GetOutlet(ctx context.Context, outletID string) (masterdata.Outlet, error) {
	o, ok := tx.state.outlets[outletID]
	if !ok {
		return masterdata.Outlet{}, fmt.Errorf("%w: %s", ErrOutletNotFound, outletID)
	}
	return o, nil
}

func (tx *memoryTx) GetOutletStockForUpdate(ctx context.Context, outletID, productID string) (int64, error) {
	return tx.state.stock[key(outletID, productID)], nil
}

func (tx *memoryTx) SetCentralStock(ctx context.Context, productID string, qty int64) error {
	p := tx.state.products[productID]
	p.CentralStock = qty
	tx.state.products[productID] = p
	return nil
}

func (tx *memoryTx) UpsertOutletStock(ctx context.Context, outletID, productID string, qty int64) error {
	tx.state.stock[key(outletID, productID)] = qty
	return nil
}

func (tx *memoryTx) DeleteOutletStock(ctx context.Context, outletID, productID string) error {
	delete(tx.state.stock, key(outletID, productID))
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) error {
	tx.state.movements = append(tx.state.movements, movement)
	return nil
}

func (tx *memoryTx) InsertTransfer(ctx context.Context, transfer TransferRecord) error {
	tx.state.transfers = append(tx.state.transfers, transfer)
	return nil
}

func (tx *memoryTx) IncrementUsage(ctx context.Context, locationKey, productID string) error {
	tx.state.usage[locationKey+"|"+productID]++
	return nil
}

type recordingHandler struct {
	events []CommittedEvent
}

func (h *recordingHandler) HandleLedgerCommitted(ctx context.Context, evt CommittedEvent) error {
	h.events = append(h.events, evt)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func seededService(t *testing.T) (*Service, *memoryRepo, *recordingHandler, *recordingAudit) {
	t.Helper()
	repo := newMemoryRepo()
	repo.state.products["p"] = masterdata.Product{ID: "p", Name: "Pisang", SKU: "P-1", CentralStock: 50, MinStock: 10}
	repo.state.outlets["a"] = masterdata.Outlet{ID: "a", Code: "A", Name: "Outlet A"}
	repo.state.outlets["b"] = masterdata.Outlet{ID: "b", Code: "B", Name: "Outlet B"}
	events := &recordingHandler{}
	audit := &recordingAudit{}
	svc := NewService(repo, Dependencies{Audit: audit, Events: events, Idempotency: shared.NewMemoryIdempotencyStore()}, ServiceConfig{})
	svc.WithNow(func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) })
	return svc, repo, events, audit
}

func stockAt(t *testing.T, svc *Service, loc location.Location) int64 {
	t.Helper()
	qty, err := svc.GetStock(context.Background(), "p", loc)
	require.NoError(t, err)
	return qty
}

func TestLedgerScenario(t *testing.T) {
	svc, repo, events, audit := seededService(t)
	ctx := context.Background()
	central := location.Central()
	outletA := location.Outlet("a")
	outletB := location.Outlet("b")

	issue, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 45, Type: MovementOut, Location: central}, "")
	require.NoError(t, err)
	require.Equal(t, MovementOut, issue.Type)
	require.Equal(t, int64(45), issue.Qty)
	require.Equal(t, int64(-45), issue.Delta)
	require.Equal(t, int64(5), issue.BalanceAfter)
	require.Equal(t, "Barang keluar", issue.Note)
	require.Equal(t, location.CentralLabel, issue.LocationLabel)

	transfer, err := svc.Transfer(ctx, TransferInput{
		ProductID: "p",
		Source:    central,
		Destinations: []DestinationInput{
			{OutletID: "a", Quantity: 4},
			{OutletID: "b", Quantity: 1},
		},
	}, "")
	require.NoError(t, err)
	require.Equal(t, int64(5), transfer.TotalQty)
	require.Equal(t, DefaultTransferNote, transfer.Note)
	require.Equal(t, "Outlet A", transfer.Destinations[0].OutletName)
	require.Equal(t, int64(0), stockAt(t, svc, central))
	require.Equal(t, int64(4), stockAt(t, svc, outletA))
	require.Equal(t, int64(1), stockAt(t, svc, outletB))

	opname, err := svc.RecordOpname(ctx, OpnameInput{ProductID: "p", ActualStock: 4, Location: outletA}, "")
	require.NoError(t, err)
	require.Equal(t, MovementOpname, opname.Type)
	require.Equal(t, int64(0), opname.Delta)
	require.Equal(t, int64(0), opname.Qty)
	require.Equal(t, int64(4), opname.BalanceAfter)
	require.NotNil(t, opname.CountedStock)
	require.Equal(t, int64(4), *opname.CountedStock)
	require.Equal(t, "Outlet A", opname.LocationLabel)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 2, Type: MovementOut, Location: outletB}, "")
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(1), insufficient.Available)
	require.Equal(t, int64(1), stockAt(t, svc, outletB))

	require.Len(t, repo.state.movements, 2)
	require.Len(t, repo.state.transfers, 1)
	require.Len(t, events.events, 3)
	require.Equal(t, EventTransfer, events.events[1].Kind)
	require.Len(t, events.events[1].Locations, 3)
	require.Len(t, audit.logs, 3)
	require.Equal(t, int64(1), repo.state.usage["central|p"])
	require.Equal(t, int64(1), repo.state.usage["outlet:a|p"])
	require.Zero(t, repo.state.usage["outlet:b|p"])
}

func TestIssueBoundary(t *testing.T) {
	svc, _, _, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 51, Type: MovementOut, Location: location.Central()}, "")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(50), stockAt(t, svc, location.Central()))

	m, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 50, Type: MovementOut, Location: location.Central()}, "")
	require.NoError(t, err)
	require.Equal(t, int64(0), m.BalanceAfter)
	require.Equal(t, int64(0), stockAt(t, svc, location.Central()))
}

func TestMovementValidation(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input MovementInput
		want  error
	}{
		{"zero quantity", MovementInput{ProductID: "p", Quantity: 0, Type: MovementIn, Location: location.Central()}, ErrInvalidQuantity},
		{"negative quantity", MovementInput{ProductID: "p", Quantity: -3, Type: MovementIn, Location: location.Central()}, ErrInvalidQuantity},
		{"opname type", MovementInput{ProductID: "p", Quantity: 1, Type: MovementOpname, Location: location.Central()}, ErrInvalidMovementType},
		{"unknown product", MovementInput{ProductID: "x", Quantity: 1, Type: MovementIn, Location: location.Central()}, shared.ErrNotFound},
		{"outlet without id", MovementInput{ProductID: "p", Quantity: 1, Type: MovementIn, Location: location.Location{Kind: location.KindOutlet}}, ErrLocationRequired},
		{"unknown outlet", MovementInput{ProductID: "p", Quantity: 1, Type: MovementIn, Location: location.Outlet("zz")}, ErrOutletNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, tc.input, "")
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Empty(t, repo.state.movements)
	require.Equal(t, int64(50), stockAt(t, svc, location.Central()))
}

func TestReceiptCreatesSparseRowAndIssueRemovesIt(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()
	outletA := location.Outlet("a")

	m, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 3, Type: MovementIn, Location: outletA, Note: "Kiriman"}, "")
	require.NoError(t, err)
	require.Equal(t, "Kiriman", m.Note)
	require.Equal(t, int64(3), repo.state.stock[key("a", "p")])

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 3, Type: MovementOut, Location: outletA}, "")
	require.NoError(t, err)
	_, exists := repo.state.stock[key("a", "p")]
	require.False(t, exists)
}

func TestOpnameAdjustsBothWays(t *testing.T) {
	svc, _, _, _ := seededService(t)
	ctx := context.Background()

	down, err := svc.RecordOpname(ctx, OpnameInput{ProductID: "p", ActualStock: 42, Location: location.Central()}, "")
	require.NoError(t, err)
	require.Equal(t, int64(-8), down.Delta)
	require.Equal(t, int64(8), down.Qty)
	require.Equal(t, "Stock opname", down.Note)

	up, err := svc.RecordOpname(ctx, OpnameInput{ProductID: "p", ActualStock: 7, Location: location.Outlet("b")}, "")
	require.NoError(t, err)
	require.Equal(t, int64(7), up.Delta)
	require.Equal(t, int64(7), up.BalanceAfter)

	zero, err := svc.RecordOpname(ctx, OpnameInput{ProductID: "p", ActualStock: 0, Location: location.Outlet("b")}, "")
	require.NoError(t, err)
	require.Equal(t, int64(-7), zero.Delta)
	require.Equal(t, int64(0), stockAt(t, svc, location.Outlet("b")))

	_, err = svc.RecordOpname(ctx, OpnameInput{ProductID: "p", ActualStock: -1, Location: location.Central()}, "")
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestTransferValidationOrder(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()
	repo.state.stock[key("a", "p")] = 6

	cases := []struct {
		name  string
		input TransferInput
		want  error
	}{
		{"unknown product beats everything", TransferInput{ProductID: "x", Source: location.Outlet("zz")}, ErrProductNotFound},
		{"unknown source outlet", TransferInput{ProductID: "p", Source: location.Outlet("zz")}, ErrOutletNotFound},
		{"source without id", TransferInput{ProductID: "p", Source: location.Location{Kind: location.KindOutlet}}, ErrLocationRequired},
		{"only blank destinations", TransferInput{ProductID: "p", Source: location.Central(), Destinations: []DestinationInput{{OutletID: " ", Quantity: 1}}}, ErrNoDestinations},
		{"non-positive quantity", TransferInput{ProductID: "p", Source: location.Central(), Destinations: []DestinationInput{{OutletID: "a", Quantity: 0}, {OutletID: "a", Quantity: 1}}}, ErrInvalidQuantity},
		{"total overflows", TransferInput{ProductID: "p", Source: location.Central(), Destinations: []DestinationInput{{OutletID: "a", Quantity: math.MaxInt64}, {OutletID: "zz", Quantity: 2}}}, ErrQuantityOverflow},
		{"duplicate destination", TransferInput{ProductID: "p", Source: location.Central(), Destinations: []DestinationInput{{OutletID: "a", Quantity: 1}, {OutletID: "a", Quantity: 1}}}, ErrDuplicateDestination},
		{"destination is source", TransferInput{ProductID: "p", Source: location.Outlet("a"), Destinations: []DestinationInput{{OutletID: "zz", Quantity: 1}, {OutletID: "a", Quantity: 1}}}, ErrDestinationIsSource},
		{"unknown destination", TransferInput{ProductID: "p", Source: location.Outlet("a"), Destinations: []DestinationInput{{OutletID: "zz", Quantity: 1}}}, ErrOutletNotFound},
		{"exceeds source", TransferInput{ProductID: "p", Source: location.Outlet("a"), Destinations: []DestinationInput{{OutletID: "b", Quantity: 7}}}, shared.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tc.input, "")
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Empty(t, repo.state.transfers)
	require.Equal(t, int64(6), repo.state.stock[key("a", "p")])
	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
}

func TestTransferConservation(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()
	repo.state.stock[key("a", "p")] = 9
	repo.state.stock[key("b", "p")] = 2

	record, err := svc.Transfer(ctx, TransferInput{
		ProductID:    "p",
		Source:       location.Outlet("a"),
		Destinations: []DestinationInput{{OutletID: "b", Quantity: 9}, {OutletID: "", Quantity: 99}},
		Note:         "Isi ulang",
	}, "")
	require.NoError(t, err)
	require.Equal(t, int64(9), record.TotalQty)
	require.Len(t, record.Destinations, 1)
	require.Equal(t, "Outlet A", record.SourceLabel)

	_, exists := repo.state.stock[key("a", "p")]
	require.False(t, exists)
	require.Equal(t, int64(11), repo.state.stock[key("b", "p")])
	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
	require.Empty(t, repo.state.usage)
}

func TestTransferRejectsOverflowingTotal(t *testing.T) {
	svc, repo, events, _ := seededService(t)
	ctx := context.Background()
	repo.state.outlets["c"] = masterdata.Outlet{ID: "c", Code: "C", Name: "Outlet C"}

	_, err := svc.Transfer(ctx, TransferInput{
		ProductID: "p",
		Source:    location.Central(),
		Destinations: []DestinationInput{
			{OutletID: "a", Quantity: math.MaxInt64},
			{OutletID: "b", Quantity: math.MaxInt64},
			{OutletID: "c", Quantity: 3},
		},
	}, "")
	require.ErrorIs(t, err, ErrQuantityOverflow)
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
	require.Empty(t, repo.state.stock)
	require.Empty(t, repo.state.transfers)
	require.Empty(t, events.events)
}

func TestTransferRejectsDestinationOverflow(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()
	repo.state.stock[key("b", "p")] = math.MaxInt64 - 1

	_, err := svc.Transfer(ctx, TransferInput{
		ProductID:    "p",
		Source:       location.Central(),
		Destinations: []DestinationInput{{OutletID: "a", Quantity: 1}, {OutletID: "b", Quantity: 2}},
	}, "")
	require.ErrorIs(t, err, ErrQuantityOverflow)

	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
	require.Equal(t, int64(math.MaxInt64-1), repo.state.stock[key("b", "p")])
	_, credited := repo.state.stock[key("a", "p")]
	require.False(t, credited)
	require.Empty(t, repo.state.transfers)
}

func TestReceiptRejectsBalanceOverflow(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: math.MaxInt64, Type: MovementIn, Location: location.Central()}, "")
	require.ErrorIs(t, err, ErrQuantityOverflow)
	require.NotContains(t, err.Error(), "-9223")
	require.Equal(t, int64(50), repo.state.products["p"].CentralStock)
	require.Empty(t, repo.state.movements)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: math.MaxInt64 - 50, Type: MovementIn, Location: location.Central()}, "")
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), repo.state.products["p"].CentralStock)
}

func TestTransferSnapshotsOutletNames(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, TransferInput{ProductID: "p", Source: location.Central(), Destinations: []DestinationInput{{OutletID: "a", Quantity: 1}}}, "")
	require.NoError(t, err)
	repo.state.outlets["a"] = masterdata.Outlet{ID: "a", Name: "Outlet A Baru"}

	transfers, err := svc.ListTransfers(ctx, HistoryFilter{Filter: location.Only(location.Outlet("a"))})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, "Outlet A", transfers[0].Destinations[0].OutletName)
}

func TestIdempotentReplayIsRejected(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	ctx := context.Background()
	input := MovementInput{ProductID: "p", Quantity: 5, Type: MovementIn, Location: location.Central()}

	_, err := svc.RecordMovement(ctx, input, "req-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, input, "req-1")
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, int64(55), repo.state.products["p"].CentralStock)

	// A failed request releases its key so the corrected retry goes through.
	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 99, Type: MovementOut, Location: location.Central()}, "req-2")
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: "p", Quantity: 9, Type: MovementOut, Location: location.Central()}, "req-2")
	require.NoError(t, err)
}

func TestTimeoutIsRetryable(t *testing.T) {
	svc, repo, _, _ := seededService(t)
	repo.txErr = fmt.Errorf("begin tx: %w", context.DeadlineExceeded)

	_, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: "p", Quantity: 1, Type: MovementIn, Location: location.Central()}, "")
	require.ErrorIs(t, err, ErrRetryable)
	require.ErrorIs(t, err, shared.ErrUnavailable)
	require.False(t, errors.Is(err, shared.ErrValidation))
}

func TestLedgerSetRejectsNegative(t *testing.T) {
	repo := newMemoryRepo()
	repo.state.products["p"] = masterdata.Product{ID: "p"}
	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		return NewLedger(tx).Set(ctx, "p", location.Outlet("a"), -1)
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		ledger := NewLedger(tx)
		if err := ledger.Set(ctx, "p", location.Central(), 0); err != nil {
			return err
		}
		after, err := ledger.Add(ctx, "p", location.Outlet("a"), 2)
		require.Equal(t, int64(2), after)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), repo.state.stock[key("a", "p")])
}
