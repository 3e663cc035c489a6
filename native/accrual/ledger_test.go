package accrual

import (
	"bytes"
	"errors"
	"testing"

	coreerrors "drippy/core/errors"
	"drippy/core/types"
	"drippy/storage"
)

var errDiskFull = errors.New("disk full")

// flakyDB fails writes or reads on demand.
type flakyDB struct {
	*storage.MemDB
	failPut bool
	failGet bool
}

func newFlakyDB() *flakyDB { return &flakyDB{MemDB: storage.NewMemDB()} }

func (f *flakyDB) Put(key, value []byte) error {
	if f.failPut {
		return errDiskFull
	}
	return f.MemDB.Put(key, value)
}

func (f *flakyDB) Get(key []byte) ([]byte, error) {
	if f.failGet {
		return nil, errDiskFull
	}
	return f.MemDB.Get(key)
}

func testAccount(b byte) types.AccountID {
	var id types.AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestLedgerUnknownAccountIsZeroRecord(t *testing.T) {
	ledger := NewLedger(storage.NewMemDB())
	state, found, err := ledger.Get(testAccount(1))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatalf("expected unknown account")
	}
	if state != (State{}) {
		t.Fatalf("expected zero record, got %+v", state)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	ledger := NewLedger(db)
	id := testAccount(2)
	want := State{Accrued: 5_000_000, LastClaimTime: 1_700_000_000, ClaimCount: 3, BoostMultiplier: 250, DailyClaimed: 42}
	if err := ledger.Write(id, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, found, err := ledger.Get(id)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	raw, err := db.Get(AccountKey(id))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if len(raw) != RecordSize {
		t.Fatalf("record size %d", len(raw))
	}
	if !bytes.Equal(raw[0:8], []byte{0, 0, 0, 0, 0, 0x4c, 0x4b, 0x40}) {
		t.Fatalf("accrued not big-endian: %x", raw[0:8])
	}
	if got.DailyResetDay() != uint32(1_700_000_000/86_400) {
		t.Fatalf("unexpected reset day %d", got.DailyResetDay())
	}
}

func TestLedgerCorruptRecord(t *testing.T) {
	db := storage.NewMemDB()
	id := testAccount(3)
	if err := db.Put(AccountKey(id), []byte{1, 2, 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := NewLedger(db).Read(id)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected corrupt record, got %v", err)
	}
	if !coreerrors.Fatal(err) {
		t.Fatalf("corrupt record should be a storage failure")
	}
}

func TestLedgerBackendFailures(t *testing.T) {
	db := newFlakyDB()
	ledger := NewLedger(db)
	db.failGet = true
	if _, err := ledger.Read(testAccount(4)); !errors.Is(err, ErrLedgerRead) || !errors.Is(err, coreerrors.ErrStorageFailure) {
		t.Fatalf("expected read failure, got %v", err)
	}
	db.failGet = false
	db.failPut = true
	if err := ledger.Write(testAccount(4), State{Accrued: 1}); !errors.Is(err, ErrLedgerWrite) {
		t.Fatalf("expected write failure, got %v", err)
	}
}
