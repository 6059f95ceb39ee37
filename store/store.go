// Package store is the key-value layer every ledger keeps its records in.
//
// A Store owns a set of namespaced tables. Ledger operations run inside
// Update, which holds an exclusive lock for the whole operation and stages
// every write. If the operation returns an error the staged writes are
// dropped, otherwise they are appended to the Journal as one Batch and then
// applied. Readers use View.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("store")

// Change is one staged write, encoded for the journal. Value is nil for
// deletes.
type Change struct {
	Namespace string
	Key       json.RawMessage
	Value     json.RawMessage
	Deleted   bool
}

// Batch is the write set of a single successful operation.
type Batch struct {
	ID      uuid.UUID
	Op      string
	Seq     uint64
	Changes []Change
}

type table interface {
	namespace() string
	staged() ([]Change, error)
	apply()
	discard()
	restore(key, value []byte) error
}

type Store struct {
	mu       sync.RWMutex
	tables   map[string]table
	order    []table
	journal  Journal
	logger   *slog.Logger
	seq      uint64
	writable bool
}

func New(journal Journal, logger *slog.Logger) *Store {
	if journal == nil {
		journal = Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		tables:  make(map[string]table),
		journal: journal,
		logger:  logger,
	}
}

func (s *Store) register(t table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[t.namespace()]; ok {
		panic("store: duplicate namespace " + t.namespace())
	}
	s.tables[t.namespace()] = t
	s.order = append(s.order, t)
}

// Seq returns the sequence number of the last committed batch.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Update runs fn as one all-or-nothing operation named op.
func (s *Store) Update(ctx context.Context, op string, fn func() error) (err error) {
	ctx, span := tracer.Start(ctx, "ledger."+op)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writable = true
	defer func() {
		s.writable = false
		if r := recover(); r != nil {
			s.discard()
			panic(r)
		}
	}()

	err = fn()
	if err != nil {
		s.discard()
	} else {
		err = s.commit(ctx, op)
	}

	observe(op, err, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int64("ledger.seq", int64(s.seq)))
	return err
}

// View runs fn under a shared lock. Tables must not be written inside fn.
func (s *Store) View(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

func (s *Store) commit(ctx context.Context, op string) error {
	var changes []Change
	for _, t := range s.order {
		c, err := t.staged()
		if err != nil {
			s.discard()
			return fmt.Errorf("encode %s: %w", t.namespace(), err)
		}
		changes = append(changes, c...)
	}
	if len(changes) == 0 {
		return nil
	}

	b := Batch{
		ID:      uuid.New(),
		Op:      op,
		Seq:     s.seq + 1,
		Changes: changes,
	}
	if err := s.journal.Append(ctx, b); err != nil {
		s.discard()
		return fmt.Errorf("append batch %d: %w", b.Seq, err)
	}

	for _, t := range s.order {
		t.apply()
	}
	s.seq = b.Seq

	s.logger.DebugContext(ctx, "ledger batch committed",
		slog.String("op", op),
		slog.Uint64("seq", b.Seq),
		slog.Int("changes", len(changes)),
	)
	return nil
}

func (s *Store) discard() {
	for _, t := range s.order {
		t.discard()
	}
}

// Restore rebuilds every registered table from the journal. It must run
// after all tables are created and before the first operation.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.journal.Load(ctx, func(c Change) error {
		t, ok := s.tables[c.Namespace]
		if !ok {
			return fmt.Errorf("unknown namespace %q", c.Namespace)
		}
		return t.restore(c.Key, c.Value)
	})
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.seq = seq
	return nil
}

// Table is a namespaced map of records. Writes are only legal inside
// Store.Update; reads see the writes staged by the running operation.
type Table[K comparable, V any] struct {
	s       *Store
	ns      string
	rows    map[K]V
	pending map[K]*V
	keys    []K
}

// NewTable creates a table and registers it with s. Namespaces are unique
// per store.
func NewTable[K comparable, V any](s *Store, ns string) *Table[K, V] {
	t := &Table[K, V]{
		s:       s,
		ns:      ns,
		rows:    make(map[K]V),
		pending: make(map[K]*V),
	}
	s.register(t)
	return t
}

func (t *Table[K, V]) Get(k K) (V, bool) {
	if p, ok := t.pending[k]; ok {
		if p == nil {
			var zero V
			return zero, false
		}
		return *p, true
	}
	v, ok := t.rows[k]
	return v, ok
}

func (t *Table[K, V]) Has(k K) bool {
	_, ok := t.Get(k)
	return ok
}

func (t *Table[K, V]) Put(k K, v V) {
	t.stage(k, &v)
}

func (t *Table[K, V]) Delete(k K) {
	t.stage(k, nil)
}

// Len counts the visible records, staged writes included.
func (t *Table[K, V]) Len() int {
	n := len(t.rows)
	for k, p := range t.pending {
		_, had := t.rows[k]
		switch {
		case p == nil && had:
			n--
		case p != nil && !had:
			n++
		}
	}
	return n
}

func (t *Table[K, V]) stage(k K, v *V) {
	if !t.s.writable {
		panic("store: write to " + t.ns + " outside Update")
	}
	if _, ok := t.pending[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.pending[k] = v
}

func (t *Table[K, V]) namespace() string { return t.ns }

func (t *Table[K, V]) staged() ([]Change, error) {
	changes := make([]Change, 0, len(t.keys))
	for _, k := range t.keys {
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		c := Change{Namespace: t.ns, Key: key}
		if p := t.pending[k]; p == nil {
			c.Deleted = true
		} else {
			c.Value, err = json.Marshal(*p)
			if err != nil {
				return nil, err
			}
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func (t *Table[K, V]) apply() {
	for _, k := range t.keys {
		if p := t.pending[k]; p == nil {
			delete(t.rows, k)
		} else {
			t.rows[k] = *p
		}
	}
	t.discard()
}

func (t *Table[K, V]) discard() {
	clear(t.pending)
	t.keys = t.keys[:0]
}

func (t *Table[K, V]) restore(key, value []byte) error {
	var k K
	if err := json.Unmarshal(key, &k); err != nil {
		return fmt.Errorf("%s key: %w", t.ns, err)
	}
	var v V
	if err := json.Unmarshal(value, &v); err != nil {
		return fmt.Errorf("%s value: %w", t.ns, err)
	}
	t.rows[k] = v
	return nil
}
