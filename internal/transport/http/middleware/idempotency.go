package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staffhub/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict   = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInProgress = errors.New("idempotency key is held by a request in flight")
)

// StoredResponse is a replayable response body.
type StoredResponse struct {
	Status int
	Body   json.RawMessage
}

// IdempotencyStore remembers responses per (actor, endpoint, key).
//
// Reserve claims a free key atomically and returns nil; a completed key
// yields its stored response. A key still held by another request yields
// ErrIdempotencyInProgress. Save completes a reservation and Release gives
// up one that did not succeed.
type IdempotencyStore interface {
	Check(ctx context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error)
	Reserve(ctx context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error)
	Save(ctx context.Context, actorID, endpoint, key, requestHash string, resp StoredResponse) error
	Release(ctx context.Context, actorID, endpoint, key string) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type PGIdempotencyStore struct {
	db *pgxpool.Pool
}

func NewPGIdempotencyStore(db *pgxpool.Pool) *PGIdempotencyStore {
	return &PGIdempotencyStore{db: db}
}

func (s *PGIdempotencyStore) Check(ctx context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error) {
	var storedHash string
	var resp StoredResponse
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, status_code, response_json
    FROM idempotency_keys
    WHERE actor_id = $1 AND key = $2 AND endpoint = $3
  `, actorID, key, endpoint).Scan(&storedHash, &resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if storedHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	if resp.Status == pendingStatus {
		return nil, ErrIdempotencyInProgress
	}
	return &resp, nil
}

// pendingStatus marks a reserved key whose response is not stored yet.
const pendingStatus = 0

func (s *PGIdempotencyStore) Reserve(ctx context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error) {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (actor_id, key, endpoint, request_hash, status_code, response_json)
    VALUES ($1, $2, $3, $4, $5, ''::bytea)
    ON CONFLICT (actor_id, key, endpoint) DO NOTHING
  `, actorID, key, endpoint, requestHash, pendingStatus)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}
	resp, err := s.Check(ctx, actorID, endpoint, key, requestHash)
	if err == nil && resp == nil {
		// Released between the insert and the read.
		return nil, ErrIdempotencyInProgress
	}
	return resp, err
}

func (s *PGIdempotencyStore) Release(ctx context.Context, actorID, endpoint, key string) error {
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE actor_id = $1 AND key = $2 AND endpoint = $3 AND status_code = $4
  `, actorID, key, endpoint, pendingStatus)
	return err
}

func (s *PGIdempotencyStore) Save(ctx context.Context, actorID, endpoint, key, requestHash string, resp StoredResponse) error {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (actor_id, key, endpoint, request_hash, status_code, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (actor_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json, status_code = EXCLUDED.status_code
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
  `, actorID, key, endpoint, requestHash, resp.Status, []byte(resp.Body))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Prune deletes keys stored before cutoff.
func (s *PGIdempotencyStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type memoryEntry struct {
	hash    string
	pending bool
	resp    StoredResponse
	saved   time.Time
	expires time.Time
}

// MemoryIdempotencyStore keeps keys in process for the file store
// deployment. Entries expire after ttl.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryIdempotencyStore{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func memoryKey(actorID, endpoint, key string) string {
	return actorID + "\x00" + endpoint + "\x00" + key
}

func (s *MemoryIdempotencyStore) Check(_ context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[memoryKey(actorID, endpoint, key)]
	if !ok || s.now().After(entry.expires) {
		return nil, nil
	}
	if entry.hash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	if entry.pending {
		return nil, ErrIdempotencyInProgress
	}
	resp := entry.resp
	return &resp, nil
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, actorID, endpoint, key, requestHash string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	k := memoryKey(actorID, endpoint, key)
	if entry, ok := s.entries[k]; ok && !now.After(entry.expires) {
		switch {
		case entry.hash != requestHash:
			return nil, ErrIdempotencyConflict
		case entry.pending:
			return nil, ErrIdempotencyInProgress
		}
		resp := entry.resp
		return &resp, nil
	}
	s.entries[k] = memoryEntry{hash: requestHash, pending: true, saved: now, expires: now.Add(s.ttl)}
	return nil, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, actorID, endpoint, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(actorID, endpoint, key)
	if entry, ok := s.entries[k]; ok && entry.pending {
		delete(s.entries, k)
	}
	return nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, actorID, endpoint, key, requestHash string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	k := memoryKey(actorID, endpoint, key)
	if existing, ok := s.entries[k]; ok && now.Before(existing.expires) && existing.hash != requestHash {
		return ErrIdempotencyConflict
	}
	for stale, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, stale)
		}
	}
	s.entries[k] = memoryEntry{hash: requestHash, resp: resp, saved: now, expires: now.Add(s.ttl)}
	return nil
}

// Prune drops entries saved before cutoff as well as expired ones.
func (s *MemoryIdempotencyStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed int64
	for k, entry := range s.entries {
		if entry.saved.Before(cutoff) || now.After(entry.expires) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotent replays the stored response when a POST repeats an
// Idempotency-Key with the same body, and rejects the key when the body
// differs. Requests without the header pass through.
func Idempotent(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			actor := actorOrIPKey(r)
			endpoint := normalizedAPIPath(r.URL.Path)
			hash := RequestHash(raw)

			stored, err := store.Reserve(r.Context(), actor, endpoint, key, hash)
			if errors.Is(err, ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", requestID)
				return
			}
			if errors.Is(err, ErrIdempotencyInProgress) {
				api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is still being processed", requestID)
				return
			}
			if err != nil {
				api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "failed to check idempotency key", requestID)
				return
			}
			if stored != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			saved := false
			defer func() {
				if saved {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), actor, endpoint, key); err != nil {
					slog.Warn("idempotency release failed", "endpoint", endpoint, "err", err, "requestId", requestID)
				}
			}()

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			resp := StoredResponse{Status: capture.status, Body: json.RawMessage(capture.body.Bytes())}
			if err := store.Save(r.Context(), actor, endpoint, key, hash, resp); err != nil {
				slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err, "requestId", requestID)
				return
			}
			saved = true
		})
	}
}
