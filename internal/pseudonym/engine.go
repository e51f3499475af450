package pseudonym

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/tinymask/internal/crypto"
	"github.com/abdul-hamid-achik/tinymask/internal/logging"
	"github.com/abdul-hamid-achik/tinymask/internal/metrics"
	"github.com/abdul-hamid-achik/tinymask/internal/store"
	"github.com/abdul-hamid-achik/tinymask/internal/validation"
)

// DefaultTimeout bounds each store round-trip when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

const metaVersion = 1

// Options configures an Engine.
type Options struct {
	// Salt seeds every derivation. Required.
	Salt string
	// Timeout bounds each store round-trip.
	Timeout time.Duration
}

// Stats summarizes the mappings held by the store.
type Stats struct {
	TotalMappings int64               `json:"total_mappings"`
	ByType        map[ValueType]int64 `json:"by_type"`
}

// Engine derives pseudonyms, persists their mappings and reverses them.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	store   store.Store
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

// New stretches the salt into a derivation key and records the key
// fingerprint in the store's namespace metadata. A fingerprint that differs
// from the stored one is logged: reversal of existing mappings keeps working,
// but values first seen from now on derive different pseudonyms.
//
// The caller keeps ownership of s.
func New(ctx context.Context, s store.Store, opts Options) (*Engine, error) {
	key, err := crypto.DeriveKey([]byte(opts.Salt), crypto.DomainSalt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := &Engine{
		store:   s,
		key:     key,
		timeout: timeout,
		now:     time.Now,
	}

	if err := e.checkNamespace(ctx); err != nil {
		crypto.ZeroBytes(key)
		return nil, err
	}
	return e, nil
}

// Close zeros the derivation key. The engine must not be used afterwards.
func (e *Engine) Close() {
	crypto.ZeroBytes(e.key)
}

func (e *Engine) checkNamespace(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	fingerprint := crypto.Fingerprint(e.key)

	meta, err := e.store.GetMeta(ctx)
	if errors.Is(err, store.ErrNotFound) {
		meta = &store.NamespaceMeta{
			Version:        metaVersion,
			NamespaceID:    uuid.New().String(),
			KeyFingerprint: fingerprint,
			CreatedAt:      e.now().UTC(),
		}
		if err := e.store.SetMeta(ctx, meta); err != nil {
			return fmt.Errorf("%w: set namespace meta: %w", ErrStore, err)
		}
		logging.Logger(ctx).Info("initialized mapping namespace", "namespace_id", meta.NamespaceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: get namespace meta: %w", ErrStore, err)
	}

	if !crypto.CompareFingerprints(meta.KeyFingerprint, fingerprint) {
		logging.Logger(ctx).Warn("salt differs from the one that created this namespace; new values will not match pseudonyms from other instances",
			"namespace_id", meta.NamespaceID,
		)
	}
	return nil
}

// Derive returns the candidate pseudonym for value at disambiguator n
// without touching the store.
func (e *Engine) Derive(value string, t ValueType, n int) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, t)
	}
	return derive(e.key, value, t, n)
}

// Anonymize returns the pseudonym for value. An existing mapping is returned
// unchanged; otherwise a candidate is derived, persisted and returned. If the
// candidate belongs to another value, the next disambiguator is tried. If a
// concurrent writer persists a mapping for the same value first, that
// mapping wins and is returned.
func (e *Engine) Anonymize(ctx context.Context, value string, t ValueType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, t)
	}
	if err := validation.OriginalValue(value); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	existing, err := e.getByOriginal(ctx, value, t)
	if err == nil {
		metrics.Lookups.WithLabelValues("anonymize", "hit").Inc()
		return existing.Pseudonym, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		metrics.Lookups.WithLabelValues("anonymize", "error").Inc()
		return "", fmt.Errorf("%w: get by original: %w", ErrStore, err)
	}

	logger := logging.Logger(ctx)
	for n := 0; n < MaxDisambiguators; n++ {
		candidate, err := derive(e.key, value, t, n)
		if err != nil {
			return "", err
		}

		m := &store.Mapping{
			Pseudonym: candidate,
			Original:  value,
			ValueType: string(t),
			CreatedAt: e.now().UTC(),
		}
		inserted, err := e.putIfAbsent(ctx, m)
		switch {
		case errors.Is(err, store.ErrPseudonymTaken):
			metrics.Collisions.WithLabelValues(string(t)).Inc()
			logger.Warn("pseudonym collision, trying next disambiguator",
				"value_type", t,
				"pseudonym", candidate,
				"disambiguator", n,
			)
			continue

		case err != nil:
			metrics.Lookups.WithLabelValues("anonymize", "error").Inc()
			return "", fmt.Errorf("%w: put mapping: %w", ErrStore, err)

		case inserted:
			metrics.Lookups.WithLabelValues("anonymize", "created").Inc()
			metrics.PseudonymsCreated.WithLabelValues(string(t)).Inc()
			logger.Debug("created pseudonym mapping", "value_type", t, "pseudonym", candidate)
			return candidate, nil
		}

		// Another writer stored this value first; its pseudonym wins.
		winner, err := e.getByOriginal(ctx, value, t)
		if err != nil {
			metrics.Lookups.WithLabelValues("anonymize", "error").Inc()
			return "", fmt.Errorf("%w: re-fetch after conflict: %w", ErrStore, err)
		}
		metrics.Lookups.WithLabelValues("anonymize", "hit").Inc()
		return winner.Pseudonym, nil
	}

	metrics.Lookups.WithLabelValues("anonymize", "error").Inc()
	return "", fmt.Errorf("%w: %s after %d candidates: %w", ErrStore, t, MaxDisambiguators, ErrSlotsExhausted)
}

// Lookup returns the original value for pseudonym under exactly type t.
// A miss is reported as ok == false with a nil error.
func (e *Engine) Lookup(ctx context.Context, pseudonym string, t ValueType) (original string, ok bool, err error) {
	if !t.Valid() {
		return "", false, fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, t)
	}
	if err := validation.Pseudonym(pseudonym); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	m, err := e.getByPseudonym(ctx, pseudonym, t)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get by pseudonym: %w", ErrStore, err)
	}
	return m.Original, true, nil
}

// Deanonymize returns the original value for pseudonym. The hinted type is
// tried first, then every other type in ValueTypes order; a match found by
// fallback is logged. An empty hint means TypeGeneric. A miss under every
// type is reported as ok == false with a nil error.
func (e *Engine) Deanonymize(ctx context.Context, pseudonym string, hint ValueType) (original string, ok bool, err error) {
	if hint == "" {
		hint = TypeGeneric
	}
	if !hint.Valid() {
		return "", false, fmt.Errorf("%w: unknown value type %q", ErrInvalidInput, hint)
	}
	if err := validation.Pseudonym(pseudonym); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	order := make([]ValueType, 0, len(fallbackOrder))
	order = append(order, hint)
	for _, t := range fallbackOrder {
		if t != hint {
			order = append(order, t)
		}
	}

	for i, t := range order {
		m, err := e.getByPseudonym(ctx, pseudonym, t)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			metrics.Lookups.WithLabelValues("deanonymize", "error").Inc()
			return "", false, fmt.Errorf("%w: get by pseudonym: %w", ErrStore, err)
		}
		if i > 0 {
			metrics.TypeFallbacks.WithLabelValues(string(hint), string(t)).Inc()
			logging.Logger(ctx).Warn("pseudonym resolved under fallback type",
				"pseudonym", pseudonym,
				"hint", hint,
				"matched", t,
			)
		}
		metrics.Lookups.WithLabelValues("deanonymize", "hit").Inc()
		return m.Original, true, nil
	}

	metrics.Lookups.WithLabelValues("deanonymize", "miss").Inc()
	return "", false, nil
}

// Stats returns mapping counts for every value type.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	counts, err := e.store.CountByType(ctx)
	metrics.StoreOperationDuration.WithLabelValues("count_by_type").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: count by type: %w", ErrStore, err)
	}

	stats := &Stats{ByType: make(map[ValueType]int64, len(fallbackOrder))}
	for _, t := range fallbackOrder {
		stats.ByType[t] = 0
	}
	for name, n := range counts {
		stats.ByType[ValueType(name)] = n
		stats.TotalMappings += n
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// Store round-trips
// ---------------------------------------------------------------------------

func (e *Engine) getByOriginal(ctx context.Context, value string, t ValueType) (*store.Mapping, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	m, err := e.store.GetByOriginal(ctx, value, string(t))
	metrics.StoreOperationDuration.WithLabelValues("get_by_original").Observe(time.Since(start).Seconds())
	return m, err
}

func (e *Engine) getByPseudonym(ctx context.Context, pseudonym string, t ValueType) (*store.Mapping, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	m, err := e.store.GetByPseudonym(ctx, pseudonym, string(t))
	metrics.StoreOperationDuration.WithLabelValues("get_by_pseudonym").Observe(time.Since(start).Seconds())
	return m, err
}

func (e *Engine) putIfAbsent(ctx context.Context, m *store.Mapping) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	inserted, err := e.store.PutIfAbsent(ctx, m)
	metrics.StoreOperationDuration.WithLabelValues("put_if_absent").Observe(time.Since(start).Seconds())
	return inserted, err
}
