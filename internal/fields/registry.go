package fields

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/kritdbb/DobyHR/internal/ir"
	"github.com/kritdbb/DobyHR/internal/metricir"
	"github.com/kritdbb/DobyHR/internal/metricsql"
	"github.com/kritdbb/DobyHR/internal/store"
)

// ErrUnknownField is wrapped by every error reporting a name that is neither
// a static field nor a bindable item_<id> field.
var ErrUnknownField = errors.New("unknown field")

// UnknownFieldError reports an unknown field name with close alternatives.
type UnknownFieldError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownFieldError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown field: '%s'", e.Name)
	}
	return fmt.Sprintf("unknown field: '%s' (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

// Is makes errors.Is(err, ErrUnknownField) match.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// Resolver computes one field's current value for a user. Resolvers are
// read-only.
type Resolver func(ctx context.Context, userID int64) (int64, error)

// Source is the read surface resolvers need. *store.Store implements it.
// Lookups of missing rows must wrap store.ErrNotFound.
type Source interface {
	QueryInt(ctx context.Context, query string, args ...any) (int64, error)
	UserByID(ctx context.Context, id int64) (ir.User, error)
	RewardByID(ctx context.Context, id int64) (ir.RewardItem, error)
	ActiveRewards(ctx context.Context) ([]ir.RewardItem, error)
	PresentCheckinTimes(ctx context.Context, userID int64) ([]time.Time, error)
}

// Entry is one row of the field catalog.
type Entry struct {
	Field       string `json:"field"`
	Label       string `json:"label"`
	Description string `json:"desc"`
	Example     string `json:"example"`
}

// DefaultItemCacheSize bounds the number of item_<id> bindings kept.
const DefaultItemCacheSize = 256

// DefaultLocation is the local zone for day-based fields (UTC+7).
var DefaultLocation = time.FixedZone("UTC+7", 7*60*60)

var itemFieldRe = regexp.MustCompile(`^item_(\d+)$`)

// itemBinding is a cached item_<id> resolver with its catalog entry.
type itemBinding struct {
	resolve Resolver
	entry   Entry
}

// Registry maps field names to resolvers.
//
// Thread-safety: a Registry is safe for concurrent use. Static fields are
// immutable after construction and the item cache is internally locked.
type Registry struct {
	src       Source
	clock     ir.Clock
	loc       *time.Location
	logger    *slog.Logger
	cacheSize int

	static map[string]Resolver
	items  *lru.Cache
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used by day-based fields.
func WithClock(c ir.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLocation sets the local zone used to bucket days.
func WithLocation(loc *time.Location) Option {
	return func(r *Registry) {
		r.loc = loc
	}
}

// WithItemCacheSize bounds the item_<id> binding cache. Non-positive sizes
// fall back to DefaultItemCacheSize.
func WithItemCacheSize(n int) Option {
	return func(r *Registry) {
		r.cacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry builds the static field table over src.
func NewRegistry(src Source, opts ...Option) *Registry {
	r := &Registry{
		src:       src,
		clock:     ir.SystemClock{},
		loc:       DefaultLocation,
		logger:    slog.Default(),
		cacheSize: DefaultItemCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cacheSize <= 0 {
		r.cacheSize = DefaultItemCacheSize
	}
	// lru.New only fails for non-positive sizes.
	r.items, _ = lru.New(r.cacheSize)

	r.static = make(map[string]Resolver, len(staticFields))
	for _, def := range staticFields {
		if def.custom != nil {
			r.static[def.name] = def.custom(r)
			continue
		}
		r.static[def.name] = r.metricResolver(metricsql.MustCompile(def.metric))
	}
	return r
}

// Lookup returns the resolver for name, binding item_<id> fields on first
// reference. A bound item field stays bound until evicted from the cache.
//
// Unknown names fail with an error matching ErrUnknownField. Failure to read
// the reward catalog is returned as is.
func (r *Registry) Lookup(ctx context.Context, name string) (Resolver, error) {
	if res, ok := r.static[name]; ok {
		return res, nil
	}
	if cached, ok := r.items.Get(name); ok {
		return cached.(itemBinding).resolve, nil
	}

	m := itemFieldRe.FindStringSubmatch(name)
	if m == nil {
		return nil, r.unknown(name)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, r.unknown(name)
	}

	item, err := r.src.RewardByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, r.unknown(name)
	}
	if err != nil {
		return nil, fmt.Errorf("bind field %s: %w", name, err)
	}

	return r.bindItem(item).resolve, nil
}

// IsStatic reports whether name is one of the fixed fields.
func (r *Registry) IsStatic(name string) bool {
	_, ok := r.static[name]
	return ok
}

// StaticNames returns the fixed field names in catalog order.
func (r *Registry) StaticNames() []string {
	names := make([]string, 0, len(staticFields))
	for _, def := range staticFields {
		names = append(names, def.name)
	}
	return names
}

// Suggest returns up to three known names close to name, best first.
func (r *Registry) Suggest(name string) []string {
	candidates := r.StaticNames()
	for _, key := range r.items.Keys() {
		candidates = append(candidates, key.(string))
	}

	matches := fuzzy.Find(name, candidates)
	out := make([]string, 0, 3)
	for _, m := range matches {
		if len(out) == 3 {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Catalog describes every static field plus one item_<id> field per active
// reward catalog row, binding those item fields as a side effect. A catalog
// read failure is logged and only the static fields are returned.
func (r *Registry) Catalog(ctx context.Context) []Entry {
	entries := make([]Entry, 0, len(staticFields))
	for _, def := range staticFields {
		entries = append(entries, Entry{Field: def.name, Label: def.label, Description: def.desc, Example: def.example})
	}

	items, err := r.src.ActiveRewards(ctx)
	if err != nil {
		r.logger.Error("failed to load item fields", "error", err)
		return entries
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	for _, item := range items {
		entries = append(entries, r.bindItem(item).entry)
	}
	return entries
}

func (r *Registry) unknown(name string) error {
	return &UnknownFieldError{Name: name, Suggestions: r.Suggest(name)}
}

func (r *Registry) bindItem(item ir.RewardItem) itemBinding {
	key := "item_" + strconv.FormatInt(item.ID, 10)
	if cached, ok := r.items.Get(key); ok {
		return cached.(itemBinding)
	}
	b := itemBinding{
		resolve: r.metricResolver(metricsql.MustCompile(metricir.Aggregate{
			Func:  metricir.Count,
			Table: "redemptions",
			Filter: metricir.And{Predicates: []metricir.Predicate{
				metricir.SubjectEquals{Field: "user_id"},
				metricir.Equals{Field: "reward_id", Value: item.ID},
				metricir.NotEquals{Field: "status", Value: ir.RedemptionRejected},
			}},
		})),
		entry: Entry{
			Field:       key,
			Label:       "🛒 " + item.Name,
			Description: fmt.Sprintf("Times redeemed %q (id=%d)", item.Name, item.ID),
			Example:     key + " >= 1",
		},
	}
	r.items.Add(key, b)
	r.logger.Debug("bound item field", "field", key, "reward", item.Name)
	return b
}

func (r *Registry) metricResolver(stmt metricsql.Statement) Resolver {
	return func(ctx context.Context, userID int64) (int64, error) {
		return r.src.QueryInt(ctx, stmt.SQL, stmt.Args(userID)...)
	}
}
