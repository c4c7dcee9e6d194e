// Package notifier is the single shared notification service. It owns the
// latest classification per view, the badge state and the grouped lists, and
// recomputes them whenever the snapshot, the identity or a dismissal record
// changes. Views observe it through Subscribe instead of polling on their own.
package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/pharmacy-notifier/aggregator"
	"github.com/giygas/pharmacy-notifier/classifier"
	"github.com/giygas/pharmacy-notifier/clock"
	"github.com/giygas/pharmacy-notifier/dismissal"
	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
	"github.com/giygas/pharmacy-notifier/metrics"
	"github.com/google/uuid"
)

// DismissalStore is what the service needs from the dismissal package
type DismissalStore interface {
	aggregator.SeenMarker
	MarkDeleted(ctx context.Context, id identity.Identity, itemID string) error
}

// IdentitySource reports the logged-in identity
type IdentitySource interface {
	Current() (identity.Identity, bool)
}

// Compile-time check to ensure the dismissal store can back the service
var _ DismissalStore = (*dismissal.Store)(nil)

type gater interface {
	SetGate(func() bool)
}

// Counts are the group sizes of one view
type Counts struct {
	Expired      int `json:"expired"`
	LowStock     int `json:"low_stock"`
	ExpiringSoon int `json:"expiring_soon"`
}

// State is what subscribers receive after every recomputation
type State struct {
	Identity   identity.Identity `json:"identity"`
	Unread     int               `json:"unread_count"`
	Counts     map[View]Counts   `json:"counts"`
	SnapshotAt time.Time         `json:"snapshot_at"`
	ComputedAt time.Time         `json:"computed_at"`
}

// Deps are the collaborators of the service
type Deps struct {
	Clock      clock.Clock
	Data       interfaces.DataStore
	Dismissals DismissalStore
	Session    IdentitySource
	Scheduler  interfaces.Scheduler
	Bus        *events.Bus
}

// Service computes and publishes notification state
type Service struct {
	clock    clock.Clock
	data     interfaces.DataStore
	store    DismissalStore
	session  IdentitySource
	sched    interfaces.Scheduler
	bus      *events.Bus
	horizons Horizons
	badge    *aggregator.Badge
	list     *aggregator.List

	// passes numbers recomputations in the order they read the dismissal
	// store; applied is the newest pass whose result may stand
	passes atomic.Uint64

	mu         sync.RWMutex
	applied    uint64
	identity   identity.Identity
	lists      map[View]aggregator.Lists
	badgeState aggregator.BadgeState
	state      State

	subsMu sync.Mutex
	subs   map[string]func(State)

	unsubscribe func()
}

// New creates the service. Call Start to begin reacting to events.
func New(deps Deps, horizons Horizons) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	s := &Service{
		clock:    deps.Clock,
		data:     deps.Data,
		store:    deps.Dismissals,
		session:  deps.Session,
		sched:    deps.Scheduler,
		bus:      deps.Bus,
		horizons: horizons,
		badge:    aggregator.NewBadge(deps.Dismissals),
		list:     aggregator.NewList(deps.Dismissals),
		subs:     make(map[string]func(State)),
	}
	s.resetLocked(identity.Identity{})
	return s
}

// Start subscribes to the bus, gates the scheduler on a logged-in identity and
// computes the initial state.
func (s *Service) Start() {
	if g, ok := s.sched.(gater); ok {
		g.SetGate(s.loggedIn)
	}
	if s.bus != nil {
		s.unsubscribe = s.bus.Subscribe(s.handle)
	}
	s.recompute(context.Background())
}

// Close stops reacting to events
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Service) loggedIn() bool {
	_, ok := s.session.Current()
	return ok
}

func (s *Service) handle(e events.Event) {
	ctx := context.Background()

	switch e.Kind {
	case events.SnapshotUpdated:
		s.recompute(ctx)

	case events.DismissalChanged:
		if current, _ := s.session.Current(); current.Same(e.Identity) {
			s.recompute(ctx)
		}

	case events.StorageChanged:
		current, ok := s.session.Current()
		if ok && dismissal.Owns(e.Key, current) {
			logging.Debug("Dismissal record changed elsewhere", "key", e.Key)
			s.recompute(ctx)
		}

	case events.IdentityChanged:
		s.mu.Lock()
		s.resetLocked(e.Identity)
		state := s.state
		s.mu.Unlock()

		metrics.UnreadNotifications.Set(0)
		s.notify(state)

		if s.sched != nil {
			s.sched.Restart()
		}
	}
}

// resetLocked drops everything computed for the previous identity. Caller
// must hold mu.
func (s *Service) resetLocked(id identity.Identity) {
	s.identity = id
	s.lists = make(map[View]aggregator.Lists, len(Views))
	for _, v := range Views {
		s.lists[v] = aggregator.EmptyLists()
	}
	s.badgeState = aggregator.BadgeState{Visible: []string{}}
	s.state = State{
		Identity:   id,
		Counts:     countsOf(s.lists),
		ComputedAt: s.clock.Now(),
	}
}

// Refresh recomputes from the stored snapshot without fetching
func (s *Service) Refresh(ctx context.Context) {
	s.recompute(ctx)
}

func (s *Service) recompute(ctx context.Context) {
	pass := s.passes.Add(1)

	id, ok := s.session.Current()
	if !ok {
		s.mu.Lock()
		s.advanceLocked(pass)
		changed := s.identity.Complete() || s.state.Unread != 0
		s.resetLocked(id)
		state := s.state
		s.mu.Unlock()
		if changed {
			metrics.UnreadNotifications.Set(0)
			s.notify(state)
		}
		return
	}

	snapshot := s.data.GetMedicines()
	index := s.data.GetMedicinesMap()
	now := s.clock.Now()

	lists := make(map[View]aggregator.Lists, len(Views))
	var badge aggregator.BadgeState
	for _, v := range Views {
		res := classifier.Classify(snapshot, now, s.horizons.forView(v))
		lists[v] = s.list.Compute(ctx, id, index, res)
		if v == ViewNotifications {
			badge = s.badge.Compute(ctx, id, res)
		}
	}

	s.mu.Lock()
	// Identity switched while computing: the result belongs to nobody
	if current, _ := s.session.Current(); !current.Same(id) {
		s.mu.Unlock()
		logging.Debug("Discarding notification state for previous identity", "identity", id.String())
		return
	}
	// A newer pass, or a dismissal written after this pass loaded, already landed
	if pass <= s.applied {
		s.mu.Unlock()
		logging.Debug("Discarding superseded notification state", "pass", pass)
		return
	}
	s.applied = pass
	s.identity = id
	s.lists = lists
	s.badgeState = badge
	s.state = State{
		Identity:   id,
		Unread:     badge.Unread,
		Counts:     countsOf(lists),
		SnapshotAt: s.data.GetLastUpdated(),
		ComputedAt: now,
	}
	state := s.state
	s.mu.Unlock()

	metrics.UnreadNotifications.Set(float64(badge.Unread))
	s.notify(state)
}

// advanceLocked moves applied forward to pass. Caller must hold mu.
func (s *Service) advanceLocked(pass uint64) {
	if pass > s.applied {
		s.applied = pass
	}
}

func countsOf(lists map[View]aggregator.Lists) map[View]Counts {
	counts := make(map[View]Counts, len(lists))
	for v, l := range lists {
		counts[v] = Counts{
			Expired:      len(l.Expired),
			LowStock:     len(l.LowStock),
			ExpiringSoon: len(l.ExpiringSoon),
		}
	}
	return counts
}

// State returns the latest computed state
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UnreadCount returns the badge value
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.badgeState.Unread
}

// VisibleLists returns a copy of the grouped lists of view
func (s *Service) VisibleLists(view View) (aggregator.Lists, error) {
	if _, err := ParseView(string(view)); err != nil {
		return aggregator.Lists{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists[view].Clone(), nil
}

// Item is one medicine with its classes under a view's horizon
type Item struct {
	View     View                        `json:"view"`
	Medicine entities.Medicine           `json:"medicine"`
	Classes  []classifier.Classification `json:"classes"`
	Deleted  bool                        `json:"deleted"`
}

// Item classifies a single medicine of the current snapshot for view
func (s *Service) Item(ctx context.Context, view View, itemID string) (Item, error) {
	view, err := ParseView(string(view))
	if err != nil {
		return Item{}, err
	}
	who, ok := s.session.Current()
	if !ok {
		return Item{}, ErrNoIdentity
	}

	m, found := s.data.GetMedicinesMap()[itemID]
	if !found {
		return Item{}, ErrUnknownItem
	}

	return Item{
		View:     view,
		Medicine: m,
		Classes:  classifier.ClassifyOne(m, s.clock.Now(), s.horizons.forView(view)),
		Deleted:  s.store.Load(ctx, who).Deleted.Has(itemID),
	}, nil
}

// Dismiss hides id from every view for the current identity. The displayed
// lists drop it right away, before any further recomputation.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	who, ok := s.session.Current()
	if !ok {
		return ErrNoIdentity
	}

	// Passes started before the write may carry the old record
	barrier := s.passes.Load()
	if err := s.store.MarkDeleted(ctx, who, id); err != nil {
		logging.Warn("Failed to dismiss notification", "identity", who.String(), "id", id, "error", err)
		return err
	}
	metrics.DismissalsTotal.WithLabelValues(string(dismissal.KindDeleted)).Inc()

	s.mu.Lock()
	s.advanceLocked(barrier)
	if s.identity.Same(who) {
		for v, l := range s.lists {
			l.Remove(id)
			s.lists[v] = l
		}
		s.state.Counts = countsOf(s.lists)
	}
	s.mu.Unlock()

	// The badge follows through the DismissalChanged event; without a bus
	// recompute directly
	if s.bus == nil {
		s.recompute(ctx)
	}
	return nil
}

// MarkVisitedSeen marks every visible notification as seen for the current
// identity, resetting the unread count to zero.
func (s *Service) MarkVisitedSeen(ctx context.Context) (aggregator.BadgeState, error) {
	who, ok := s.session.Current()
	if !ok {
		return aggregator.BadgeState{Visible: []string{}}, ErrNoIdentity
	}

	// Classify from the snapshot rather than the cached lists, which are empty
	// right after an identity switch
	res := classifier.Classify(s.data.GetMedicines(), s.clock.Now(), s.horizons.forView(ViewNotifications))

	barrier := s.passes.Load()
	state, err := s.badge.MarkVisited(ctx, who, res)
	if err != nil {
		logging.Warn("Failed to mark notifications seen", "identity", who.String(), "error", err)
		return state, err
	}
	metrics.DismissalsTotal.WithLabelValues(string(dismissal.KindSeen)).Add(float64(len(state.Visible)))

	s.mu.Lock()
	s.advanceLocked(barrier)
	if s.identity.Same(who) {
		s.badgeState = state
		s.state.Unread = state.Unread
	}
	s.mu.Unlock()

	if s.bus == nil {
		s.recompute(ctx)
	}
	return state, nil
}

// Subscribe registers fn to receive every new State. fn must not block.
func (s *Service) Subscribe(fn func(State)) (unsubscribe func()) {
	id := uuid.NewString()

	s.subsMu.Lock()
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Subscribers returns the number of registered observers
func (s *Service) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Service) notify(state State) {
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
