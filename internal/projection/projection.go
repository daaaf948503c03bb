package projection

import (
	"context"
	"sort"
	"sync"

	bookingrepo "simbook/internal/booking/repository"
	catalogrepo "simbook/internal/catalog/repository"
	marketplacerepo "simbook/internal/marketplace/repository"
	apperrors "simbook/pkg/errors"
	"simbook/pkg/logger"
	"simbook/pkg/model"
)

// sessionEntry is one session inside a date bucket together with its
// denormalized applications, keyed by operator ID.
type sessionEntry struct {
	session      *model.Session
	applications map[string]*model.Application
}

// SessionPlanning is the read-side join of a session and its applications.
type SessionPlanning struct {
	Session      *model.Session       `json:"session"`
	Applications []*model.Application `json:"applications"`
}

// ApplicationView joins an application with the operator snapshot so
// planners see who applied without a second lookup.
type ApplicationView struct {
	Application *model.Application      `json:"application"`
	Operator    *model.OperatorSnapshot `json:"operator,omitempty"`
}

// Projection is the in-memory read model over sessions, applications and
// operators. It is a pure cache: the repositories stay authoritative, and
// on any suspected divergence the only recovery is a full Rebuild. All
// maps are guarded by one RWMutex; update handlers run serialized by the
// feed consumer, reads may run concurrently.
type Projection struct {
	mu sync.RWMutex

	sessionsByDate map[string]map[string]*sessionEntry
	sessionDates   map[string]string
	operatorsBusy  map[string]map[string]bool
	setupsBusy     map[string]map[string]bool
	operators      map[string]*model.OperatorSnapshot

	sessions     bookingrepo.SessionRepository
	applications marketplacerepo.ApplicationRepository
	catalog      catalogrepo.OperatorRepository

	log   *logger.Logger
	ready bool
}

func New(
	sessions bookingrepo.SessionRepository,
	applications marketplacerepo.ApplicationRepository,
	operators catalogrepo.OperatorRepository,
	log *logger.Logger,
) *Projection {
	return &Projection{
		sessionsByDate: make(map[string]map[string]*sessionEntry),
		sessionDates:   make(map[string]string),
		operatorsBusy:  make(map[string]map[string]bool),
		setupsBusy:     make(map[string]map[string]bool),
		operators:      make(map[string]*model.OperatorSnapshot),
		sessions:       sessions,
		applications:   applications,
		catalog:        operators,
		log:            log,
	}
}

// Rebuild discards the current state and bulk-loads everything from the
// repositories. Called at startup and whenever the feed position is lost.
func (p *Projection) Rebuild(ctx context.Context) error {
	sessions, err := p.sessions.FindAll(ctx)
	if err != nil {
		return apperrors.Internal("Failed to load sessions for projection", err)
	}
	applications, err := p.applications.FindAll(ctx)
	if err != nil {
		return apperrors.Internal("Failed to load applications for projection", err)
	}
	operators, err := p.catalog.FindAll(ctx)
	if err != nil {
		return apperrors.Internal("Failed to load operators for projection", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sessionsByDate = make(map[string]map[string]*sessionEntry)
	p.sessionDates = make(map[string]string)
	p.operatorsBusy = make(map[string]map[string]bool)
	p.setupsBusy = make(map[string]map[string]bool)
	p.operators = make(map[string]*model.OperatorSnapshot)

	for _, o := range operators {
		snapshot := o.Snapshot()
		p.operators[o.ID] = &snapshot
	}
	for _, s := range sessions {
		p.upsertSessionLocked(s)
	}
	for _, a := range applications {
		p.upsertApplicationLocked(a)
	}
	p.ready = true

	p.log.Info("Projection rebuilt",
		"sessions", len(sessions),
		"applications", len(applications),
		"operators", len(operators),
	)
	return nil
}

// Ready reports whether an initial Rebuild has completed.
func (p *Projection) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// ────────────────────────────────────────────────
// Read accessors. All O(bucket size), never O(total state).
// ────────────────────────────────────────────────

func (p *Projection) DailyPlanning(date string) []*SessionPlanning {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bucket := p.sessionsByDate[date]
	planning := make([]*SessionPlanning, 0, len(bucket))
	for _, entry := range bucket {
		planning = append(planning, &SessionPlanning{
			Session:      copySession(entry.session),
			Applications: copyApplications(entry.applications),
		})
	}
	sort.Slice(planning, func(i, j int) bool {
		return planning[i].Session.ID < planning[j].Session.ID
	})
	return planning
}

// OperatorLoad returns the dates on which the operator holds at least one
// accepted session, in ascending order.
func (p *Projection) OperatorLoad(operatorID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dates := make([]string, 0, len(p.operatorsBusy[operatorID]))
	for date := range p.operatorsBusy[operatorID] {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// OperatorLoadOn counts the sessions in the date bucket holding the
// operator accepted.
func (p *Projection) OperatorLoadOn(operatorID, date string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.operatorLoadOnLocked(operatorID, date)
}

func (p *Projection) operatorLoadOnLocked(operatorID, date string) int {
	load := 0
	for _, entry := range p.sessionsByDate[date] {
		if !entry.session.IsCancelled() && entry.session.HasAcceptedOperator(operatorID) {
			load++
		}
	}
	return load
}

func (p *Projection) IsSetupAvailable(setupID, date string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.setupsBusy[setupID][date]
}

// Session returns the projected session by ID, or nil when unknown.
func (p *Projection) Session(sessionID string) *model.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry := p.entryLocked(sessionID)
	if entry == nil {
		return nil
	}
	return copySession(entry.session)
}

// Operator returns the projected operator snapshot, or nil when unknown.
func (p *Projection) Operator(operatorID string) *model.OperatorSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot, ok := p.operators[operatorID]
	if !ok {
		return nil
	}
	clone := *snapshot
	return &clone
}

// Operators returns all projected operator snapshots.
func (p *Projection) Operators() []*model.OperatorSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshots := make([]*model.OperatorSnapshot, 0, len(p.operators))
	for _, snapshot := range p.operators {
		clone := *snapshot
		snapshots = append(snapshots, &clone)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })
	return snapshots
}

// AvailableOperatorsForSession lists operators who could still staff the
// session: not already accepted on it, no open application for it, not
// declared unavailable on its date.
func (p *Projection) AvailableOperatorsForSession(sessionID string) []*model.OperatorSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry := p.entryLocked(sessionID)
	if entry == nil {
		return nil
	}

	var candidates []*model.OperatorSnapshot
	for id, snapshot := range p.operators {
		if !snapshot.Active {
			continue
		}
		if entry.session.HasAcceptedOperator(id) {
			continue
		}
		if a, ok := entry.applications[id]; ok && a.IsOpen() {
			continue
		}
		if !snapshot.IsAvailableOn(entry.session.Date) {
			continue
		}
		clone := *snapshot
		candidates = append(candidates, &clone)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates
}

// SessionApplications joins the session's applications with operator
// snapshots.
func (p *Projection) SessionApplications(sessionID string) []*ApplicationView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry := p.entryLocked(sessionID)
	if entry == nil {
		return nil
	}

	views := make([]*ApplicationView, 0, len(entry.applications))
	for operatorID, a := range entry.applications {
		clone := *a
		view := &ApplicationView{Application: &clone}
		if snapshot, ok := p.operators[operatorID]; ok {
			snapClone := *snapshot
			view.Operator = &snapClone
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].Application.OperatorID < views[j].Application.OperatorID
	})
	return views
}

func (p *Projection) entryLocked(sessionID string) *sessionEntry {
	date, ok := p.sessionDates[sessionID]
	if !ok {
		return nil
	}
	return p.sessionsByDate[date][sessionID]
}

func copySession(s *model.Session) *model.Session {
	clone := *s
	clone.SetupIDs = append([]string{}, s.SetupIDs...)
	clone.AcceptedOperatorIDs = append([]string{}, s.AcceptedOperatorIDs...)
	clone.ModuleIDs = append([]string{}, s.ModuleIDs...)
	return &clone
}

func copyApplications(apps map[string]*model.Application) []*model.Application {
	out := make([]*model.Application, 0, len(apps))
	for _, a := range apps {
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OperatorID < out[j].OperatorID })
	return out
}
