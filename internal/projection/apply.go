package projection

import (
	"simbook/pkg/model"
)

// Update handlers. Each one is idempotent: it compares against the
// entity's current projected value instead of assuming monotonic arrival,
// so replays and per-entity reordering are safe. The feed consumer calls
// them strictly serialized.

// ApplySessionUpsert folds a session insert or update into the state.
// Only status, visibility and setup assignment are taken from updates of
// a known session; the accepted-operator list is owned by application
// events and is never overwritten here.
func (p *Projection) ApplySessionUpsert(s *model.Session) {
	if s == nil || s.ID == "" || s.Date == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.upsertSessionLocked(s)
}

func (p *Projection) upsertSessionLocked(s *model.Session) {
	incoming := copySession(s)

	if prevDate, ok := p.sessionDates[s.ID]; ok {
		existing := p.sessionsByDate[prevDate][s.ID]

		if prevDate != incoming.Date {
			// Date moves are rare; treat as remove-then-insert.
			p.removeSessionLocked(s.ID, prevDate)
		} else {
			existing.session.Status = incoming.Status
			existing.session.MarketplaceVisible = incoming.MarketplaceVisible
			existing.session.SetupIDs = incoming.SetupIDs
			existing.session.ConfirmedAt = incoming.ConfirmedAt
			p.recomputeDateLocked(incoming.Date)
			return
		}
		// Carry the accepted list and applications across the move.
		incoming.AcceptedOperatorIDs = existing.session.AcceptedOperatorIDs
		p.insertSessionLocked(incoming, existing.applications)
		p.recomputeDateLocked(prevDate)
		p.recomputeDateLocked(incoming.Date)
		return
	}

	p.insertSessionLocked(incoming, nil)
	p.recomputeDateLocked(incoming.Date)
}

func (p *Projection) insertSessionLocked(s *model.Session, applications map[string]*model.Application) {
	if applications == nil {
		applications = make(map[string]*model.Application)
	}
	bucket, ok := p.sessionsByDate[s.Date]
	if !ok {
		bucket = make(map[string]*sessionEntry)
		p.sessionsByDate[s.Date] = bucket
	}
	bucket[s.ID] = &sessionEntry{session: s, applications: applications}
	p.sessionDates[s.ID] = s.Date
}

// ApplySessionDelete removes the session from its date bucket, deleting
// the bucket when it empties. Unknown sessions are a no-op.
func (p *Projection) ApplySessionDelete(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	date, ok := p.sessionDates[sessionID]
	if !ok {
		return
	}
	p.removeSessionLocked(sessionID, date)
	p.recomputeDateLocked(date)
}

func (p *Projection) removeSessionLocked(sessionID, date string) {
	delete(p.sessionsByDate[date], sessionID)
	if len(p.sessionsByDate[date]) == 0 {
		delete(p.sessionsByDate, date)
	}
	delete(p.sessionDates, sessionID)
}

// ApplyApplicationUpsert folds an application transition into the state:
// the denormalized per-session record is replaced, and the session's
// accepted list plus the operator busy-date marks are adjusted from the
// status delta.
func (p *Projection) ApplyApplicationUpsert(a *model.Application) {
	if a == nil || a.SessionID == "" || a.OperatorID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.upsertApplicationLocked(a)
}

func (p *Projection) upsertApplicationLocked(a *model.Application) {
	entry := p.entryLocked(a.SessionID)
	if entry == nil {
		// Session not projected yet; a later rebuild reconciles. Dropping
		// here avoids inventing a bucket we cannot date.
		p.log.Warn("Application event for unknown session dropped",
			"session_id", a.SessionID,
			"operator_id", a.OperatorID,
		)
		return
	}

	clone := *a
	entry.applications[a.OperatorID] = &clone

	accepted := entry.session.HasAcceptedOperator(a.OperatorID)
	switch {
	case a.Status == model.ApplicationAccepted && !accepted:
		entry.session.AcceptedOperatorIDs = append(entry.session.AcceptedOperatorIDs, a.OperatorID)
	case a.Status != model.ApplicationAccepted && accepted:
		entry.session.AcceptedOperatorIDs = removeString(entry.session.AcceptedOperatorIDs, a.OperatorID)
	}

	p.recomputeDateLocked(entry.session.Date)
}

// ApplyOperatorUpsert replaces the operator snapshot wholesale.
func (p *Projection) ApplyOperatorUpsert(o *model.Operator) {
	if o == nil || o.ID == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := o.Snapshot()
	p.operators[o.ID] = &snapshot
}

// ApplyOperatorDelete drops the snapshot. Busy-date marks survive until
// the owning sessions change; they key off session state, not the roster.
func (p *Projection) ApplyOperatorDelete(operatorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.operators, operatorID)
}

// recomputeDateLocked rebuilds the setup and operator busy marks for one
// date from its bucket. Deriving the marks instead of patching them keeps
// every handler idempotent: re-applying a fact converges to the same
// marks. Cost is O(bucket size).
func (p *Projection) recomputeDateLocked(date string) {
	busySetups := make(map[string]bool)
	busyOperators := make(map[string]bool)

	for _, entry := range p.sessionsByDate[date] {
		if entry.session.IsCancelled() {
			continue
		}
		for _, setupID := range entry.session.SetupIDs {
			busySetups[setupID] = true
		}
		for _, operatorID := range entry.session.AcceptedOperatorIDs {
			busyOperators[operatorID] = true
		}
	}

	for setupID, marks := range p.setupsBusy {
		if busySetups[setupID] {
			continue
		}
		delete(marks, date)
		if len(marks) == 0 {
			delete(p.setupsBusy, setupID)
		}
	}
	for setupID := range busySetups {
		if p.setupsBusy[setupID] == nil {
			p.setupsBusy[setupID] = make(map[string]bool)
		}
		p.setupsBusy[setupID][date] = true
	}

	for operatorID, marks := range p.operatorsBusy {
		if busyOperators[operatorID] {
			continue
		}
		delete(marks, date)
		if len(marks) == 0 {
			delete(p.operatorsBusy, operatorID)
		}
	}
	for operatorID := range busyOperators {
		if p.operatorsBusy[operatorID] == nil {
			p.operatorsBusy[operatorID] = make(map[string]bool)
		}
		p.operatorsBusy[operatorID][date] = true
	}
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
