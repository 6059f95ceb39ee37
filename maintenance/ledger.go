package maintenance

import (
	"context"
	"slices"

	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/store"
)

const (
	OpInitializeSchedule = "initializeMaintenanceSchedule"
	OpUpdateSchedule     = "updateMaintenanceSchedule"
	OpUpdateStatus       = "updateMaintenanceStatus"
	OpRecordMaintenance  = "recordMaintenance"
	OpReportIssue        = "reportIssue"
	OpUpdateIssueStatus  = "updateIssueStatus"
	OpResolveIssue       = "resolveIssue"
	OpFlagOverdue        = "flagOverdueMaintenance"
	OpUpdateDueToUsage   = "updateMaintenanceDueToUsage"
)

var policies = map[string]guard.Policy{
	OpInitializeSchedule: guard.Owner,
	OpUpdateSchedule:     guard.Owner,
	OpUpdateStatus:       guard.Owner,
	OpRecordMaintenance:  guard.Owner,
	OpReportIssue:        guard.Anyone,
	OpUpdateIssueStatus:  guard.Owner,
	OpResolveIssue:       guard.Owner,
	OpFlagOverdue:        guard.Owner,
	OpUpdateDueToUsage:   guard.Owner,
}

// Directory answers whether a bicycle id is registered. It is consulted
// from inside a ledger operation, so it must not take the store lock.
type Directory interface {
	Registered(id string) bool
}

type Ledger struct {
	s         *store.Store
	guard     *guard.Guard
	dir       Directory
	schedules *store.Table[string, Schedule]
	records   *store.Table[RecordKey, Record]
	issues    *store.Table[string, Issue]
	histories *store.Table[string, History]
}

// New creates the maintenance ledger. dir may be nil, in which case
// schedules are accepted for any bicycle id.
func New(s *store.Store, g *guard.Guard, dir Directory) *Ledger {
	return &Ledger{
		s:         s,
		guard:     g,
		dir:       dir,
		schedules: store.NewTable[string, Schedule](s, "maintenance-schedules"),
		records:   store.NewTable[RecordKey, Record](s, "maintenance-records"),
		issues:    store.NewTable[string, Issue](s, "maintenance-issues"),
		histories: store.NewTable[string, History](s, "bicycle-histories"),
	}
}

func (l *Ledger) authorize(op string, call guard.Call) error {
	if !l.guard.Allow(policies[op], call.Caller, "") {
		return ErrNotAuthorized
	}
	return nil
}

func (l *Ledger) InitializeSchedule(ctx context.Context, call guard.Call, bicycleID string, iv Intervals) (Schedule, error) {
	var sc Schedule
	err := l.s.Update(ctx, OpInitializeSchedule, func() error {
		if err := l.authorize(OpInitializeSchedule, call); err != nil {
			return err
		}
		if l.dir != nil && !l.dir.Registered(bicycleID) {
			return ErrBicycleNotFound
		}
		if l.schedules.Has(bicycleID) {
			return ErrScheduleExists
		}

		sc = Schedule{
			BicycleID:            bicycleID,
			LastMaintenanceBlock: call.Now,
			NextMaintenanceDue:   nextDue(call.Now, iv.Days),
			Intervals:            iv,
			Status:               UpToDate,
		}
		l.schedules.Put(bicycleID, sc)
		l.histories.Put(bicycleID, History{Records: IDLog{}, Issues: IDLog{}})
		return nil
	})
	return sc, err
}

// UpdateSchedule replaces the intervals and moves the due block to now plus
// the new day interval.
func (l *Ledger) UpdateSchedule(ctx context.Context, call guard.Call, bicycleID string, iv Intervals) (Schedule, error) {
	var sc Schedule
	err := l.s.Update(ctx, OpUpdateSchedule, func() error {
		if err := l.authorize(OpUpdateSchedule, call); err != nil {
			return err
		}
		var ok bool
		sc, ok = l.schedules.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}

		sc.Intervals = iv
		sc.NextMaintenanceDue = nextDue(call.Now, iv.Days)
		l.schedules.Put(bicycleID, sc)
		return nil
	})
	return sc, err
}

func (l *Ledger) UpdateStatus(ctx context.Context, call guard.Call, bicycleID, status string) (Status, error) {
	var st Status
	err := l.s.Update(ctx, OpUpdateStatus, func() error {
		if err := l.authorize(OpUpdateStatus, call); err != nil {
			return err
		}
		var err error
		if st, err = ParseStatus(status); err != nil {
			return err
		}
		sc, ok := l.schedules.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}

		sc.Status = st
		l.schedules.Put(bicycleID, sc)
		return nil
	})
	return st, err
}

// RecordMaintenance stores a service record and resets the schedule: the
// service block becomes now, the due block moves forward and the status
// returns to up-to-date.
func (l *Ledger) RecordMaintenance(ctx context.Context, call guard.Call, in RecordInput) (Record, error) {
	var rec Record
	err := l.s.Update(ctx, OpRecordMaintenance, func() error {
		if err := l.authorize(OpRecordMaintenance, call); err != nil {
			return err
		}
		sc, ok := l.schedules.Get(in.BicycleID)
		if !ok {
			return ErrBicycleNotFound
		}
		h, ok := l.histories.Get(in.BicycleID)
		if !ok {
			return ErrBicycleNotFound
		}
		key := RecordKey{BicycleID: in.BicycleID, RecordID: in.RecordID}
		if l.records.Has(key) {
			return ErrRecordExists
		}

		due := nextDue(call.Now, sc.Intervals.Days)
		rec = Record{
			BicycleID:       in.BicycleID,
			RecordID:        in.RecordID,
			Type:            in.Type,
			PerformedBy:     call.Caller,
			PerformedAt:     call.Now,
			PartsReplaced:   slices.Clone(in.PartsReplaced),
			Notes:           in.Notes,
			Cost:            in.Cost,
			DurationMinutes: in.DurationMinutes,
			NextDue:         due,
		}
		sc.LastMaintenanceBlock = call.Now
		sc.NextMaintenanceDue = due
		sc.LifetimeCount++
		sc.Status = UpToDate
		h.Records = h.Records.Append(in.RecordID)

		l.records.Put(key, rec)
		l.schedules.Put(in.BicycleID, sc)
		l.histories.Put(in.BicycleID, h)
		return nil
	})
	return rec, err
}

// ReportIssue is open to any caller. A critical report forces the schedule
// to overdue in the same operation.
func (l *Ledger) ReportIssue(ctx context.Context, call guard.Call, bicycleID, issueID, issueType, description, severity string) (Issue, error) {
	var is Issue
	err := l.s.Update(ctx, OpReportIssue, func() error {
		if err := l.authorize(OpReportIssue, call); err != nil {
			return err
		}
		sev, err := ParseSeverity(severity)
		if err != nil {
			return err
		}
		sc, ok := l.schedules.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}
		h, ok := l.histories.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}
		if l.issues.Has(issueID) {
			return ErrIssueExists
		}

		is = Issue{
			ID:          issueID,
			BicycleID:   bicycleID,
			ReportedBy:  call.Caller,
			ReportedAt:  call.Now,
			Type:        issueType,
			Description: description,
			Severity:    sev,
			Status:      Reported,
		}
		h.Issues = h.Issues.Append(issueID)

		l.issues.Put(issueID, is)
		l.histories.Put(bicycleID, h)
		if sev == Critical {
			sc.Status = Overdue
			l.schedules.Put(bicycleID, sc)
		}
		return nil
	})
	return is, err
}

// UpdateIssueStatus sets any issue status, including reopening a resolved
// issue. Resolution fields are left as they are.
func (l *Ledger) UpdateIssueStatus(ctx context.Context, call guard.Call, issueID, status string) (IssueStatus, error) {
	var st IssueStatus
	err := l.s.Update(ctx, OpUpdateIssueStatus, func() error {
		if err := l.authorize(OpUpdateIssueStatus, call); err != nil {
			return err
		}
		var err error
		if st, err = ParseIssueStatus(status); err != nil {
			return err
		}
		is, ok := l.issues.Get(issueID)
		if !ok {
			return ErrIssueNotFound
		}

		is.Status = st
		l.issues.Put(issueID, is)
		return nil
	})
	return st, err
}

func (l *Ledger) ResolveIssue(ctx context.Context, call guard.Call, issueID, notes string) (Issue, error) {
	var is Issue
	err := l.s.Update(ctx, OpResolveIssue, func() error {
		if err := l.authorize(OpResolveIssue, call); err != nil {
			return err
		}
		var ok bool
		is, ok = l.issues.Get(issueID)
		if !ok {
			return ErrIssueNotFound
		}

		is.Status = Resolved
		is.ResolutionNotes = notes
		is.ResolvedAt = call.Now
		is.ResolvedBy = call.Caller
		l.issues.Put(issueID, is)
		return nil
	})
	return is, err
}

// FlagOverdue marks a schedule overdue once its due block has been reached.
func (l *Ledger) FlagOverdue(ctx context.Context, call guard.Call, bicycleID string) error {
	return l.s.Update(ctx, OpFlagOverdue, func() error {
		if err := l.authorize(OpFlagOverdue, call); err != nil {
			return err
		}
		sc, ok := l.schedules.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}
		if call.Now < sc.NextMaintenanceDue {
			return ErrTooEarly
		}

		sc.Status = Overdue
		l.schedules.Put(bicycleID, sc)
		return nil
	})
}

// UpdateDueToUsage escalates the schedule from usage since the last service.
// It never lowers the status back to up-to-date.
func (l *Ledger) UpdateDueToUsage(ctx context.Context, call guard.Call, bicycleID string, rides, distance uint64) (Status, error) {
	var st Status
	err := l.s.Update(ctx, OpUpdateDueToUsage, func() error {
		if err := l.authorize(OpUpdateDueToUsage, call); err != nil {
			return err
		}
		sc, ok := l.schedules.Get(bicycleID)
		if !ok {
			return ErrBicycleNotFound
		}

		var changed bool
		if st, changed = sc.usageStatus(rides, distance); changed {
			sc.Status = st
			l.schedules.Put(bicycleID, sc)
		}
		return nil
	})
	return st, err
}

func (l *Ledger) GetSchedule(bicycleID string) (Schedule, error) {
	var (
		sc Schedule
		ok bool
	)
	l.s.View(func() {
		sc, ok = l.schedules.Get(bicycleID)
	})
	if !ok {
		return Schedule{}, ErrBicycleNotFound
	}
	return sc, nil
}

func (l *Ledger) GetRecord(bicycleID, recordID string) (Record, error) {
	var (
		rec Record
		ok  bool
	)
	l.s.View(func() {
		rec, ok = l.records.Get(RecordKey{BicycleID: bicycleID, RecordID: recordID})
	})
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	rec.PartsReplaced = slices.Clone(rec.PartsReplaced)
	return rec, nil
}

func (l *Ledger) GetIssue(issueID string) (Issue, error) {
	var (
		is Issue
		ok bool
	)
	l.s.View(func() {
		is, ok = l.issues.Get(issueID)
	})
	if !ok {
		return Issue{}, ErrIssueNotFound
	}
	return is, nil
}

func (l *Ledger) history(bicycleID string) (History, error) {
	var (
		h  History
		ok bool
	)
	l.s.View(func() {
		h, ok = l.histories.Get(bicycleID)
	})
	if !ok {
		return History{}, ErrBicycleNotFound
	}
	return h, nil
}

// MaintenanceHistory returns record ids, oldest first.
func (l *Ledger) MaintenanceHistory(bicycleID string) ([]string, error) {
	h, err := l.history(bicycleID)
	if err != nil {
		return nil, err
	}
	return slices.Clone([]string(h.Records)), nil
}

// IssueHistory returns issue ids, oldest first.
func (l *Ledger) IssueHistory(bicycleID string) ([]string, error) {
	h, err := l.history(bicycleID)
	if err != nil {
		return nil, err
	}
	return slices.Clone([]string(h.Issues)), nil
}

// IsMaintenanceDue is false for bicycles without a schedule.
func (l *Ledger) IsMaintenanceDue(bicycleID string) bool {
	sc, err := l.GetSchedule(bicycleID)
	return err == nil && sc.Due()
}

type Stats struct {
	LifetimeCount   uint64 `json:"lifetimeCount"`
	BlocksSinceLast int64  `json:"blocksSinceLast"`
	// BlocksUntilNext is negative once the due block has passed.
	BlocksUntilNext int64 `json:"blocksUntilNext"`
}

func (l *Ledger) Stats(bicycleID string, now uint64) (Stats, error) {
	sc, err := l.GetSchedule(bicycleID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		LifetimeCount:   sc.LifetimeCount,
		BlocksSinceLast: int64(now - sc.LastMaintenanceBlock),
		BlocksUntilNext: int64(sc.NextMaintenanceDue - now),
	}, nil
}

// HasCriticalIssues reports an unresolved critical issue among the ids the
// bicycle's history still holds.
func (l *Ledger) HasCriticalIssues(bicycleID string) bool {
	var found bool
	l.s.View(func() {
		h, ok := l.histories.Get(bicycleID)
		if !ok {
			return
		}
		for _, id := range h.Issues {
			is, ok := l.issues.Get(id)
			if ok && is.Severity == Critical && is.Open() {
				found = true
				return
			}
		}
	})
	return found
}
