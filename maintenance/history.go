package maintenance

// MaxHistory bounds each history sequence. Appending to a full sequence
// evicts its oldest id.
const MaxHistory = 100

// IDLog is a bounded FIFO of ids, oldest first. Append never mutates the
// receiver's backing array, so values read from a table stay untouched until
// the new log is written back.
type IDLog []string

func (l IDLog) Append(id string) IDLog {
	if len(l) >= MaxHistory {
		l = l[len(l)-MaxHistory+1:]
	}
	out := make(IDLog, 0, len(l)+1)
	out = append(out, l...)
	return append(out, id)
}

// History links a bicycle to its records and issues by id only.
type History struct {
	Records IDLog `json:"maintenanceRecords"`
	Issues  IDLog `json:"issueRecords"`
}
