package recon

// Record is one side of a record pair: field name to value. A nil Record
// means the side is entirely absent, which is itself meaningful (the
// missing-counterpart scenario). Use Get for lookups - it maps missing
// fields on a present record to Null.
type Record map[string]Value

// Get returns the value for a field, or Null if the record does not
// carry it. The record must be non-nil; absence of the whole side is
// handled one level up by RecordPair.
func (r Record) Get(field string) Value {
	if v, ok := r[field]; ok && v != nil {
		return v
	}
	return Null{}
}

// Side names one side of a record pair as referenced by rule
// expressions (internal.amount, mis.amount).
type Side string

const (
	// SideInternal is the internal (own-system) side of a pair.
	SideInternal Side = "internal"

	// SideMIS is the counterpart (bank/MIS) side of a pair.
	SideMIS Side = "mis"
)

// RecordPair holds the internal and MIS data for one logical
// transaction. Either side may be nil.
type RecordPair struct {
	// ID identifies the record pair, normally the shared unique-column
	// value both sides were joined on.
	ID string

	// FileType1ID and FileType2ID scope the pair to a file-type
	// combination; mapping entries are selected against these.
	FileType1ID string
	FileType2ID string

	// TransactionDate is the pair's business date (YYYY-MM-DD) when the
	// source supplies one. Used by the missing-counterpart scenario to
	// check file ingestion.
	TransactionDate string

	Internal Record
	MIS      Record
}

// HasInternal reports whether the internal side is present.
func (p RecordPair) HasInternal() bool { return p.Internal != nil }

// HasMIS reports whether the MIS side is present.
func (p RecordPair) HasMIS() bool { return p.MIS != nil }

// SideRecord returns the record for a side, nil if that side is absent.
func (p RecordPair) SideRecord(s Side) Record {
	if s == SideInternal {
		return p.Internal
	}
	return p.MIS
}

// OneSided reports whether exactly one side of the pair is present.
func (p RecordPair) OneSided() bool {
	return p.HasInternal() != p.HasMIS()
}
