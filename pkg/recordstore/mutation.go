package recordstore

import "fmt"

// Merge returns stored with the columns of patch applied. The Id is never changed.
func Merge(stored, patch Record) Record {
	merged := stored.Clone()

	for key, value := range patch {
		if key == IDField {
			continue
		}

		merged[key] = value
	}

	return merged
}

// Satisfies reports whether the record matches every precondition.
func Satisfies(record Record, where []Condition) bool {
	for _, c := range where {
		if !MatchCondition(record, c) {
			return false
		}
	}

	return true
}

// PreconditionFailed is the per-record result for an update whose precondition did not hold.
func PreconditionFailed(id int64) Result {
	return Failed(CodePreconditionFailed, fmt.Sprintf("record %d was modified concurrently", id))
}

// NotFound is the per-record result for a missing Id.
func NotFound(id int64) Result {
	return Failed(CodeNotFound, fmt.Sprintf("record %d not found", id))
}

// Invalid is the per-record result for a record the store refused.
func Invalid(err error) Result {
	return Failed(CodeInvalidRecord, err.Error())
}

// PrepareUpdate validates an update request and returns each record normalized
// together with its Id.
func PrepareUpdate(table Table, req UpdateRequest) ([]int64, []Record, error) {
	for _, c := range req.Where {
		err := ValidateCondition(table, c)
		if err != nil {
			return nil, nil, err
		}
	}

	ids := make([]int64, len(req.Records))
	patches := make([]Record, len(req.Records))

	for i, record := range req.Records {
		id, ok := record.ID()
		if !ok {
			return nil, nil, fmt.Errorf("%w: update record %d has no Id", ErrInvalidValue, i)
		}

		patch, err := table.Normalize(record)
		if err != nil {
			return nil, nil, err
		}

		delete(patch, IDField)

		ids[i] = id
		patches[i] = patch
	}

	return ids, patches, nil
}
