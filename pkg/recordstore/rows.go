package recordstore

import (
	"cmp"
	"slices"
)

// Rows holds a whole table in process, keyed by Id. Stores that persist tables
// as documents load Rows, mutate them and write them back.
type Rows map[int64]Record

// Load builds Rows from decoded records, normalizing values to their column kinds.
func Load(table Table, records []Record) (Rows, error) {
	rows := make(Rows, len(records))

	for _, record := range records {
		normalized, err := table.Normalize(record)
		if err != nil {
			return nil, err
		}

		id, ok := normalized.ID()
		if !ok {
			continue
		}

		rows[id] = normalized
	}

	return rows, nil
}

// Sorted returns the records in ascending Id order.
func (r Rows) Sorted() []Record {
	records := make([]Record, 0, len(r))
	for _, record := range r {
		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b Record) int {
		x, _ := a.ID()
		y, _ := b.ID()

		return cmp.Compare(x, y)
	})

	return records
}

// Create inserts each valid record under the next free Id. The highest Id ever
// assigned is tracked by seq so deleted ids are not reused.
func (r Rows) Create(table Table, seq *int64, req CreateRequest) []Result {
	results := make([]Result, 0, len(req.Records))

	for _, record := range req.Records {
		normalized, err := table.Normalize(record)
		if err != nil {
			results = append(results, Invalid(err))

			continue
		}

		*seq = max(*seq, NextID(r.Sorted())-1) + 1
		normalized[IDField] = *seq
		r[*seq] = normalized

		results = append(results, Succeeded(normalized.Clone()))
	}

	return results
}

// Update merges each patch into its stored record when the preconditions hold.
func (r Rows) Update(table Table, req UpdateRequest) ([]Result, error) {
	ids, patches, err := PrepareUpdate(table, req)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(ids))

	for i, id := range ids {
		stored, ok := r[id]
		if !ok {
			results = append(results, NotFound(id))

			continue
		}

		if !Satisfies(stored, req.Where) {
			results = append(results, PreconditionFailed(id))

			continue
		}

		merged := Merge(stored, patches[i])
		r[id] = merged

		results = append(results, Succeeded(merged.Clone()))
	}

	return results, nil
}

// Delete removes records by Id.
func (r Rows) Delete(ids []int64) []Result {
	results := make([]Result, 0, len(ids))

	for _, id := range ids {
		if _, ok := r[id]; !ok {
			results = append(results, NotFound(id))

			continue
		}

		delete(r, id)

		results = append(results, Succeeded(Record{IDField: id}))
	}

	return results
}
