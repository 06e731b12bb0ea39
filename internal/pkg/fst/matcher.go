package fst

// Match walks the automaton with query the way a tokenizer scans for
// dictionary words: a final marker crossed anywhere along the walk marks the
// result accepted and contributes its outputs, and the walk goes on while
// both query bytes and arcs remain. For a query that is a key with no shorter
// key as a prefix, the result equals Lookup's.
func (f *FST) Match(query []byte) (Result, error) {
	var (
		pos     int
		i       int
		prefix  []byte
		rec     arcRecord
		outputs [][]byte
		result  Result
	)
	if len(f.data) == 0 {
		return result, nil
	}
	for {
		if err := decodeArc(f.data, pos, &rec); err != nil {
			return Result{}, err
		}
		if rec.isFinal() {
			result.Accepted = true
			for _, o := range rec.finalOutputs {
				outputs = append(outputs, concat(prefix, o))
			}
			if rec.isLast() || i >= len(query) {
				break
			}
			pos += rec.size
			continue
		}
		if i >= len(query) {
			break
		}
		if query[i] == rec.label {
			prefix = append(prefix, rec.output...)
			i++
			pos += rec.delta
			continue
		}
		if rec.isLast() {
			break
		}
		pos += rec.size
	}
	result.Outputs = normalizeOutputs(outputs)
	return result, nil
}

// Lookup reports whether query is exactly one of the keys and returns its
// outputs.
func (f *FST) Lookup(query []byte) (Result, error) {
	var (
		pos    int
		i      int
		prefix []byte
		rec    arcRecord
	)
	if len(f.data) == 0 {
		return Result{}, nil
	}
	for {
		if err := decodeArc(f.data, pos, &rec); err != nil {
			return Result{}, err
		}
		if rec.isFinal() {
			if i == len(query) {
				outputs := make([][]byte, 0, len(rec.finalOutputs))
				for _, o := range rec.finalOutputs {
					outputs = append(outputs, concat(prefix, o))
				}
				return Result{Accepted: true, Outputs: normalizeOutputs(outputs)}, nil
			}
			if rec.isLast() {
				break
			}
			pos += rec.size
			continue
		}
		// Arcs of a state are stored in ascending label order.
		if i >= len(query) || query[i] < rec.label {
			break
		}
		if query[i] == rec.label {
			prefix = append(prefix, rec.output...)
			i++
			pos += rec.delta
			continue
		}
		if rec.isLast() {
			break
		}
		pos += rec.size
	}
	return Result{}, nil
}

// Contains reports whether query is one of the keys.
func (f *FST) Contains(query []byte) (bool, error) {
	r, err := f.Lookup(query)
	return r.Accepted, err
}

// CommonPrefixes returns every key that is a prefix of query, shortest
// first, each with its outputs.
func (f *FST) CommonPrefixes(query []byte) ([]PrefixMatch, error) {
	var (
		pos     int
		i       int
		prefix  []byte
		rec     arcRecord
		matches []PrefixMatch
	)
	if len(f.data) == 0 {
		return nil, nil
	}
	for {
		if err := decodeArc(f.data, pos, &rec); err != nil {
			return nil, err
		}
		if rec.isFinal() {
			outputs := make([][]byte, 0, len(rec.finalOutputs))
			for _, o := range rec.finalOutputs {
				outputs = append(outputs, concat(prefix, o))
			}
			matches = append(matches, PrefixMatch{Length: i, Outputs: normalizeOutputs(outputs)})
			if rec.isLast() || i >= len(query) {
				break
			}
			pos += rec.size
			continue
		}
		if i >= len(query) || query[i] < rec.label {
			break
		}
		if query[i] == rec.label {
			prefix = append(prefix, rec.output...)
			i++
			pos += rec.delta
			continue
		}
		if rec.isLast() {
			break
		}
		pos += rec.size
	}
	return matches, nil
}
