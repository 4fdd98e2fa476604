package demux

// Stats summarizes a run.
type Stats struct {
	// Reads is the # of reads classified.
	Reads int
	// Outer[o] is the # of reads whose outer level resolved to outcome o.
	Outer [NumOutcomes]int
	// Inner[o] is the same for the inner level. Reads whose inner level was
	// never searched count as None.
	Inner [NumOutcomes]int
	// Concatemers is the # of reads with an internal tag.
	Concatemers int
	// Assigned is the # of reads assigned to a sample.
	Assigned int
	// Clusters maps each cluster, Unassigned included, to its # of reads.
	Clusters map[string]int
}

// Add counts one record.
func (s *Stats) Add(r *Record) {
	s.Reads++
	s.Outer[r.Outer.Outcome]++
	s.Inner[r.Inner.Outcome]++
	if r.Concat.Found() {
		s.Concatemers++
	}
	if r.Assigned() {
		s.Assigned++
	}
	if s.Clusters == nil {
		s.Clusters = map[string]int{}
	}
	s.Clusters[r.Cluster]++
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Reads += o.Reads
	for i := range o.Outer {
		s.Outer[i] += o.Outer[i]
		s.Inner[i] += o.Inner[i]
	}
	s.Concatemers += o.Concatemers
	s.Assigned += o.Assigned
	clusters := make(map[string]int, len(s.Clusters)+len(o.Clusters))
	for k, v := range s.Clusters {
		clusters[k] += v
	}
	for k, v := range o.Clusters {
		clusters[k] += v
	}
	s.Clusters = clusters
	return s
}
