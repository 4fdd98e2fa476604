package demux

// trimQuality removes the bases with a phred score below minQual from both
// ends of the read. A read whose bases are all below the threshold becomes
// empty.
func trimQuality(seq string, qual []byte, minQual int) (string, []byte) {
	if len(qual) != len(seq) {
		return seq, qual
	}
	start, end := 0, len(qual)
	for start < end && int(qual[start]) < minQual {
		start++
	}
	for end > start && int(qual[end-1]) < minQual {
		end--
	}
	return seq[start:end], qual[start:end]
}
