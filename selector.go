package mud

// selectionResult is the outcome of one egress-selector pass: which paths
// to transmit on and, for the non-probing branch, the single updated
// limit to commit (spec.md §4.9).
type selectionResult struct {
	probing []*Path // stale non-backup paths transmitted on unconditionally
	chosen  *Path   // single min-limit non-backup path, or the backup fallback
	limit   int64   // updated limit for chosen, when chosen came from step 6
}

// virtualDeadline computes path.limit' per spec.md §4.9 step 4.
func virtualDeadline(p *Path, now uint64) int64 {
	elapsed := int64(now) - int64(p.sendTime)
	if p.limit > elapsed {
		return p.limit + int64(p.rtt)/2 - elapsed
	}
	return int64(p.rtt) / 2
}

// selectEgress implements spec.md §4.9 steps 4-8: among non-backup paths,
// find any that are stale (probing) and the single path with minimum
// virtual deadline; fall back to the first backup path if no non-backup
// path exists at all.
func selectEgress(paths []*Path, now uint64, sendTimeout uint64) selectionResult {
	var nonBackup []*Path
	var firstBackup *Path
	for _, p := range paths {
		if p.bak.local {
			if firstBackup == nil {
				firstBackup = p
			}
			continue
		}
		nonBackup = append(nonBackup, p)
	}

	if len(nonBackup) == 0 {
		if firstBackup != nil {
			return selectionResult{chosen: firstBackup}
		}
		return selectionResult{}
	}

	var res selectionResult
	var minPath *Path
	var minLimit int64

	for _, p := range nonBackup {
		limit := virtualDeadline(p, now)
		if timeoutElapsed(now, p.recvTime, sendTimeout) {
			res.probing = append(res.probing, p)
			p.limit = limit
			continue
		}
		if minPath == nil || limit < minLimit {
			minPath, minLimit = p, limit
		}
	}

	if minPath != nil {
		res.chosen = minPath
		res.limit = minLimit
	}
	return res
}
