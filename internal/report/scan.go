package report

import (
	"sort"
	"sync"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/internal/typology"
	"github.com/casetrace/casetrace/pkg/models"
)

// scanWorkers bounds the concurrent per-party battery runs in a
// case-wide scan
const scanWorkers = 4

// CaseFindings runs the typology battery for every party in the case
// and returns the results keyed by canonical id. Parties are scanned
// concurrently; detector panics are isolated per party by the battery
// runner, so one bad transaction set cannot take down the scan.
func (a *Assembler) CaseFindings(parties map[string]*models.Party, txns []models.Transaction) map[string]*typology.Results {
	byOwner := make(map[string][]models.Transaction)
	for _, t := range txns {
		key := party.Key(t.OwnerID, t.OwnerName)
		byOwner[key] = append(byOwner[key], t)
	}

	ids := make([]string, 0, len(parties))
	for id := range parties {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]*typology.Results, len(ids))
	)

	queue := make(chan string)
	workers := scanWorkers
	if len(ids) < workers {
		workers = len(ids)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				own := byOwner[id]
				if len(own) == 0 {
					continue
				}
				r := a.detector.RunAll(id, own)
				mu.Lock()
				results[id] = r
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		queue <- id
	}
	close(queue)
	wg.Wait()

	return results
}
