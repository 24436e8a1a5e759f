package normalizer

import (
	"runtime"
	"sync"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// parallelThreshold is where fanning out starts paying for itself. A month
// of checking-account activity stays sequential; year-long card exports run
// thousands of lines and do not.
const parallelThreshold = 512

type rowSlot struct {
	tx      statement.Transaction
	outcome rowOutcome
}

// normalizeParallel runs normalizeRow over a bounded worker pool. Results
// land in their input slot, so row order survives the fan-out. The
// Categorizer contract requires concurrency safety for exactly this path.
func (n *Normalizer) normalizeParallel(rows []statement.RawRow, nctx Context) ([]statement.Transaction, []string) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(rows) {
		workers = len(rows)
	}

	slots := make([]rowSlot, len(rows))
	jobs := make(chan int, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				slots[idx].tx, slots[idx].outcome = n.normalizeRow(rows[idx], nctx)
			}
		}()
	}
	for idx := range rows {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	txs := make([]statement.Transaction, 0, len(rows))
	badDates, badAmounts := 0, 0
	for _, s := range slots {
		switch s.outcome {
		case rowBadDate:
			badDates++
		case rowBadAmount:
			badAmounts++
		default:
			txs = append(txs, s.tx)
		}
	}

	ensureAscending(txs)
	return txs, dropWarnings(badDates, badAmounts)
}
