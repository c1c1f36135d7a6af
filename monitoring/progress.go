package monitoring

import (
	"time"

	"go.uber.org/atomic"
)

// A ProgressBar is a tracker of the progress. Its counters can be updated
// while the monitor reads them.
type ProgressBar struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	StartTime time.Time      `json:"start_time"`
	Total     *atomic.Uint64 `json:"total"`
	Finished  *atomic.Uint64 `json:"finished"`
}

func newProgressBar(id, name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        id,
		Name:      name,
		StartTime: time.Now(),
		Total:     atomic.NewUint64(total),
		Finished:  atomic.NewUint64(0),
	}
}

// IncrementFinished adds a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Finished.Add(amount)
}

// SetFinished overwrites the number of finished elements.
func (b *ProgressBar) SetFinished(finished uint64) {
	b.Finished.Store(finished)
}

// Percent returns the finished fraction in [0, 100]. A bar without a total
// reports 0.
func (b *ProgressBar) Percent() float64 {
	total := b.Total.Load()
	if total == 0 {
		return 0
	}

	finished := b.Finished.Load()
	if finished > total {
		finished = total
	}

	return float64(finished) / float64(total) * 100
}
