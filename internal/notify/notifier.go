package notify

// Summary is what a notifier receives for each finished job.
type Summary struct {
	JobID      string
	Total      int
	Failed     int
	DurationMs int64
}

type Notifier interface {
	Send(summary Summary) error
}
