// internal/crawler/task.go
package crawler

// SourceTask identifies one source URL within a session.
type SourceTask struct {
	Index int
	URL   string
}

// NextStuckCount advances the stuck detector. The count resets exactly when
// the page URL changed since the previous step; any action that leaves the
// URL in place, including successful in-page actions, increments it.
func NextStuckCount(prevURL, currentURL string, prev int) int {
	if currentURL != prevURL {
		return 0
	}
	return prev + 1
}
