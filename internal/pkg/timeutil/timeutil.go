package timeutil

import "time"

// NowMilli is the single clock for ctime/mtime columns. Millisecond
// precision keeps the summarization staleness check meaningful.
func NowMilli() int64 {
	return time.Now().UnixMilli()
}
