package shared

import "fmt"

// JobLockKey builds redis keys for single-runner background jobs.
func JobLockKey(task string) string {
	return fmt.Sprintf("erp:jobs:%s:lock", task)
}
