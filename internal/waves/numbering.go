package waves

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const wavePrefix = "OS"

// nextWaveNumber returns the next OS-YYYYMMDD-NNNN number for the day of now.
// Two concurrent creators can compute the same number; the unique index
// rejects the loser and its transaction is retried.
func nextWaveNumber(ctx context.Context, repo Repository, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", wavePrefix, now.UTC().Format("20060102"))
	last, err := repo.LastNumberWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	seq := 1
	if last != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed wave number %q: %w", last, err)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
