package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PaperPrefetchKey holds a prefetched paper until the next attempt consumes it.
func (r *CacheKeyStruct) PaperPrefetchKey(paperID string) string {
	return fmt.Sprintf("paper:%s:prefetch", paperID)
}

// AttemptEventsChannel is the pub/sub channel for an attempt's lifecycle events.
func (r *CacheKeyStruct) AttemptEventsChannel(attemptID string) string {
	return fmt.Sprintf("attempt:%s:events", attemptID)
}

var CacheKey = NewCacheKeyStruct()
