package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km KeyedMutex

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("user-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutexDistinctKeysDoNotBlock(t *testing.T) {
	var km KeyedMutex

	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyedMutexUnlockIsIdempotent(t *testing.T) {
	var km KeyedMutex

	unlock := km.Lock("key")
	unlock()
	unlock()

	// A second acquisition must still work.
	unlock2 := km.Lock("key")
	unlock2()
}
