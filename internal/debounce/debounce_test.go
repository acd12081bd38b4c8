package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) commit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestBurstCommitsLastValueOnce(t *testing.T) {
	rec := &recorder{}
	f := New("", 30*time.Millisecond, rec.commit)

	for _, v := range []string{"h", "hi", "hin", "hind"} {
		f.Set(v)
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, "hind", f.Draft())
	assert.Empty(t, f.Committed(), "nothing is committed during the burst")

	assert.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"hind"}, rec.get())
	assert.Equal(t, "hind", f.Committed())
}

func TestIdenticalValueIsNotRecommitted(t *testing.T) {
	rec := &recorder{}
	f := New("abc", 10*time.Millisecond, rec.commit)

	f.Set("abd")
	f.Set("abc")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.get())
}

func TestStopCancelsPendingCommit(t *testing.T) {
	rec := &recorder{}
	f := New("", 20*time.Millisecond, rec.commit)

	f.Set("x")
	f.Stop()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.get())

	f.Set("y")
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.get(), "a stopped filter ignores input")
}

func TestFlush(t *testing.T) {
	rec := &recorder{}
	f := New("", time.Hour, rec.commit)

	f.Set("now")
	f.Flush()
	assert.Equal(t, []string{"now"}, rec.get())

	f.Flush()
	assert.Equal(t, []string{"now"}, rec.get())
}

func TestDefaultDelay(t *testing.T) {
	f := New("", 0, func(string) {})
	assert.Equal(t, DefaultDelay, f.delay)
}
