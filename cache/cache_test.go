package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestGetLoadsOnce(t *testing.T) {
	is := is.New(t)
	c := New[string, int]("test")
	loads := 0
	load := func(key string) (int, error) {
		loads++
		return len(key), nil
	}

	v, err := c.Get("abc", load)
	is.NoErr(err)
	is.Equal(v, 3)
	v, err = c.Get("abc", load)
	is.NoErr(err)
	is.Equal(v, 3)
	is.Equal(loads, 1)

	c.Invalidate("abc")
	_, err = c.Get("abc", load)
	is.NoErr(err)
	is.Equal(loads, 2)
	is.Equal(c.Len(), 1)

	c.Clear()
	is.Equal(c.Len(), 0)
}

func TestFailedLoadNotCached(t *testing.T) {
	is := is.New(t)
	c := New[int, string]("test")
	boom := errors.New("boom")
	_, err := c.Get(1, func(int) (string, error) { return "", boom })
	is.Equal(err, boom)
	is.Equal(c.Len(), 0)
}
