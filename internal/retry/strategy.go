package retry

import (
	"errors"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy returns how long to wait before retry number n, or true once retries are exhausted.
type Strategy interface {
	Sleep(n uint) (time.Duration, bool)
}

type never struct{}

func NewNever() *never {
	return &never{}
}

func (nr *never) Sleep(n uint) (time.Duration, bool) {
	return 0, true
}

// Entropy returns a value in [0, n). It is called with n > 0 only.
type Entropy func(n int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

// NewExponentialBackOff waits entropy(min(base*2^n, max)) before retry n, allowing
// maxRetryCount retries. A nil entropy means full jitter.
func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	if entropy == nil {
		entropy = rand.Int63n
	}
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

func (eb *exponentialBackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= eb.maxRetryCount {
		return 0, true
	}

	delay := eb.delay(retryCount)
	if delay <= 0 {
		return 0, false
	}
	return time.Duration(eb.entropy(delay)), false
}

func (eb *exponentialBackOff) delay(retryCount uint) int64 {
	if retryCount >= 63 {
		return int64(eb.max)
	}

	delay, err := checkedMul(int64(1)<<retryCount, int64(eb.base))
	if err != nil {
		return int64(eb.max)
	}
	return min(delay, int64(eb.max))
}

var ErrOverflow = errors.New("overflow")

// checkedMul multiplies positive operands and fails when the product does not fit in T.
func checkedMul[T constraints.Signed](l T, r T) (T, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if product := l * r; product > 0 && product/r == l {
		return product, nil
	}
	return 0, ErrOverflow
}
